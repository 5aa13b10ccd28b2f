// Package discovery finds Duckiebots on the local network.
//
// The canonical backend is an active UDP sweep: the scanner binds a fixed
// listen port, sends one ping datagram to every host of the local /24 and
// collects pong replies. An mDNS backend and a static fixture backend
// implement the same Backend interface.
//
// # Wire format
//
// Ping (client to device, sent to RemotePort from ListenPort):
//
//	{"version": "1", "port": 44444}
//
// Pong (device to client), all fields optional:
//
//	{"name": "duck1", "type": "Duckiebot", "configuration": "DB21M", "hardware": "Raspberry Pi 4"}
//
// The device IP always comes from the datagram's source address, never
// from the payload.
//
// # Usage
//
//	svc := discovery.NewService(discovery.NewUDPBackend())
//	scan := svc.Refresh(ctx)
//	<-scan.Done()
//	for _, d := range svc.List().Snapshot() {
//	    fmt.Println(d)
//	}
//
// # Sessions
//
// StartScan returns a Scan handle. Stop closes the socket immediately and
// may be called any number of times, including after the scan finished on
// its own. Done is closed once the backend has returned; no onFound call
// happens after that.
package discovery
