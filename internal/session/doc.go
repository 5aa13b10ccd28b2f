// Package session binds one named Duckiebot to a bridge connection.
//
// A Coordinator watches a discovery device list for the selected name,
// connects the bridge when the device shows up (or reappears at a new
// address) and disconnects when the selection changes. Topic and service
// names passed to it are qualified with the device namespace:
//
//	coord := session.New(service.List(), bridge.NewClient(bridge.Config{}))
//	defer coord.Close()
//
//	coord.Select("duck1")
//	coord.Subscribe("/camera_node/image/compressed", msgs.TypeCompressedImage, h)
//	// subscribes to /duck1/camera_node/image/compressed
//
// Status combines "device found yet?" with the bridge state. Reconnecting
// after a failure is always an explicit Retry.
package session
