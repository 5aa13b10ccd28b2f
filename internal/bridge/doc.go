// Package bridge is a rosbridge v2 client for a single Duckiebot.
//
// A Client owns at most one websocket connection to the robot's rosbridge
// server (ws://<ip>:9090 by default) and offers three interaction patterns
// over it:
//
//   - Publish: fire-and-forget, dropped with ErrNotConnected while
//     disconnected. Topics are advertised once per connection.
//   - Subscribe: one subscribe op per topic, any number of local handlers,
//     each removable through its own unsubscribe function.
//   - CallService: request/response correlated by id, no client timeout.
//
// Connection lifecycle:
//
//	idle --Connect--> connecting --dial ok--> connected --close/Disconnect--> idle
//	connecting --dial error--> failed
//	connected --read error--> failed
//
// Connect never blocks; observe the result with OnStateChange or State.
// Nothing is retried automatically. Subscriptions, advertisements and
// pending calls do not survive a disconnect.
//
// Usage:
//
//	client := bridge.NewClient(bridge.Config{})
//	cancel := client.OnStateChange(func(s bridge.State) { fmt.Println(s) })
//	defer cancel()
//
//	client.Connect("10.0.0.5")
//	...
//	unsub, err := client.Subscribe("/duck1/camera_node/image/compressed",
//	    msgs.TypeCompressedImage, func(msg json.RawMessage) { ... })
package bridge
