// Package logging provides structured logging for the duckie client.
//
// The package wraps a process-wide zap logger with a few helpers tuned to
// the two network components: the discovery scanner (UDP datagrams) and the
// bridge client (websocket frames).
//
// # Silent by default
//
// CLI output is rendered by the ui package, so the logger is a no-op until a
// level is requested either explicitly or through DUCKIE_LOG_LEVEL:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Domain helpers
//
//	logging.LogConnection("ws://10.0.0.5:9090", "connected")
//	logging.LogBridgeMessage("sent", "publish", "/duck1/wheels_driver_node/wheels_cmd", 112)
//	logging.LogDatagram("received", "10.0.0.5:11411", payload)
//
// All functions are safe for concurrent use.
package logging
