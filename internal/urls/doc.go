// Package urls holds the documentation links shown in troubleshooting output.
//
// Usage:
//
//	import "github.com/duckielink/duckie/internal/urls"
//
//	fmt.Printf("For more information, see: %s\n", urls.RosbridgeProtocol)
package urls
