// Package msgs defines the typed payloads exchanged with a Duckiebot over
// rosbridge and validates untyped values against them.
//
// Payloads are keyed by their ROS type tag (e.g., "std_msgs/String"). A
// Registry maps tags to Go structs; values are checked at the boundary with
// a strict decode so that a misspelled field is reported before anything is
// put on the wire.
//
// Usage:
//
//	types := msgs.DefaultRegistry()
//
//	raw, err := types.Validate(msgs.TypeString, map[string]any{"data": "hi"})
//	if err != nil {
//	    var verr *msgs.ValidationError
//	    errors.As(err, &verr)
//	}
//
//	v, _ := types.Decode(msgs.TypeCompressedImage, frame)
//	img := v.(*msgs.CompressedImage)
//
// Unknown type tags are not rejected; they are carried as generic JSON
// objects.
package msgs
