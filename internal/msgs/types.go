package msgs

import "time"

// Type tags of the built-in messages
const (
	TypeString           = "std_msgs/String"
	TypeWheelsCmdStamped = "duckietown_msgs/WheelsCmdStamped"
	TypeCompressedImage  = "sensor_msgs/CompressedImage"
	TypeSetFSMState      = "duckietown_msgs/SetFSMState"
)

// FSM states accepted by the Duckiebot fsm_node
const (
	StateLaneFollowing         = "LANE_FOLLOWING"
	StateNormalJoystickControl = "NORMAL_JOYSTICK_CONTROL"
)

// Time is a ROS timestamp
type Time struct {
	Secs  uint32 `json:"secs"`
	Nsecs uint32 `json:"nsecs"`
}

// NewTime converts t to a ROS timestamp
func NewTime(t time.Time) Time {
	return Time{
		Secs:  uint32(t.Unix()),
		Nsecs: uint32(t.Nanosecond()),
	}
}

// Header is std_msgs/Header
type Header struct {
	Seq     uint32 `json:"seq"`
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// NewHeader returns a header stamped with t
func NewHeader(frameID string, t time.Time) Header {
	return Header{Stamp: NewTime(t), FrameID: frameID}
}

// String is std_msgs/String
type String struct {
	Data string `json:"data"`
}

// WheelsCmdStamped is duckietown_msgs/WheelsCmdStamped. Velocities are
// normalized wheel commands in [-1, 1].
type WheelsCmdStamped struct {
	Header   Header  `json:"header"`
	VelLeft  float64 `json:"vel_left"`
	VelRight float64 `json:"vel_right"`
}

// CompressedImage is sensor_msgs/CompressedImage. rosbridge sends Data as
// base64, which encoding/json maps to []byte.
type CompressedImage struct {
	Header Header `json:"header"`
	Format string `json:"format"`
	Data   []byte `json:"data"`
}

// SetFSMStateRequest is the duckietown_msgs/SetFSMState request
type SetFSMStateRequest struct {
	State string `json:"state"`
}

// SetFSMStateResponse is the (empty) duckietown_msgs/SetFSMState response
type SetFSMStateResponse struct{}
