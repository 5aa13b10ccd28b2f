package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

// rosbridge v2 operations
const (
	OpAdvertise       = "advertise"
	OpPublish         = "publish"
	OpSubscribe       = "subscribe"
	OpUnsubscribe     = "unsubscribe"
	OpCallService     = "call_service"
	OpServiceResponse = "service_response"
	OpStatus          = "status"
)

// AdvertiseMsg announces a topic before publishing on it
type AdvertiseMsg struct {
	Op    string `json:"op"`
	ID    string `json:"id,omitempty"`
	Topic string `json:"topic"`
	Type  string `json:"type"`
}

// PublishMsg carries one message on a topic, in both directions
type PublishMsg struct {
	Op    string          `json:"op"`
	Topic string          `json:"topic"`
	Type  string          `json:"type,omitempty"`
	Msg   json.RawMessage `json:"msg"`
}

// SubscribeMsg asks the server to forward a topic
type SubscribeMsg struct {
	Op    string `json:"op"`
	ID    string `json:"id,omitempty"`
	Topic string `json:"topic"`
	Type  string `json:"type,omitempty"`
}

// UnsubscribeMsg cancels a SubscribeMsg with the same ID
type UnsubscribeMsg struct {
	Op    string `json:"op"`
	ID    string `json:"id,omitempty"`
	Topic string `json:"topic"`
}

// CallServiceMsg is a service request
type CallServiceMsg struct {
	Op      string          `json:"op"`
	ID      string          `json:"id"`
	Service string          `json:"service"`
	Type    string          `json:"type,omitempty"`
	Args    json.RawMessage `json:"args"`
}

// inbound is the routing view of a server frame
type inbound struct {
	op      string
	id      string
	topic   string
	service string
	msg     json.RawMessage

	// service_response
	result  bool
	values  json.RawMessage
	failure string

	// status
	level string
	text  string
}

var errMalformedFrame = errors.New("malformed rosbridge frame")

var emptyObject = json.RawMessage(`{}`)

// parseInbound extracts the routing fields of a frame without decoding the
// payload
func parseInbound(data []byte) (inbound, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return inbound{}, errMalformedFrame
	}

	op, err := jsonparser.GetString(trimmed, "op")
	if err != nil {
		return inbound{}, fmt.Errorf("%w: missing op: %v", errMalformedFrame, err)
	}

	in := inbound{op: op}
	in.id, _ = jsonparser.GetString(trimmed, "id")
	in.topic, _ = jsonparser.GetString(trimmed, "topic")
	in.service, _ = jsonparser.GetString(trimmed, "service")

	switch op {
	case OpPublish:
		msg, typ, _, err := jsonparser.Get(trimmed, "msg")
		if err != nil || typ != jsonparser.Object {
			return inbound{}, fmt.Errorf("%w: publish without object msg", errMalformedFrame)
		}
		in.msg = json.RawMessage(msg)

	case OpServiceResponse:
		in.result = true
		if result, err := jsonparser.GetBoolean(trimmed, "result"); err == nil {
			in.result = result
		}

		values, typ, _, err := jsonparser.Get(trimmed, "values")
		switch {
		case err != nil:
			in.values = emptyObject
		case typ == jsonparser.String:
			text, perr := jsonparser.ParseString(values)
			if perr != nil {
				text = string(values)
			}
			in.failure = text
			in.values = emptyObject
		default:
			in.values = json.RawMessage(values)
		}

	case OpStatus:
		in.level, _ = jsonparser.GetString(trimmed, "level")
		in.text, _ = jsonparser.GetString(trimmed, "msg")
	}

	return in, nil
}
