package msgs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// Factory returns a pointer to a new zero value of a message struct
type Factory func() any

type serviceTypes struct {
	request  Factory
	response Factory
}

// Registry maps type tags to message structs
type Registry struct {
	mu       sync.RWMutex
	topics   map[string]Factory
	services map[string]serviceTypes
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		topics:   make(map[string]Factory),
		services: make(map[string]serviceTypes),
	}
}

// DefaultRegistry returns a registry holding the built-in Duckiebot messages
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TypeString, func() any { return &String{} })
	r.Register(TypeWheelsCmdStamped, func() any { return &WheelsCmdStamped{} })
	r.Register(TypeCompressedImage, func() any { return &CompressedImage{} })
	r.RegisterService(TypeSetFSMState,
		func() any { return &SetFSMStateRequest{} },
		func() any { return &SetFSMStateResponse{} },
	)
	return r
}

// Register adds or replaces a topic message type
func (r *Registry) Register(typ string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics[typ] = f
}

// RegisterService adds or replaces a service type
func (r *Registry) RegisterService(typ string, request, response Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[typ] = serviceTypes{request: request, response: response}
}

// Known reports whether typ is a registered topic or service type
func (r *Registry) Known(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, topic := r.topics[typ]
	_, service := r.services[typ]
	return topic || service
}

// Validate encodes payload and checks it against the message registered
// for typ. It returns the encoded payload ready for the wire.
func (r *Registry) Validate(typ string, payload any) (json.RawMessage, error) {
	r.mu.RLock()
	f := r.topics[typ]
	r.mu.RUnlock()

	return validate(typ, payload, f)
}

// ValidateRequest is Validate for service call arguments. A nil args value
// is sent as an empty object.
func (r *Registry) ValidateRequest(typ string, args any) (json.RawMessage, error) {
	if args == nil {
		args = struct{}{}
	}

	r.mu.RLock()
	f := r.services[typ].request
	r.mu.RUnlock()

	return validate(typ, args, f)
}

// Decode converts an inbound message. Known types decode to a pointer to
// their struct, anything else to map[string]any.
func (r *Registry) Decode(typ string, raw json.RawMessage) (any, error) {
	r.mu.RLock()
	f := r.topics[typ]
	r.mu.RUnlock()

	return decode(typ, raw, f)
}

// DecodeResponse is Decode for service call results
func (r *Registry) DecodeResponse(typ string, raw json.RawMessage) (any, error) {
	r.mu.RLock()
	f := r.services[typ].response
	r.mu.RUnlock()

	return decode(typ, raw, f)
}

func validate(typ string, payload any, f Factory) (json.RawMessage, error) {
	raw, err := encode(payload)
	if err != nil {
		return nil, &ValidationError{Type: typ, Err: err}
	}
	if !isObject(raw) {
		return nil, &ValidationError{Type: typ, Err: ErrNotObject}
	}
	if f == nil {
		return raw, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(f()); err != nil {
		return nil, &ValidationError{Type: typ, Err: err}
	}
	return raw, nil
}

func decode(typ string, raw json.RawMessage, f Factory) (any, error) {
	if !isObject(raw) {
		return nil, &ValidationError{Type: typ, Err: ErrNotObject}
	}

	var v any
	if f != nil {
		v = f()
	} else {
		v = &map[string]any{}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, &ValidationError{Type: typ, Err: err}
	}

	if m, ok := v.(*map[string]any); ok {
		return *m, nil
	}
	return v, nil
}

// encode marshals payload, passing pre-encoded JSON through untouched
func encode(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return checkJSON(p)
	case []byte:
		return checkJSON(p)
	default:
		return json.Marshal(payload)
	}
}

func checkJSON(raw []byte) (json.RawMessage, error) {
	if !json.Valid(raw) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func isObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
