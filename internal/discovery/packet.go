package discovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ProtocolVersion is the version tag carried by every ping
const ProtocolVersion = "1"

// Ping is the probe datagram sent to every candidate host
type Ping struct {
	Version string `json:"version"`
	Port    int    `json:"port"`
}

// Pong is the reply datagram sent back by a device
type Pong struct {
	Version       string `json:"version,omitempty"`
	Name          string `json:"name,omitempty"`
	Type          string `json:"type,omitempty"`
	Configuration string `json:"configuration,omitempty"`
	Hardware      string `json:"hardware,omitempty"`
}

// Codec serializes discovery packets. The scanner takes one explicitly so
// tests and alternative firmware encodings can be plugged in.
type Codec interface {
	EncodePing(p Ping) ([]byte, error)
	DecodePong(data []byte) (Pong, error)
}

// JSONCodec is the UTF-8 JSON encoding used by Duckiebot firmware
type JSONCodec struct{}

// EncodePing implements Codec
func (JSONCodec) EncodePing(p Ping) ([]byte, error) {
	return json.Marshal(p)
}

var errNotObject = errors.New("payload is not a JSON object")

// DecodePong implements Codec. Anything that is not valid UTF-8 holding a
// JSON object with string fields is rejected.
func (JSONCodec) DecodePong(data []byte) (Pong, error) {
	if !utf8.Valid(data) {
		return Pong{}, fmt.Errorf("could not deserialize data: invalid UTF-8")
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Pong{}, fmt.Errorf("could not deserialize data: %w", errNotObject)
	}

	var pong Pong
	if err := json.Unmarshal(trimmed, &pong); err != nil {
		return Pong{}, fmt.Errorf("could not deserialize data: %w", err)
	}
	return pong, nil
}

// deviceFromPong maps a parsed reply to a Device. ip must be the datagram's
// source address.
func deviceFromPong(pong Pong, ip string) Device {
	name := pong.Name
	if name == "" {
		name = UnknownName
	}
	typ := pong.Type
	if typ == "" {
		typ = DefaultType
	}

	return Device{
		IP:            ip,
		Name:          name,
		Type:          typ,
		Configuration: pong.Configuration,
		Hardware:      pong.Hardware,
	}
}
