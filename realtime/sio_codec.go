// Package realtime implements the Socket.IO-style realtime channel
// (component B): transport negotiation, namespace join, the forwarded
// event table, subscription framing, and infinite-reconnect backoff.
// Grounded on original_source's api/ws.py (RealtimeManager) for the
// protocol shape and the teacher's internal/core/realtime/client.go for
// the read/write pump and ping/pong deadline pattern over
// gorilla/websocket.
package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Engine.IO packet types (first byte of every frame once the websocket
// transport is established).
const (
	eioOpen    byte = '0'
	eioClose   byte = '1'
	eioPing    byte = '2'
	eioPong    byte = '3'
	eioMessage byte = '4'
	eioUpgrade byte = '5'
	eioNoop    byte = '6'
)

// Socket.IO packet types, carried inside an eioMessage frame.
const (
	sioConnect      byte = '0'
	sioDisconnect   byte = '1'
	sioEvent        byte = '2'
	sioAck          byte = '3'
	sioConnectError byte = '4'
)

// handshake is the JSON body of the Engine.IO "open" packet, received
// over the long-polling transport before the websocket upgrade.
type handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
}

// parseOpenPacket decodes an Engine.IO open packet ("0{...}") into its
// handshake payload. frame must already have its leading packet-type
// byte present.
func parseOpenPacket(frame []byte) (handshake, error) {
	if len(frame) == 0 || frame[0] != eioOpen {
		return handshake{}, fmt.Errorf("realtime: not an open packet: %q", frame)
	}
	var hs handshake
	if err := json.Unmarshal(frame[1:], &hs); err != nil {
		return handshake{}, fmt.Errorf("realtime: decode handshake: %w", err)
	}
	return hs, nil
}

// sioNamespacePacket is a decoded Socket.IO packet scoped to a
// namespace: connect/connect-error acks carry a JSON object, event
// packets carry a JSON array whose first element is the event name.
type sioNamespacePacket struct {
	Type      byte
	Namespace string
	Data      json.RawMessage
}

// parseEnginePacket splits a raw websocket text frame into its
// Engine.IO packet type and remaining payload.
func parseEnginePacket(frame []byte) (byte, []byte) {
	if len(frame) == 0 {
		return 0, nil
	}
	return frame[0], frame[1:]
}

// parseSocketIOPacket decodes a Socket.IO packet body (the payload of
// an eioMessage frame): a type byte, an optional "/namespace" up to the
// next comma, and the remaining JSON.
func parseSocketIOPacket(body []byte) (sioNamespacePacket, error) {
	if len(body) == 0 {
		return sioNamespacePacket{}, fmt.Errorf("realtime: empty socket.io packet")
	}
	pkt := sioNamespacePacket{Type: body[0]}
	rest := body[1:]

	// An optional "/namespace" runs up to the next comma. Ack ids are
	// not parsed.
	if len(rest) > 0 && rest[0] == '/' {
		if idx := strings.IndexByte(string(rest), ','); idx >= 0 {
			pkt.Namespace = string(rest[:idx])
			rest = rest[idx+1:]
		} else {
			pkt.Namespace = string(rest)
			rest = nil
		}
	}
	if pkt.Namespace == "" {
		// The server omits the namespace component entirely for the
		// default "/" namespace.
		pkt.Namespace = "/"
	}
	pkt.Data = json.RawMessage(rest)
	return pkt, nil
}

// nsPrefix renders namespace the way it appears on the wire: omitted
// entirely for the default "/" namespace, otherwise the namespace
// string itself (already carrying its leading slash).
func nsPrefix(namespace string) string {
	if namespace == "" || namespace == "/" {
		return ""
	}
	return namespace
}

// encodeConnect builds the Socket.IO CONNECT packet joining namespace.
func encodeConnect(namespace string) []byte {
	return []byte(string(eioMessage) + string(sioConnect) + nsPrefix(namespace))
}

// encodeDisconnect builds the Socket.IO DISCONNECT packet for namespace.
func encodeDisconnect(namespace string) []byte {
	return []byte(string(eioMessage) + string(sioDisconnect) + nsPrefix(namespace))
}

// encodeEvent builds a Socket.IO EVENT packet: ["name", payload] sent
// to namespace.
func encodeEvent(namespace, name string, payload any) ([]byte, error) {
	arr := []any{name, payload}
	body, err := json.Marshal(arr)
	if err != nil {
		return nil, fmt.Errorf("realtime: encode event %s: %w", name, err)
	}
	var b strings.Builder
	b.WriteByte(eioMessage)
	b.WriteByte(sioEvent)
	b.WriteString(nsPrefix(namespace))
	b.WriteByte(',')
	b.Write(body)
	return []byte(b.String()), nil
}

// decodeEventPayload extracts the event name and raw payload (second
// array element, or nil if the event carries none) from an EVENT
// packet's JSON array body.
func decodeEventPayload(data json.RawMessage) (string, json.RawMessage, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return "", nil, fmt.Errorf("realtime: decode event array: %w", err)
	}
	if len(arr) == 0 {
		return "", nil, fmt.Errorf("realtime: empty event array")
	}
	var name string
	if err := json.Unmarshal(arr[0], &name); err != nil {
		// Numeric aliases (60/61/63) arrive as a bare number, not a
		// quoted event name.
		var n int
		if numErr := json.Unmarshal(arr[0], &n); numErr != nil {
			return "", nil, fmt.Errorf("realtime: decode event name: %w", err)
		}
		name = strconv.Itoa(n)
	}
	var payload json.RawMessage
	if len(arr) > 1 {
		payload = arr[1]
	}
	return name, payload, nil
}

// taskEventAliases maps the numeric event names observed in some builds
// to the task-lifecycle event they stand in for.
var taskEventAliases = map[string]string{
	"60": "app:module:task:status:changed",
	"61": "app:module:task:created",
	"63": "app:module:task:completed",
}

// canonicalEventName resolves a numeric alias to its real event name,
// passing any other name through unchanged.
func canonicalEventName(name string) string {
	if real, ok := taskEventAliases[name]; ok {
		return real
	}
	return name
}

// forwardedEvents is the set of event names the channel forwards
// verbatim to the dispatcher, independent of the change/snapshot
// callbacks that also receive a subset of them.
var forwardedEvents = map[string]bool{
	"snapshot":                       true,
	"app:modules:parameters:change":  true,
	"modules:parameters:change":      true,
	"parameters:change":              true,
	"app:module:task:created":        true,
	"app:module:task:status:changed": true,
	"app:module:task:completed":      true,
}

// changeEvents is the subset of forwardedEvents that carry a
// parameter-change payload (the three change-event aliases).
var changeEvents = map[string]bool{
	"app:modules:parameters:change": true,
	"modules:parameters:change":     true,
	"parameters:change":             true,
}

// subscribePayload is one frame of the four-frame subscribe contract.
type subscribePayload struct {
	Modules []string `json:"modules,omitempty"`
	DevIDs  []string `json:"devids,omitempty"`
	GroupID *int     `json:"group_id,omitempty"`
}

// subscribeFrames builds the four frames emitted by Subscribe/Resubscribe:
// the two listen events, each in both the "modules" and "devids" payload
// shapes, with group_id attached when non-nil.
func subscribeFrames(devIDs []string, groupID *int) []struct {
	Event   string
	Payload subscribePayload
} {
	base := subscribePayload{Modules: devIDs, GroupID: groupID}
	alt := subscribePayload{DevIDs: devIDs, GroupID: groupID}

	events := []string{"app:modules:parameters:listen", "app:modules:activity:quantity:listen"}
	frames := make([]struct {
		Event   string
		Payload subscribePayload
	}, 0, len(events)*2)
	for _, ev := range events {
		frames = append(frames, struct {
			Event   string
			Payload subscribePayload
		}{ev, base})
		frames = append(frames, struct {
			Event   string
			Payload subscribePayload
		}{ev, alt})
	}
	return frames
}
