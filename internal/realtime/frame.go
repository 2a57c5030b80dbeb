// Package realtime manages the single duplex channel a signed-in user holds
// to the gateway: topic subscriptions as releasable leases, automatic
// replay after reconnect, and a fixed-delay reconnect loop that never
// escalates transport errors to callers.
package realtime

import "encoding/json"

// Frame is the JSON envelope exchanged on the websocket. The client sends
// subscribe/unsubscribe frames; the gateway sends message frames whose
// payload matches the topic's contract.
type Frame struct {
	Type    string          `json:"type"` // subscribe | unsubscribe | message
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	frameMessage     = "message"
)
