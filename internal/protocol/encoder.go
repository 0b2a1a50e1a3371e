// Package protocol encodes the control-channel JSON messages the upstream
// tick stream expects for subscribe/unsubscribe/mode-change requests.
package protocol

import (
	"encoding/json"

	"github.com/brokerfeed/tickstream/internal/codec"
)

// Action is the control-message verb.
type Action string

const (
	ActionSubscribe   Action = "subscribe"
	ActionUnsubscribe Action = "unsubscribe"
	ActionMode        Action = "mode"
)

// request is the wire shape of every control frame: {"a": action, "v": value}.
type request struct {
	Action Action `json:"a"`
	Value  any    `json:"v"`
}

// EncodeSubscribe builds the JSON control frame that subscribes to the given
// tokens at their default mode.
func EncodeSubscribe(tokens []uint32) ([]byte, error) {
	return json.Marshal(request{Action: ActionSubscribe, Value: tokens})
}

// EncodeUnsubscribe builds the JSON control frame that unsubscribes the
// given tokens.
func EncodeUnsubscribe(tokens []uint32) ([]byte, error) {
	return json.Marshal(request{Action: ActionUnsubscribe, Value: tokens})
}

// EncodeMode builds the JSON control frame that sets mode for the given
// tokens. The value is the pair [mode_string, [tokens...]]. A subscribe
// request must precede any mode request for a token that hasn't already
// been subscribed; this encoder does not enforce that ordering itself,
// callers (internal/worker) issue subscribe before mode.
func EncodeMode(mode codec.Mode, tokens []uint32) ([]byte, error) {
	return json.Marshal(request{Action: ActionMode, Value: []any{mode, tokens}})
}
