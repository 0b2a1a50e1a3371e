package protocol

import "encoding/json"

// DecodeText validates a non-tick server text frame for downstream Text
// items, verifying it is well-formed JSON without imposing any schema on it
// (the upstream's non-tick messages are not enumerated by the wire
// protocol).
func DecodeText(raw []byte) (json.RawMessage, error) {
	var v json.RawMessage
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
