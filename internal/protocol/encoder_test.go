package protocol

import (
	"encoding/json"
	"testing"

	"github.com/brokerfeed/tickstream/internal/codec"
)

func TestEncodeSubscribe(t *testing.T) {
	b, err := EncodeSubscribe([]uint32{256265, 408065})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("not valid JSON: %v", err)
	}
	if got["a"] != "subscribe" {
		t.Errorf("want action subscribe, got %v", got["a"])
	}
	v, ok := got["v"].([]any)
	if !ok || len(v) != 2 {
		t.Fatalf("want a 2-element token array, got %v", got["v"])
	}
}

func TestEncodeMode(t *testing.T) {
	b, err := EncodeMode(codec.ModeFull, []uint32{256265})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got struct {
		A string `json:"a"`
		V []any  `json:"v"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("not valid JSON: %v", err)
	}
	if got.A != "mode" {
		t.Errorf("want action mode, got %q", got.A)
	}
	if len(got.V) != 2 || got.V[0] != "full" {
		t.Fatalf("want value pair [\"full\", tokens], got %v", got.V)
	}
}

func TestDecodeText(t *testing.T) {
	raw := []byte(`{"type":"order_update","data":{"status":"complete"}}`)
	msg, err := DecodeText(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg) == 0 {
		t.Fatal("want non-empty raw message")
	}
}

func TestDecodeText_Invalid(t *testing.T) {
	if _, err := DecodeText([]byte("not json")); err == nil {
		t.Fatal("want error for invalid JSON")
	}
}
