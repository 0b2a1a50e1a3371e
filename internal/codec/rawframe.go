package codec

import "sync/atomic"

// RawFrame is a reference-counted immutable byte buffer holding one
// complete upstream binary WebSocket frame. Its lifetime runs from receipt
// until every raw-tap subscriber has released it; the underlying bytes
// never change after NewRawFrame returns.
type RawFrame struct {
	data []byte
	refs *atomic.Int32
}

// NewRawFrame wraps b (which must not be mutated afterward by the caller)
// as a RawFrame with an initial reference count of one.
func NewRawFrame(b []byte) *RawFrame {
	refs := &atomic.Int32{}
	refs.Store(1)
	return &RawFrame{data: b, refs: refs}
}

// Bytes returns the borrowed, read-only frame bytes. The returned slice is
// valid only as long as the caller holds a reference.
func (f *RawFrame) Bytes() []byte { return f.data }

// Retain increments the reference count and returns the same frame, so
// callers can fan a single frame out to multiple subscribers without
// copying.
func (f *RawFrame) Retain() *RawFrame {
	f.refs.Add(1)
	return f
}

// Release decrements the reference count. It reports whether this call
// dropped the count to zero, i.e. whether the caller was the last holder.
// RawFrame carries no finalizer; reaching zero is informational for
// callers that want to recycle a backing buffer pool.
func (f *RawFrame) Release() bool {
	return f.refs.Add(-1) == 0
}

// RefCount reports the current reference count. Intended for tests and
// diagnostics, not for synchronization decisions.
func (f *RawFrame) RefCount() int32 {
	return f.refs.Load()
}
