// Package stats holds the atomic per-connection counters and derived
// health used throughout the tick-stream core, aggregated upward by
// Single- and Multi-Credential Managers.
package stats

import (
	"sync/atomic"
	"time"
)

// ConnState mirrors the Connection Worker's lifecycle state, duplicated
// here (rather than imported from internal/worker) so stats has no
// dependency on the worker package; only the worker depends on stats.
type ConnState int32

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateDraining
	StateReconnecting
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateDraining:
		return "draining"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection holds the monotone counters for one ConnectionWorker plus its
// last-activity timestamp and current state. All fields are updated via
// atomics from the reader/parser/writer tasks and read via Snapshot from
// any goroutine.
type Connection struct {
	frames   atomic.Int64
	packets  atomic.Int64
	errors   atomic.Int64
	bytes    atomic.Int64
	dropped  atomic.Int64
	state    atomic.Int32
	lastUnix atomic.Int64
}

// Snapshot is a read-only, race-free copy of a Connection's counters at one
// instant.
type Snapshot struct {
	Frames       int64
	Packets      int64
	Errors       int64
	Bytes        int64
	Dropped      int64
	State        ConnState
	LastActivity time.Time
}

// NewConnection returns a Connection in StateIdle with zeroed counters.
func NewConnection() *Connection {
	c := &Connection{}
	c.state.Store(int32(StateIdle))
	return c
}

func (c *Connection) AddFrame(n int)   { c.frames.Add(int64(n)); c.touch() }
func (c *Connection) AddPacket(n int)  { c.packets.Add(int64(n)) }
func (c *Connection) AddError(n int)   { c.errors.Add(int64(n)) }
func (c *Connection) AddBytes(n int)   { c.bytes.Add(int64(n)) }
func (c *Connection) AddDropped(n int) { c.dropped.Add(int64(n)) }

func (c *Connection) touch() {
	c.lastUnix.Store(nowUnixNano())
}

// Touch records activity (frame or pong) without changing any counter;
// used by the worker's keepalive handling.
func (c *Connection) Touch() { c.touch() }

// SetState updates the connection's lifecycle state.
func (c *Connection) SetState(s ConnState) {
	c.state.Store(int32(s))
}

// State returns the current lifecycle state.
func (c *Connection) State() ConnState {
	return ConnState(c.state.Load())
}

// Healthy reports whether the connection is Open and has had activity
// within threshold of now.
func (c *Connection) Healthy(now time.Time, threshold time.Duration) bool {
	if c.State() != StateOpen {
		return false
	}
	last := c.lastUnix.Load()
	if last == 0 {
		return false
	}
	return now.Sub(time.Unix(0, last)) <= threshold
}

// Snapshot returns a point-in-time copy of the connection's counters.
func (c *Connection) Snapshot() Snapshot {
	last := c.lastUnix.Load()
	var lastActivity time.Time
	if last != 0 {
		lastActivity = time.Unix(0, last)
	}
	return Snapshot{
		Frames:       c.frames.Load(),
		Packets:      c.packets.Load(),
		Errors:       c.errors.Load(),
		Bytes:        c.bytes.Load(),
		Dropped:      c.dropped.Load(),
		State:        c.State(),
		LastActivity: lastActivity,
	}
}

// Aggregate is the union view over a group of Connections: healthy/total
// counts plus summed counters.
type Aggregate struct {
	HealthyConnections int
	TotalConnections   int
	Frames             int64
	Packets            int64
	Errors             int64
	Bytes              int64
	Dropped            int64
}

// AggregateSnapshots folds a set of connection Snapshots into one Aggregate view,
// given the current time and health threshold used to decide healthiness.
func AggregateSnapshots(now time.Time, threshold time.Duration, conns []*Connection) Aggregate {
	agg := Aggregate{TotalConnections: len(conns)}
	for _, c := range conns {
		snap := c.Snapshot()
		agg.Frames += snap.Frames
		agg.Packets += snap.Packets
		agg.Errors += snap.Errors
		agg.Bytes += snap.Bytes
		agg.Dropped += snap.Dropped
		if c.Healthy(now, threshold) {
			agg.HealthyConnections++
		}
	}
	return agg
}

// nowUnixNano is split out so tests can be deterministic about touch()
// ordering without depending on wall-clock resolution; production always
// uses time.Now().
var nowUnixNano = func() int64 {
	return time.Now().UnixNano()
}
