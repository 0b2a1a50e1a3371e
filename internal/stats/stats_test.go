package stats

import (
	"testing"
	"time"
)

func TestConnectionCounters(t *testing.T) {
	c := NewConnection()
	c.AddFrame(1)
	c.AddPacket(3)
	c.AddError(1)
	c.AddBytes(128)
	c.AddDropped(2)

	snap := c.Snapshot()
	if snap.Frames != 1 || snap.Packets != 3 || snap.Errors != 1 || snap.Bytes != 128 || snap.Dropped != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestHealthyRequiresOpenAndRecentActivity(t *testing.T) {
	c := NewConnection()
	now := time.Now()

	if c.Healthy(now, time.Second) {
		t.Fatal("idle connection with no activity must not be healthy")
	}

	c.SetState(StateOpen)
	c.Touch()
	if !c.Healthy(time.Now(), time.Minute) {
		t.Fatal("open connection with recent activity should be healthy")
	}
}

func TestHealthyFalseWhenStale(t *testing.T) {
	c := NewConnection()
	c.SetState(StateOpen)
	c.Touch()

	future := time.Now().Add(time.Hour)
	if c.Healthy(future, time.Second) {
		t.Fatal("stale connection should not be healthy")
	}
}

func TestAggregateSnapshots(t *testing.T) {
	c1 := NewConnection()
	c1.SetState(StateOpen)
	c1.AddFrame(1)
	c1.Touch()

	c2 := NewConnection()
	c2.SetState(StateReconnecting)
	c2.AddFrame(1)

	agg := AggregateSnapshots(time.Now(), time.Minute, []*Connection{c1, c2})
	if agg.TotalConnections != 2 {
		t.Fatalf("want 2 total, got %d", agg.TotalConnections)
	}
	if agg.HealthyConnections != 1 {
		t.Fatalf("want 1 healthy, got %d", agg.HealthyConnections)
	}
	if agg.Frames != 2 {
		t.Fatalf("want 2 frames summed, got %d", agg.Frames)
	}
}
