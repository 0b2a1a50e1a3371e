package worker

import (
	"context"
)

// parserTask drains parserQueue on a goroutine separate from the reader, so
// a burst of decode-heavy Full packets never slows the socket read loop
// down enough to risk a keepalive timeout. Every frame taken off the queue
// is released exactly once, regardless of decode outcome.
func (w *Worker) parserTask(ctx context.Context) {
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case frame := <-w.parserQueue:
			w.decodeAndPublish(frame.Bytes())
			frame.Release()
		}
	}
}
