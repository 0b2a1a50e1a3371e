// Package worker implements the Connection Worker (C3): one upstream
// WebSocket session, its reader/writer tasks, keepalive-driven reconnect,
// and its parsed/raw broadcast outputs. It also implements the optional
// dedicated parser task (C4) in parser.go.
package worker

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/brokerfeed/tickstream/internal/apperror"
	"github.com/brokerfeed/tickstream/internal/broadcast"
	"github.com/brokerfeed/tickstream/internal/codec"
	"github.com/brokerfeed/tickstream/internal/logger"
	"github.com/brokerfeed/tickstream/internal/protocol"
	"github.com/brokerfeed/tickstream/internal/ratelimit"
	"github.com/brokerfeed/tickstream/internal/stats"
	"github.com/brokerfeed/tickstream/internal/wsconn"
)

// Config configures one Connection Worker.
type Config struct {
	ConnectionID int
	CredentialID string
	URL          string

	MaxSymbolsPerConnection int
	ParsedBufferSize        int
	RawBufferSize           int
	ParserBufferSize        int
	ControlQueueSize        int

	ConnectionTimeout     time.Duration
	StopGrace             time.Duration
	KeepaliveInterval     time.Duration
	UnhealthyAfter        int
	ReconnectDelayInitial time.Duration
	ReconnectDelayMax     time.Duration
	MaxReconnectAttempts  int

	EnableDedicatedParser bool
	DefaultMode           codec.Mode
	RawOnly               bool

	// ControlRatePerMinute bounds how fast the writer task drains the
	// control queue onto the wire; it does not bound enqueue throughput.
	ControlRatePerMinute int
}

// ParsedItem is the tagged variant delivered on a worker's parsed
// broadcast: exactly one of its fields is meaningful per item.
type ParsedItem struct {
	Ticks   []codec.Tick
	Err     *codec.DecodeError
	Closing string
	Text    []byte
}

type controlKind int

const (
	ctrlSubscribe controlKind = iota
	ctrlUnsubscribe
	ctrlMode
)

type controlMsg struct {
	kind   controlKind
	tokens []uint32
	mode   codec.Mode
}

// Worker owns one upstream WebSocket session and the tasks cooperating
// around it. Workers never hold a reference back to the Manager that
// created them; they communicate upward only through ParsedBroadcast,
// RawBroadcast, and Stats.
type Worker struct {
	cfg Config
	log logger.LoggerInterface

	conn *wsconn.Client

	stat *stats.Connection

	parsed *broadcast.Broadcaster[ParsedItem]
	raw    *broadcast.Broadcaster[*codec.RawFrame]

	controlCh   chan controlMsg
	parserQueue chan *codec.RawFrame
	limiter     *ratelimit.Limiter
	breaker     *gobreaker.CircuitBreaker[struct{}]

	subsMu sync.Mutex
	subs   map[uint32]codec.Mode

	everConnected atomic.Bool
	terminalOnce  sync.Once
	closeOnce     sync.Once
	stopCh        chan struct{}
}

// New builds a Worker in state Idle. It does not open a connection.
func New(cfg Config, log logger.LoggerInterface) (*Worker, error) {
	conn, err := wsconn.New(wsconn.Config{
		URL:            cfg.URL,
		Name:           workerName(cfg),
		InitialBackoff: cfg.ReconnectDelayInitial,
		MaxBackoff:     cfg.ReconnectDelayMax,
		MaxReconnects:  cfg.MaxReconnectAttempts,
		PingInterval:   cfg.KeepaliveInterval,
		ReadTimeout:    0,
		WriteTimeout:   cfg.ConnectionTimeout,
		BufferSize:     cfg.ParsedBufferSize,
		MaxMessageSize: 10 * 1024 * 1024,
	})
	if err != nil {
		return nil, err
	}

	rate := cfg.ControlRatePerMinute
	if rate <= 0 {
		rate = 600
	}

	w := &Worker{
		cfg:         cfg,
		log:         log,
		conn:        conn,
		stat:        stats.NewConnection(),
		parsed:      broadcast.New[ParsedItem](cfg.ParsedBufferSize),
		raw:         broadcast.New[*codec.RawFrame](cfg.RawBufferSize),
		controlCh:   make(chan controlMsg, cfg.ControlQueueSize),
		parserQueue: make(chan *codec.RawFrame, cfg.ParserBufferSize),
		limiter:     ratelimit.New(rate),
		subs:        make(map[uint32]codec.Mode),
		stopCh:      make(chan struct{}),
	}

	breakerSettings := gobreaker.Settings{
		Name:        workerName(cfg),
		MaxRequests: 1,
		Timeout:     cfg.ReconnectDelayMax,
		OnStateChange: func(name string, from, to gobreaker.State) {
			w.log.Warn(context.Background(), "connection circuit breaker state change",
				"worker", name, "from", from.String(), "to", to.String())
		},
	}
	w.breaker = gobreaker.NewCircuitBreaker[struct{}](breakerSettings)

	conn.OnMessage(w.handleMessage)
	conn.OnStateChange(w.handleStateChange)

	return w, nil
}

func workerName(cfg Config) string {
	return cfg.CredentialID + "/" + strconv.Itoa(cfg.ConnectionID)
}

// Start dials upstream through the circuit breaker and starts the writer
// and, if enabled, the parser task. Only this initial dial runs inside the
// breaker, which uses gobreaker's default trip rule (more than 5
// consecutive failures); the transport's own reconnect loop does not pass
// through it. It returns once the connection reaches Open or a
// non-recoverable error occurs.
func (w *Worker) Start(ctx context.Context) error {
	w.stat.SetState(stats.StateConnecting)

	connectCtx := ctx
	var cancel context.CancelFunc
	if w.cfg.ConnectionTimeout > 0 {
		connectCtx, cancel = context.WithTimeout(ctx, w.cfg.ConnectionTimeout)
		defer cancel()
	}

	_, err := w.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, w.conn.ConnectWithRetry(connectCtx)
	})
	if err != nil {
		w.stat.SetState(stats.StateClosed)
		return err
	}

	go w.writerTask(ctx)
	if w.cfg.EnableDedicatedParser {
		go w.parserTask(ctx)
	}

	return nil
}

// Stop transitions the worker to Draining, waits for the connection to
// close until ctx is done (the Manager bounds ctx by StopGrace), then
// releases the broadcasts.
func (w *Worker) Stop(ctx context.Context) error {
	var err error
	w.closeOnce.Do(func() {
		w.stat.SetState(stats.StateDraining)
		close(w.stopCh)
		done := make(chan error, 1)
		go func() { done <- w.conn.Close() }()
		select {
		case err = <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		w.stat.SetState(stats.StateClosed)
		w.parsed.Close()
		w.raw.Close()
	})
	return err
}

// Add appends tokens to the local Subscription set and enqueues the
// matching control traffic: a subscribe message always, plus a mode
// message when mode is not the connection's default mode.
func (w *Worker) Add(tokens []uint32, mode codec.Mode) error {
	w.subsMu.Lock()
	for _, t := range tokens {
		w.subs[t] = mode
	}
	w.subsMu.Unlock()

	if err := w.enqueue(controlMsg{kind: ctrlSubscribe, tokens: tokens}); err != nil {
		return err
	}
	if mode != w.cfg.DefaultMode {
		return w.enqueue(controlMsg{kind: ctrlMode, tokens: tokens, mode: mode})
	}
	return nil
}

// Remove deletes tokens from the local Subscription set and enqueues an
// unsubscribe control message.
func (w *Worker) Remove(tokens []uint32) error {
	w.subsMu.Lock()
	for _, t := range tokens {
		delete(w.subs, t)
	}
	w.subsMu.Unlock()

	return w.enqueue(controlMsg{kind: ctrlUnsubscribe, tokens: tokens})
}

// ChangeMode updates the local mode for tokens and enqueues a mode control
// message.
func (w *Worker) ChangeMode(tokens []uint32, mode codec.Mode) error {
	w.subsMu.Lock()
	for _, t := range tokens {
		w.subs[t] = mode
	}
	w.subsMu.Unlock()

	return w.enqueue(controlMsg{kind: ctrlMode, tokens: tokens, mode: mode})
}

// SubscriptionCount reports the size of this worker's local Subscription
// set. The Manager's least-loaded placement counts from its own placement
// map, not from this method.
func (w *Worker) SubscriptionCount() int {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	return len(w.subs)
}

// Stats returns the worker's counter handle.
func (w *Worker) Stats() *stats.Connection { return w.stat }

// ParsedBroadcast exposes the parsed-tick output stream.
func (w *Worker) ParsedBroadcast() *broadcast.Broadcaster[ParsedItem] { return w.parsed }

// RawBroadcast exposes the raw-frame output stream.
func (w *Worker) RawBroadcast() *broadcast.Broadcaster[*codec.RawFrame] { return w.raw }

// enqueue appends to the bounded control queue without blocking. A full
// queue fails fast with WorkerBusy rather than stalling the caller.
func (w *Worker) enqueue(cm controlMsg) error {
	select {
	case w.controlCh <- cm:
		return nil
	default:
		return apperror.New(apperror.CodeWorkerBusy,
			apperror.WithMessage("control queue full"))
	}
}

// writerTask drains the control queue onto the wire, rate-limited so a
// burst of subscribe calls cannot overrun the upstream's own request
// budget.
func (w *Worker) writerTask(ctx context.Context) {
	for {
		select {
		case <-w.stopCh:
			return
		case cm := <-w.controlCh:
			if err := w.limiter.Wait(ctx); err != nil {
				return
			}
			data, err := encodeControl(cm)
			if err != nil {
				w.log.Error(ctx, "failed to encode control message", "error", err)
				continue
			}
			if err := w.conn.Send(ctx, data); err != nil {
				w.log.Warn(ctx, "failed to send control message", "error", err)
			}
		}
	}
}

func encodeControl(cm controlMsg) ([]byte, error) {
	switch cm.kind {
	case ctrlSubscribe:
		return protocol.EncodeSubscribe(cm.tokens)
	case ctrlUnsubscribe:
		return protocol.EncodeUnsubscribe(cm.tokens)
	default:
		return protocol.EncodeMode(cm.mode, cm.tokens)
	}
}

// handleMessage is wsconn's MessageHandler. Text frames are forwarded
// unprocessed as Text items; binary frames are routed to the raw
// broadcast and, unless raw_only, decoded either inline or via the
// dedicated parser task.
func (w *Worker) handleMessage(ctx context.Context, msg wsconn.Message) {
	w.stat.AddFrame(1)
	w.stat.AddBytes(len(msg.Data))

	if msg.Kind == wsconn.MessageKindText {
		raw, err := protocol.DecodeText(msg.Data)
		if err != nil {
			return
		}
		w.stat.AddDropped(w.parsed.Publish(ParsedItem{Text: raw}))
		return
	}

	// frame starts with refcount 1, owned by whichever path below ends up
	// decoding it. The raw broadcast gets its own retained reference,
	// independent of and outliving the decode path's.
	frame := codec.NewRawFrame(msg.Data)
	w.stat.AddDropped(w.raw.Publish(frame.Retain()))

	if w.cfg.RawOnly {
		frame.Release()
		return
	}

	if w.cfg.EnableDedicatedParser {
		select {
		case w.parserQueue <- frame:
		default:
			select {
			case evicted := <-w.parserQueue:
				w.stat.AddError(1)
				evicted.Release()
			default:
			}
			select {
			case w.parserQueue <- frame:
			default:
				w.stat.AddError(1)
				frame.Release()
			}
		}
		return
	}

	w.decodeAndPublish(frame.Bytes())
	frame.Release()
}

func (w *Worker) decodeAndPublish(data []byte) {
	items := codec.DecodeFrame(data)
	var ticks []codec.Tick
	for _, it := range items {
		if it.Err != nil {
			w.stat.AddError(1)
			w.stat.AddDropped(w.parsed.Publish(ParsedItem{Err: it.Err}))
			continue
		}
		w.stat.AddPacket(1)
		ticks = append(ticks, *it.Tick)
	}
	if len(ticks) > 0 {
		w.stat.AddDropped(w.parsed.Publish(ParsedItem{Ticks: ticks}))
	}
}

// handleStateChange is wsconn's StateChangeHandler. It translates the
// transport's own state into the worker's lifecycle Stats state and
// triggers resubscription when a reconnect succeeds.
func (w *Worker) handleStateChange(state wsconn.State, err error) {
	ctx := context.Background()
	switch state {
	case wsconn.StateConnecting:
		w.stat.SetState(stats.StateConnecting)
	case wsconn.StateConnected:
		wasReconnect := w.everConnected.Swap(true)
		w.stat.SetState(stats.StateOpen)
		w.stat.Touch()
		if wasReconnect {
			w.replaySubscriptions(ctx)
		}
	case wsconn.StateReconnecting:
		w.stat.SetState(stats.StateReconnecting)
	case wsconn.StateDisconnected:
		w.stat.SetState(stats.StateClosed)
		// The transport reports transient dial failures and the terminal
		// reconnect-exhaustion condition through the same state; only the
		// latter carries an error. The terminal item is delivered at most
		// once, after which the parsed broadcast is closed.
		if err != nil {
			w.terminalOnce.Do(func() {
				w.stat.AddDropped(w.parsed.Publish(ParsedItem{Closing: "terminal disconnect: reconnect attempts exhausted"}))
				w.parsed.Close()
			})
		}
	case wsconn.StateClosed:
		w.stat.SetState(stats.StateClosed)
	}
}

// replaySubscriptions re-emits the entire current Subscription set so
// upstream state is restored after a reconnect, grouped by mode so each
// mode is confirmed with a single control message.
func (w *Worker) replaySubscriptions(ctx context.Context) {
	w.subsMu.Lock()
	byMode := make(map[codec.Mode][]uint32, 3)
	for token, mode := range w.subs {
		byMode[mode] = append(byMode[mode], token)
	}
	w.subsMu.Unlock()

	var all []uint32
	for _, tokens := range byMode {
		all = append(all, tokens...)
	}
	if len(all) == 0 {
		return
	}

	if err := w.enqueue(controlMsg{kind: ctrlSubscribe, tokens: all}); err != nil {
		w.log.Warn(ctx, "failed to enqueue resubscribe after reconnect", "error", err)
		return
	}
	for mode, tokens := range byMode {
		if mode == w.cfg.DefaultMode {
			continue
		}
		if err := w.enqueue(controlMsg{kind: ctrlMode, tokens: tokens, mode: mode}); err != nil {
			w.log.Warn(ctx, "failed to enqueue mode resubscribe after reconnect", "error", err)
		}
	}
}
