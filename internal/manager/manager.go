// Package manager implements the Single-Credential Manager (C5): a fixed
// pool of Connection Workers sharing one credential, the authoritative
// PlacementMap mapping instrument tokens to connections, and least-loaded
// placement with a deterministic tie-break.
package manager

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/brokerfeed/tickstream/internal/apperror"
	"github.com/brokerfeed/tickstream/internal/broadcast"
	"github.com/brokerfeed/tickstream/internal/codec"
	"github.com/brokerfeed/tickstream/internal/config"
	"github.com/brokerfeed/tickstream/internal/logger"
	"github.com/brokerfeed/tickstream/internal/stats"
	"github.com/brokerfeed/tickstream/internal/worker"
)

// Manager owns every ConnectionWorker for one credential. Its PlacementMap
// is the only cross-task mutable structure inside a credential; everything
// else is handed off to workers over channels.
type Manager struct {
	streamCfg config.StreamConfig
	cred      config.Credential
	log       logger.LoggerInterface

	workers []*worker.Worker

	mu        sync.RWMutex
	placement map[uint32]int
}

// New builds a Manager and its fixed pool of idle Connection Workers; it
// does not open any connection.
func New(cfg *config.Config, cred config.Credential, log logger.LoggerInterface) (*Manager, error) {
	n := cfg.Stream.MaxConnections
	workers := make([]*worker.Worker, n)
	for i := 0; i < n; i++ {
		wsURL, err := buildURL(cfg.Stream.BaseURL, cred)
		if err != nil {
			return nil, fmt.Errorf("manager: build url for credential %s: %w", cred.ID, err)
		}

		wcfg := worker.Config{
			ConnectionID:            i,
			CredentialID:            cred.ID,
			URL:                     wsURL,
			MaxSymbolsPerConnection: cfg.Stream.MaxSymbolsPerConnection,
			ParsedBufferSize:        cfg.Stream.ConnectionBufferSize,
			RawBufferSize:           cfg.Stream.RawBufferSize,
			ParserBufferSize:        cfg.Stream.ParserBufferSize,
			ControlQueueSize:        cfg.Stream.ControlQueueSize,
			ConnectionTimeout:       cfg.Stream.ConnectionTimeout,
			StopGrace:               cfg.Stream.StopGrace,
			KeepaliveInterval:       cfg.Stream.KeepaliveInterval,
			UnhealthyAfter:          cfg.Stream.UnhealthyAfter,
			ReconnectDelayInitial:   cfg.Stream.ReconnectDelayInitial,
			ReconnectDelayMax:       cfg.Stream.ReconnectDelayMax,
			MaxReconnectAttempts:    cfg.Stream.MaxReconnectAttempts,
			EnableDedicatedParser:   cfg.Stream.EnableDedicatedParser,
			DefaultMode:             codec.Mode(cfg.Stream.DefaultMode),
			RawOnly:                 cfg.Stream.RawOnly,
		}

		w, err := worker.New(wcfg, log)
		if err != nil {
			return nil, fmt.Errorf("manager: create worker %d for credential %s: %w", i, cred.ID, err)
		}
		workers[i] = w
	}

	return &Manager{
		streamCfg: cfg.Stream,
		cred:      cred,
		log:       log,
		workers:   workers,
		placement: make(map[uint32]int),
	}, nil
}

func buildURL(base string, cred config.Credential) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("api_key", cred.APIKey)
	q.Set("access_token", cred.AccessToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Start opens every worker in parallel and waits for all of them to reach
// Open or report a non-recoverable error.
func (m *Manager) Start(ctx context.Context) error {
	errs := make([]error, len(m.workers))
	var wg sync.WaitGroup
	for i, w := range m.workers {
		wg.Add(1)
		go func(i int, w *worker.Worker) {
			defer wg.Done()
			errs[i] = w.Start(ctx)
		}(i, w)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("manager: worker %d failed to start: %w", i, err)
		}
	}
	return nil
}

// Stop drains every worker, bounded by the configured stop grace.
func (m *Manager) Stop(ctx context.Context) error {
	stopCtx := ctx
	if m.streamCfg.StopGrace > 0 {
		var cancel context.CancelFunc
		stopCtx, cancel = context.WithTimeout(ctx, m.streamCfg.StopGrace)
		defer cancel()
	}

	var wg sync.WaitGroup
	for _, w := range m.workers {
		wg.Add(1)
		go func(w *worker.Worker) {
			defer wg.Done()
			w.Stop(stopCtx)
		}(w)
	}
	wg.Wait()
	return nil
}

// Subscribe places tokens not already in the PlacementMap onto the
// least-loaded worker with capacity, ties broken by the lowest
// ConnectionId. The placement decision for the whole call is computed
// before anything is committed: if any token cannot be placed, the
// PlacementMap is left unchanged and a Capacity error is returned.
func (m *Manager) Subscribe(tokens []uint32, mode codec.Mode) error {
	m.mu.Lock()

	seen := make(map[uint32]struct{}, len(tokens))
	toPlace := make([]uint32, 0, len(tokens))
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, already := m.placement[t]; !already {
			toPlace = append(toPlace, t)
		}
	}
	if len(toPlace) == 0 {
		m.mu.Unlock()
		return nil
	}

	capacity := m.streamCfg.MaxSymbolsPerConnection
	counts := make([]int, len(m.workers))
	for _, idx := range m.placement {
		counts[idx]++
	}

	assignment := make(map[uint32]int, len(toPlace))
	for _, tok := range toPlace {
		best := -1
		for i := range m.workers {
			if counts[i] >= capacity {
				continue
			}
			if best == -1 || counts[i] < counts[best] {
				best = i
			}
		}
		if best == -1 {
			m.mu.Unlock()
			return apperror.New(apperror.CodeCapacity,
				apperror.WithMessage(fmt.Sprintf(
					"no connection has capacity for token %d (%d of %d requested tokens unplaced)",
					tok, len(toPlace)-len(assignment), len(toPlace))))
		}
		assignment[tok] = best
		counts[best]++
	}

	byWorker := make(map[int][]uint32, len(m.workers))
	for tok, idx := range assignment {
		m.placement[tok] = idx
		byWorker[idx] = append(byWorker[idx], tok)
	}
	m.mu.Unlock()

	for idx, toks := range byWorker {
		if err := m.workers[idx].Add(toks, mode); err != nil {
			return err
		}
	}
	return nil
}

// Unsubscribe removes tokens from the PlacementMap, ignoring tokens not
// currently placed, and instructs each affected worker to drop them.
func (m *Manager) Unsubscribe(tokens []uint32) error {
	m.mu.Lock()
	byWorker := make(map[int][]uint32)
	for _, t := range tokens {
		idx, ok := m.placement[t]
		if !ok {
			continue
		}
		delete(m.placement, t)
		byWorker[idx] = append(byWorker[idx], t)
	}
	m.mu.Unlock()

	for idx, toks := range byWorker {
		if err := m.workers[idx].Remove(toks); err != nil {
			return err
		}
	}
	return nil
}

// ChangeMode updates the mode for already-placed tokens, grouped by their
// current connection. Tokens not currently placed are ignored.
func (m *Manager) ChangeMode(tokens []uint32, mode codec.Mode) error {
	m.mu.RLock()
	byWorker := make(map[int][]uint32)
	for _, t := range tokens {
		idx, ok := m.placement[t]
		if !ok {
			continue
		}
		byWorker[idx] = append(byWorker[idx], t)
	}
	m.mu.RUnlock()

	for idx, toks := range byWorker {
		if err := m.workers[idx].ChangeMode(toks, mode); err != nil {
			return err
		}
	}
	return nil
}

// Channel returns a subscription over one connection's parsed broadcast.
func (m *Manager) Channel(id int) (*broadcast.Subscription[worker.ParsedItem], error) {
	if id < 0 || id >= len(m.workers) {
		return nil, fmt.Errorf("manager: invalid connection id %d", id)
	}
	return m.workers[id].ParsedBroadcast().Subscribe(), nil
}

// AllChannels returns one subscription per connection's parsed broadcast.
func (m *Manager) AllChannels() []*broadcast.Subscription[worker.ParsedItem] {
	subs := make([]*broadcast.Subscription[worker.ParsedItem], len(m.workers))
	for i, w := range m.workers {
		subs[i] = w.ParsedBroadcast().Subscribe()
	}
	return subs
}

// RawChannel returns a subscription over one connection's raw broadcast.
func (m *Manager) RawChannel(id int) (*broadcast.Subscription[*codec.RawFrame], error) {
	if id < 0 || id >= len(m.workers) {
		return nil, fmt.Errorf("manager: invalid connection id %d", id)
	}
	return m.workers[id].RawBroadcast().Subscribe(), nil
}

// SymbolDistribution returns a snapshot of the PlacementMap grouped by
// ConnectionId, each group's tokens sorted for reproducible output.
func (m *Manager) SymbolDistribution() map[int][]uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dist := make(map[int][]uint32, len(m.workers))
	for tok, idx := range m.placement {
		dist[idx] = append(dist[idx], tok)
	}
	for _, toks := range dist {
		sort.Slice(toks, func(i, j int) bool { return toks[i] < toks[j] })
	}
	return dist
}

// Stats aggregates every worker's counters and health into one view.
func (m *Manager) Stats() stats.Aggregate {
	conns := make([]*stats.Connection, len(m.workers))
	for i, w := range m.workers {
		conns[i] = w.Stats()
	}
	threshold := m.streamCfg.KeepaliveInterval * time.Duration(m.streamCfg.UnhealthyAfter)
	if threshold <= 0 {
		threshold = 15 * time.Second
	}
	return stats.AggregateSnapshots(time.Now(), threshold, conns)
}

// Health reports whether every worker is currently healthy.
func (m *Manager) Health() bool {
	agg := m.Stats()
	return agg.TotalConnections > 0 && agg.HealthyConnections == agg.TotalConnections
}

// CredentialID returns the credential this Manager was built for.
func (m *Manager) CredentialID() string { return m.cred.ID }

// ConnectionCount returns the fixed number of workers this Manager owns.
func (m *Manager) ConnectionCount() int { return len(m.workers) }
