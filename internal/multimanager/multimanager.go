// Package multimanager implements the Multi-Credential Manager (C6):
// federation of one Single-Credential Manager per credential, a
// distribution strategy (RoundRobin or Manual) for auto-placement across
// credentials, and a unified tagged output channel.
package multimanager

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/brokerfeed/tickstream/internal/apperror"
	"github.com/brokerfeed/tickstream/internal/broadcast"
	"github.com/brokerfeed/tickstream/internal/codec"
	"github.com/brokerfeed/tickstream/internal/config"
	"github.com/brokerfeed/tickstream/internal/logger"
	"github.com/brokerfeed/tickstream/internal/manager"
	"github.com/brokerfeed/tickstream/internal/stats"
	"github.com/brokerfeed/tickstream/internal/worker"
)

// TaggedItem pairs a ParsedItem with the credential whose connection
// produced it, the unit of delivery on the unified channel.
type TaggedItem struct {
	CredentialID string
	Item         worker.ParsedItem
}

// Manager federates N Single-Credential Managers behind one distribution
// strategy and one unified output channel.
type Manager struct {
	strategy config.Strategy
	log      logger.LoggerInterface

	order    []string
	managers map[string]*manager.Manager

	unified        *broadcast.Broadcaster[TaggedItem]
	unifiedDropped atomic.Int64

	mu          sync.Mutex
	rrIndex     int
	symbolOwner map[uint32]string

	forwarderWG sync.WaitGroup
	stopCh      chan struct{}
}

// New builds a Manager with one Single-Credential Manager per configured
// credential. It does not open any connection.
func New(cfg *config.Config, log logger.LoggerInterface) (*Manager, error) {
	if len(cfg.Stream.Credentials) == 0 {
		return nil, fmt.Errorf("multimanager: no credentials configured")
	}

	m := &Manager{
		strategy:    cfg.Stream.Strategy,
		log:         log,
		order:       make([]string, 0, len(cfg.Stream.Credentials)),
		managers:    make(map[string]*manager.Manager, len(cfg.Stream.Credentials)),
		unified:     broadcast.New[TaggedItem](cfg.Stream.ConnectionBufferSize),
		symbolOwner: make(map[uint32]string),
		stopCh:      make(chan struct{}),
	}

	for _, cred := range cfg.Stream.Credentials {
		mgr, err := manager.New(cfg, cred, log)
		if err != nil {
			return nil, fmt.Errorf("multimanager: credential %s: %w", cred.ID, err)
		}
		m.order = append(m.order, cred.ID)
		m.managers[cred.ID] = mgr
	}

	return m, nil
}

// Start opens every credential's connections in parallel, then launches one
// forwarder per (credential, connection) feeding the unified channel.
func (m *Manager) Start(ctx context.Context) error {
	errs := make(map[string]error, len(m.order))
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, credID := range m.order {
		wg.Add(1)
		go func(credID string) {
			defer wg.Done()
			err := m.managers[credID].Start(ctx)
			mu.Lock()
			errs[credID] = err
			mu.Unlock()
		}(credID)
	}
	wg.Wait()

	for credID, err := range errs {
		if err != nil {
			return fmt.Errorf("multimanager: credential %s failed to start: %w", credID, err)
		}
	}

	for _, credID := range m.order {
		mgr := m.managers[credID]
		for i := 0; i < mgr.ConnectionCount(); i++ {
			sub, err := mgr.Channel(i)
			if err != nil {
				return err
			}
			m.forwarderWG.Add(1)
			go m.forward(credID, sub)
		}
	}

	return nil
}

// forward relays one connection's parsed broadcast onto the unified
// channel, tagging every item with its owning credential. A slow unified
// consumer only drops at the unified channel's own boundary, counted in the
// aggregate dropped stat; it never back-pressures the upstream connection,
// since Publish never blocks.
func (m *Manager) forward(credID string, sub *broadcast.Subscription[worker.ParsedItem]) {
	defer m.forwarderWG.Done()
	defer sub.Close()
	for {
		select {
		case <-m.stopCh:
			return
		case item, ok := <-sub.C():
			if !ok {
				return
			}
			m.unifiedDropped.Add(int64(m.unified.Publish(TaggedItem{CredentialID: credID, Item: item})))
		}
	}
}

// Stop stops every forwarder then drains every credential's Manager.
func (m *Manager) Stop(ctx context.Context) error {
	close(m.stopCh)
	m.forwarderWG.Wait()
	m.unified.Close()

	var firstErr error
	for _, credID := range m.order {
		if err := m.managers[credID].Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Subscribe auto-distributes tokens across credentials per the configured
// strategy. Under Manual it is rejected; callers must name a credential via
// SubscribeTo.
func (m *Manager) Subscribe(tokens []uint32, mode codec.Mode) error {
	if m.strategy == config.StrategyManual {
		return apperror.New(apperror.CodeStrategyRequiresExplicit,
			apperror.WithMessage("manual distribution strategy requires SubscribeTo(credentialId, tokens, mode)"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.order)
	for _, tok := range tokens {
		if _, owned := m.symbolOwner[tok]; owned {
			continue
		}

		placed := false
		for attempt := 0; attempt < n; attempt++ {
			credID := m.order[m.rrIndex%n]
			m.rrIndex++

			err := m.managers[credID].Subscribe([]uint32{tok}, mode)
			if err == nil {
				m.symbolOwner[tok] = credID
				placed = true
				break
			}
			if apperror.GetCode(err) != apperror.CodeCapacity {
				return err
			}
			// This credential is at capacity; try the next one.
		}
		if !placed {
			return apperror.New(apperror.CodeCapacity,
				apperror.WithMessage(fmt.Sprintf("no credential has capacity for token %d", tok)))
		}
	}
	return nil
}

// SubscribeTo places tokens on a named credential's Manager regardless of
// strategy, recording ownership for later routing.
func (m *Manager) SubscribeTo(credentialID string, tokens []uint32, mode codec.Mode) error {
	m.mu.Lock()
	mgr, ok := m.managers[credentialID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("multimanager: unknown credential %q", credentialID)
	}

	if err := mgr.Subscribe(tokens, mode); err != nil {
		return err
	}

	m.mu.Lock()
	for _, tok := range tokens {
		m.symbolOwner[tok] = credentialID
	}
	m.mu.Unlock()
	return nil
}

// Unsubscribe routes tokens to their owning credential using the global
// symbol-to-credential map, so callers need not name a credential.
func (m *Manager) Unsubscribe(tokens []uint32) error {
	m.mu.Lock()
	byCred := make(map[string][]uint32)
	for _, t := range tokens {
		credID, ok := m.symbolOwner[t]
		if !ok {
			continue
		}
		delete(m.symbolOwner, t)
		byCred[credID] = append(byCred[credID], t)
	}
	m.mu.Unlock()

	for credID, toks := range byCred {
		if err := m.managers[credID].Unsubscribe(toks); err != nil {
			return err
		}
	}
	return nil
}

// ChangeMode routes tokens to their owning credential's Manager.
func (m *Manager) ChangeMode(tokens []uint32, mode codec.Mode) error {
	m.mu.Lock()
	byCred := make(map[string][]uint32)
	for _, t := range tokens {
		credID, ok := m.symbolOwner[t]
		if !ok {
			continue
		}
		byCred[credID] = append(byCred[credID], t)
	}
	m.mu.Unlock()

	for credID, toks := range byCred {
		if err := m.managers[credID].ChangeMode(toks, mode); err != nil {
			return err
		}
	}
	return nil
}

// UnifiedChannel returns a subscription over the tagged (CredentialId,
// ParsedItem) output stream.
func (m *Manager) UnifiedChannel() *broadcast.Subscription[TaggedItem] {
	return m.unified.Subscribe()
}

// SymbolDistribution returns each credential's per-connection placement.
func (m *Manager) SymbolDistribution() map[string]map[int][]uint32 {
	dist := make(map[string]map[int][]uint32, len(m.order))
	for _, credID := range m.order {
		dist[credID] = m.managers[credID].SymbolDistribution()
	}
	return dist
}

// Stats aggregates counters and health across every credential.
func (m *Manager) Stats() stats.Aggregate {
	var agg stats.Aggregate
	for _, credID := range m.order {
		s := m.managers[credID].Stats()
		agg.TotalConnections += s.TotalConnections
		agg.HealthyConnections += s.HealthyConnections
		agg.Frames += s.Frames
		agg.Packets += s.Packets
		agg.Errors += s.Errors
		agg.Bytes += s.Bytes
		agg.Dropped += s.Dropped
	}
	agg.Dropped += m.unifiedDropped.Load()
	return agg
}

// Health reports whether every credential's every connection is healthy.
func (m *Manager) Health() bool {
	agg := m.Stats()
	return agg.TotalConnections > 0 && agg.HealthyConnections == agg.TotalConnections
}

// HealthByCredential reports each credential's own Health() independently,
// used by callers that want to surface per-credential connection status
// rather than one aggregate boolean.
func (m *Manager) HealthByCredential() map[string]bool {
	out := make(map[string]bool, len(m.order))
	for _, credID := range m.order {
		out[credID] = m.managers[credID].Health()
	}
	return out
}

// Credentials returns the configured credential IDs in their stable
// distribution order.
func (m *Manager) Credentials() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}
