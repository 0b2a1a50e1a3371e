package multimanager

import (
	"io"
	"testing"
	"time"

	"github.com/brokerfeed/tickstream/internal/apperror"
	"github.com/brokerfeed/tickstream/internal/codec"
	"github.com/brokerfeed/tickstream/internal/config"
	"github.com/brokerfeed/tickstream/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "multimanager-test", nil)
}

func testConfig(strategy config.Strategy, maxSymbolsPerConnection int) *config.Config {
	return &config.Config{
		Stream: config.StreamConfig{
			BaseURL:                 "wss://example.invalid/ws",
			MaxConnections:          2,
			MaxSymbolsPerConnection: maxSymbolsPerConnection,
			ConnectionBufferSize:    16,
			RawBufferSize:           16,
			ParserBufferSize:        16,
			ControlQueueSize:        16,
			ConnectionTimeout:       time.Second,
			StopGrace:               time.Second,
			KeepaliveInterval:       5 * time.Second,
			UnhealthyAfter:          3,
			ReconnectDelayInitial:   10 * time.Millisecond,
			ReconnectDelayMax:       100 * time.Millisecond,
			MaxReconnectAttempts:    1,
			DefaultMode:             "ltp",
			Strategy:                strategy,
			Credentials: []config.Credential{
				{ID: "alpha", APIKey: "a-key", AccessToken: "a-token"},
				{ID: "beta", APIKey: "b-key", AccessToken: "b-token"},
			},
		},
	}
}

func TestRoundRobinDistributesAcrossCredentials(t *testing.T) {
	m, err := New(testConfig(config.StrategyRoundRobin, 3000), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := m.Subscribe([]uint32{1, 2, 3, 4}, codec.ModeLTP); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	dist := m.SymbolDistribution()
	alphaCount := countTokens(dist["alpha"])
	betaCount := countTokens(dist["beta"])
	if alphaCount+betaCount != 4 {
		t.Fatalf("want 4 tokens placed total, got alpha=%d beta=%d", alphaCount, betaCount)
	}
	if alphaCount != 2 || betaCount != 2 {
		t.Fatalf("want an even round-robin split, got alpha=%d beta=%d", alphaCount, betaCount)
	}
}

func countTokens(byConn map[int][]uint32) int {
	n := 0
	for _, toks := range byConn {
		n += len(toks)
	}
	return n
}

func TestManualStrategyRejectsGenericSubscribe(t *testing.T) {
	m, err := New(testConfig(config.StrategyManual, 3000), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = m.Subscribe([]uint32{1}, codec.ModeLTP)
	if err == nil {
		t.Fatal("expected StrategyRequiresExplicit error")
	}
	if apperror.GetCode(err) != apperror.CodeStrategyRequiresExplicit {
		t.Fatalf("want CodeStrategyRequiresExplicit, got %v", apperror.GetCode(err))
	}
}

func TestManualStrategySubscribeTo(t *testing.T) {
	m, err := New(testConfig(config.StrategyManual, 3000), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := m.SubscribeTo("beta", []uint32{42}, codec.ModeLTP); err != nil {
		t.Fatalf("SubscribeTo: %v", err)
	}

	dist := m.SymbolDistribution()
	if countTokens(dist["beta"]) != 1 {
		t.Fatalf("want token placed under beta, got %+v", dist)
	}
	if countTokens(dist["alpha"]) != 0 {
		t.Fatalf("want no token placed under alpha, got %+v", dist)
	}
}

func TestUnsubscribeRoutesWithoutNamingCredential(t *testing.T) {
	m, err := New(testConfig(config.StrategyRoundRobin, 3000), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := m.Subscribe([]uint32{7}, codec.ModeLTP); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := m.Unsubscribe([]uint32{7}); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	dist := m.SymbolDistribution()
	if countTokens(dist["alpha"])+countTokens(dist["beta"]) != 0 {
		t.Fatalf("token still placed after Unsubscribe: %+v", dist)
	}
}

func TestAutoDistributeCapacityExceededOnlyWhenAllCredentialsFull(t *testing.T) {
	m, err := New(testConfig(config.StrategyRoundRobin, 1), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Two credentials, cap 1 per connection, 2 connections per credential
	// -> 4 total slots. Fill all 4, then a 5th token must fail.
	if err := m.Subscribe([]uint32{1, 2, 3, 4}, codec.ModeLTP); err != nil {
		t.Fatalf("Subscribe first 4: %v", err)
	}

	err = m.Subscribe([]uint32{5}, codec.ModeLTP)
	if err == nil {
		t.Fatal("expected Capacity error once every credential is full")
	}
	if apperror.GetCode(err) != apperror.CodeCapacity {
		t.Fatalf("want CodeCapacity, got %v", apperror.GetCode(err))
	}
}
