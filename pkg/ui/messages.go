// Package ui provides the Bubble Tea TUI for the tick-stream client.
package ui

import (
	"github.com/brokerfeed/tickstream/internal/stats"
)

// Message types for TUI updates.

// TickBatchMsg is sent when a batch of parsed ticks arrives on a connection.
type TickBatchMsg struct {
	CredentialID string
	TickCount    int
}

// StatsMsg carries a refreshed aggregate counters snapshot.
type StatsMsg struct {
	Aggregate stats.Aggregate
}

// ConnectionStatusMsg reports a credential's connection health. The demo
// CLI sends one per credential on every stats poll, whether or not the
// state changed.
type ConnectionStatusMsg struct {
	CredentialID string
	ConnectionID int
	Connected    bool
	State        string
}

// SymbolDistributionMsg carries a refreshed placement snapshot, tokens placed
// per credential.
type SymbolDistributionMsg struct {
	PerCredential map[string]int
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// WelcomeCompleteMsg signals the welcome screen is done (timeout or keypress).
type WelcomeCompleteMsg struct{}

// StartModulesMsg signals that the manager should start connecting.
type StartModulesMsg struct{}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // Current step name
	Status  string // "connecting", "connected", "failed"
	Message string // Optional message
}
