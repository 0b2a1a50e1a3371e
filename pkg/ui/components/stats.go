// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds aggregate tick-stream counters for display.
type Stats struct {
	TotalConnections   int
	HealthyConnections int
	Frames             int64
	Packets            int64
	Bytes              int64
	Errors             int64
	Dropped            int64
}

// StatsComponent renders aggregate statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	errorsDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	if s.stats.Errors > 0 {
		errorsDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	}

	droppedDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Dropped))
	if s.stats.Dropped > 0 {
		droppedDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.Dropped))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Connections: %s/%s  │  Frames: %s  │  Packets: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.HealthyConnections)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.TotalConnections)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Frames)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Packets)),
		) +
		fmt.Sprintf("Bytes: %s  │  Errors: %s  │  Dropped: %s",
			valueStyle.Render(humanBytes(s.stats.Bytes)),
			errorsDisplay,
			droppedDisplay,
		)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}
