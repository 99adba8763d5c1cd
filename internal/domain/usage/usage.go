// Package usage describes interpreter token consumption per calendar period.
package usage

import (
	"fmt"
	"strings"
	"time"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants. Periods follow UTC calendar boundaries.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod reads a period name. Empty means month.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodMonth, nil
	case PeriodDay, PeriodMonth:
		return p, nil
	default:
		return "", fmt.Errorf("period must be %q or %q, got %q", PeriodDay, PeriodMonth, s)
	}
}

// Bounds returns the start and end of the period containing t.
func (p Period) Bounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	if p == PeriodDay {
		start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Stamp names the period containing t, e.g. 2026-10-18 or 2026-10.
func (p Period) Stamp(t time.Time) string {
	if p == PeriodDay {
		return t.UTC().Format("2006-01-02")
	}
	return t.UTC().Format("2006-01")
}

// Budget is the token budget state for one period.
type Budget struct {
	TokensLimit     int64     `json:"tokens_limit"`     // 0 = unlimited
	TokensRemaining int64     `json:"tokens_remaining"` // -1 = unlimited
	Exhausted       bool      `json:"exhausted"`
	ResetsAt        time.Time `json:"resets_at"`
}

// Report is interpreter usage for one period.
type Report struct {
	Period      Period    `json:"period"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Tokens      int64     `json:"tokens"`
	Budget      Budget    `json:"budget"`
}
