// =============================================================================
// DEX Report Converter - Service Code Resolver
// =============================================================================
//
// This module turns the service code reference table into a lookup keyed by
// billing item code. Each entry answers three questions for a billing line:
//   - what the service is called (ScheduledService)
//   - how many minutes to report (a fixed value, or "as per report", meaning
//     the duration of the matching appointment)
//   - which DEX category it belongs to, after the label rewrites have made it
//     match the service type names of the organisation registry
//
// =============================================================================

package codes

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/dexreport/internal/config"
	"github.com/ginjaninja78/dexreport/internal/normalize"
	"github.com/ginjaninja78/dexreport/internal/types"
)

// AsPerReport is the Total Time Reported value that defers to the
// appointment ledger.
const AsPerReport = "as per report"

// MinutesPolicy says how the minutes of a session are obtained.
type MinutesPolicy struct {
	// FromAppointment is set for "as per report" codes.
	FromAppointment bool

	// Fixed is the minute value of every other code.
	Fixed int
}

// Entry is the resolved form of one service code row.
type Entry struct {
	Code             string
	ScheduledService string
	Minutes          MinutesPolicy
	Category         string

	// ServiceTypeID is the optional identifier carried by the reference
	// table. Session service types come from the organisation registry.
	ServiceTypeID string
}

// Table is the read-only code lookup of a run.
type Table struct {
	entries map[string]Entry
}

// Build resolves the reference rows. Rows without a code are ignored and a
// later row for the same code replaces an earlier one.
func Build(rows []types.ServiceCodeRow, rewrites []config.Rewrite, logger zerolog.Logger) *Table {
	t := &Table{entries: make(map[string]Entry, len(rows))}

	for _, row := range rows {
		code := normalize.Identifier(row.Code)
		if code == "" {
			continue
		}

		policy, ok := parsePolicy(row.TotalTime)
		if !ok {
			logger.Debug().Str("code", code).Str("total_time", row.TotalTime).
				Msg("unrecognised total time, reporting 0 minutes")
		}

		t.entries[code] = Entry{
			Code:             code,
			ScheduledService: row.VisitType,
			Minutes:          policy,
			Category:         NormalizeCategory(row.Category, rewrites),
			ServiceTypeID:    row.ServiceTypeID,
		}
	}

	return t
}

// parsePolicy reads a Total Time Reported cell. A blank cell is a fixed
// zero; anything else that is not a number reports false.
func parsePolicy(s string) (MinutesPolicy, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, AsPerReport) {
		return MinutesPolicy{FromAppointment: true}, true
	}
	if s == "" {
		return MinutesPolicy{}, true
	}
	minutes, ok := normalize.Minutes(s)
	return MinutesPolicy{Fixed: minutes}, ok
}

// NormalizeCategory applies the rewrites to a category label in order.
func NormalizeCategory(category string, rewrites []config.Rewrite) string {
	for _, rw := range rewrites {
		if rw.Find == "" {
			continue
		}
		category = strings.ReplaceAll(category, rw.Find, rw.Value)
	}
	return strings.TrimSpace(category)
}

// Lookup returns the entry for a billing item code. An unknown code is not
// an error; callers apply their defaults.
func (t *Table) Lookup(code string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[normalize.Identifier(code)]
	return e, ok
}

// Len returns the number of codes.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
