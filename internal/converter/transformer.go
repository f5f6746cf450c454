// =============================================================================
// DEX Report Converter - Billing Transformer
// =============================================================================
//
// This module turns billing lines into DEX cases and sessions. It is the only
// part of the pipeline that joins sources together.
//
// PER BILLING LINE (in ledger order):
//   1. Lines outside the accepted fee category are dropped with no side
//      effect, as are lines without a client ID.
//   2. The case "<client>_<outlet activity>" is created on first sight.
//   3. The service type ID is resolved: item code -> DEX category (code
//      table) -> ServiceTypeId (organisation registry).
//   4. Minutes depend on the schedule:
//        CHSP                  fixed minutes of the code, or the duration of
//                              the matching appointment for "as per report"
//                              codes
//        Occupational Therapy  the duration of the matching appointment, 0
//                              when there is none
//        anything else         no invoice, so no session
//   5. A session is emitted when the invoice carries an invoice number.
//   6. The session ID sequence advances once per line, emitted or not.
//
// Lookup misses are never errors. They fall back to 0 minutes, an empty
// service type ID or an "Unknown" date.
//
// =============================================================================

package converter

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/dexreport/internal/codes"
	"github.com/ginjaninja78/dexreport/internal/config"
	"github.com/ginjaninja78/dexreport/internal/normalize"
	"github.com/ginjaninja78/dexreport/internal/sequence"
	"github.com/ginjaninja78/dexreport/internal/types"
)

// Schedules with a minutes policy.
const (
	ScheduleCHSP                = "CHSP"
	ScheduleOccupationalTherapy = "Occupational Therapy"
)

// ParticipationClient is the participation code of the client of a session.
const ParticipationClient = "CLIENT"

// =============================================================================
// LOOKUPS
// =============================================================================

// CodeLookup resolves billing item codes.
type CodeLookup interface {
	Lookup(code string) (codes.Entry, bool)
}

// ServiceTypeLookup resolves DEX category labels to service type IDs.
type ServiceTypeLookup interface {
	Lookup(name string) (string, bool)
}

// Lookups are the read-only tables a transformer joins against.
type Lookups struct {
	Codes        CodeLookup
	ServiceTypes ServiceTypeLookup
	Appointments *AppointmentIndex
}

// =============================================================================
// TRANSFORMER
// =============================================================================

// TransformStats counts what happened to the billing lines of a run.
type TransformStats struct {
	LinesRead           int
	LinesFiltered       int
	LinesMissingClient  int
	LinesProcessed      int
	CasesCreated        int
	SessionsEmitted     int
	LinesWithoutSession int
	UnknownCodes        int
	UnknownServiceTypes int
	AppointmentMisses   int
}

// TransformResult is the output of a transformer.
type TransformResult struct {
	Cases    []types.Case
	Sessions []types.Session

	// Invoices holds one entry per line that produced invoice data,
	// whether or not a session was emitted for it.
	Invoices []types.InvoiceData

	Stats TransformStats
}

// Transformer owns the case bookkeeping and session sequence of one run.
// It is not safe for concurrent use.
type Transformer struct {
	lookups   Lookups
	ids       sequence.Generator
	reporting config.Reporting
	logger    zerolog.Logger

	seenCases map[string]struct{}
	result    TransformResult
}

// NewTransformer creates a transformer. ids supplies the session identifiers;
// its first value is the first session ID of the run.
func NewTransformer(lookups Lookups, ids sequence.Generator, reporting config.Reporting, logger zerolog.Logger) *Transformer {
	if reporting.AcceptedFeeCategory == "" {
		reporting.AcceptedFeeCategory = config.DefaultFeeCategory
	}
	if reporting.OutletActivityID == "" {
		reporting.OutletActivityID = config.DefaultOutletActivityID
	}
	return &Transformer{
		lookups:   lookups,
		ids:       ids,
		reporting: reporting,
		logger:    logger,
		seenCases: make(map[string]struct{}),
	}
}

// Transform runs every billing line through a new transformer.
func Transform(lines []types.BillingLine, lookups Lookups, ids sequence.Generator, reporting config.Reporting, logger zerolog.Logger) TransformResult {
	t := NewTransformer(lookups, ids, reporting, logger)
	for _, line := range lines {
		t.Process(line)
	}
	return t.Result()
}

// Result returns everything produced so far.
func (t *Transformer) Result() TransformResult {
	return t.result
}

// CaseID combines a client ID with the outlet activity of the run.
func (t *Transformer) CaseID(clientID string) string {
	return clientID + "_" + t.reporting.OutletActivityID
}

// Process handles one billing line.
func (t *Transformer) Process(line types.BillingLine) {
	t.result.Stats.LinesRead++

	// STEP 1: fee category filter.
	if strings.TrimSpace(line.FeeCategory) != t.reporting.AcceptedFeeCategory {
		t.result.Stats.LinesFiltered++
		return
	}
	clientID := normalize.Identifier(line.ClientID)
	if clientID == "" {
		t.result.Stats.LinesMissingClient++
		t.logger.Debug().Int("row", line.Row).Msg("billing line skipped: no client ID")
		return
	}
	t.result.Stats.LinesProcessed++

	// Drawn up front so the sequence advances whether or not a session
	// is emitted.
	sessionID := t.ids.Next()

	// STEP 2: case resolution.
	caseID := t.ensureCase(clientID)

	// STEP 3: service type resolution.
	entry, known := t.lookupCode(line)
	serviceTypeID := t.lookupServiceType(line, entry, known)

	// STEP 4: minutes by schedule.
	invoice := t.buildInvoice(line, clientID, entry, known, serviceTypeID)
	if invoice == nil {
		t.result.Stats.LinesWithoutSession++
		return
	}
	t.result.Invoices = append(t.result.Invoices, *invoice)

	// STEP 5: session emission.
	if invoice.InvoiceID == "" {
		t.result.Stats.LinesWithoutSession++
		return
	}

	t.result.Sessions = append(t.result.Sessions, types.Session{
		SessionID:     sequence.Format(sessionID),
		CaseID:        caseID,
		SessionDate:   normalize.CalendarDate(line.ItemDate),
		ServiceTypeID: serviceTypeID,
		FeesCharged:   normalize.OrDefault(normalize.Identifier(line.Fee), "0"),
		SessionClients: types.SessionClients{
			SessionClient: []types.SessionClient{{
				ClientID:          clientID,
				ParticipationCode: ParticipationClient,
			}},
		},
		TimeMinutes: invoice.Minutes,
	})
	t.result.Stats.SessionsEmitted++
}

func (t *Transformer) ensureCase(clientID string) string {
	caseID := t.CaseID(clientID)
	if _, ok := t.seenCases[caseID]; ok {
		return caseID
	}

	t.seenCases[caseID] = struct{}{}
	t.result.Cases = append(t.result.Cases, types.Case{
		CaseID:                           caseID,
		OutletActivityID:                 t.reporting.OutletActivityID,
		TotalNumberOfUnidentifiedClients: 0,
		CaseClients: types.CaseClients{
			CaseClient: []types.CaseClient{{ClientID: clientID}},
		},
	})
	t.result.Stats.CasesCreated++
	return caseID
}

func (t *Transformer) lookupCode(line types.BillingLine) (codes.Entry, bool) {
	if t.lookups.Codes == nil {
		return codes.Entry{}, false
	}
	entry, ok := t.lookups.Codes.Lookup(line.ServiceCode)
	if !ok {
		t.result.Stats.UnknownCodes++
		t.logger.Debug().Int("row", line.Row).Str("code", line.ServiceCode).Msg("unknown service code")
	}
	return entry, ok
}

func (t *Transformer) lookupServiceType(line types.BillingLine, entry codes.Entry, known bool) string {
	if !known || t.lookups.ServiceTypes == nil {
		return ""
	}
	id, ok := t.lookups.ServiceTypes.Lookup(entry.Category)
	if !ok {
		t.result.Stats.UnknownServiceTypes++
		t.logger.Debug().Int("row", line.Row).Str("category", entry.Category).Msg("no service type for category")
	}
	return id
}

// buildInvoice applies the schedule's minutes policy. It returns nil for
// schedules that are not reported.
func (t *Transformer) buildInvoice(line types.BillingLine, clientID string, entry codes.Entry, known bool, serviceTypeID string) *types.InvoiceData {
	invoice := &types.InvoiceData{
		InvoiceID:     normalize.Identifier(line.InvoiceID),
		FeeCategory:   line.FeeCategory,
		ServiceTypeID: serviceTypeID,
		Row:           line.Row,
	}

	switch strings.TrimSpace(line.Schedule) {
	case ScheduleCHSP:
		if !known {
			return invoice
		}
		scheduled := entry.ScheduledService
		invoice.ScheduledService = &scheduled
		if !entry.Minutes.FromAppointment {
			invoice.Minutes = entry.Minutes.Fixed
			return invoice
		}
		if appt, ok := t.matchAppointment(line, clientID); ok {
			invoice.Minutes = appt.DurationMinutes
		}
		return invoice

	case ScheduleOccupationalTherapy:
		if appt, ok := t.matchAppointment(line, clientID); ok {
			scheduled := appt.AppointmentType
			invoice.ScheduledService = &scheduled
			invoice.Minutes = appt.DurationMinutes
		}
		return invoice

	default:
		t.logger.Debug().Int("row", line.Row).Str("schedule", line.Schedule).Msg("schedule not reported")
		return nil
	}
}

func (t *Transformer) matchAppointment(line types.BillingLine, clientID string) (types.AppointmentRecord, bool) {
	appt, ok := t.lookups.Appointments.Match(clientID, line.ItemDate)
	if !ok {
		t.result.Stats.AppointmentMisses++
		t.logger.Debug().Int("row", line.Row).Str("client_id", clientID).Str("date", line.ItemDate).
			Msg("no matching appointment, reporting 0 minutes")
		return appt, false
	}
	if appt.DurationMinutes < 0 {
		appt.DurationMinutes = 0
	}
	return appt, true
}
