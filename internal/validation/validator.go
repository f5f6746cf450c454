// =============================================================================
// DEX Report Converter - Validation Engine
// =============================================================================
//
// This module checks a finished report before it is written. The builders
// are meant to make these checks unnecessary; the validator is the last line
// that stops a malformed upload from leaving the machine.
//
// RULES:
//   Errors (the upload is rejected unless continue_on_error is set):
//     unique_client     no two clients share a ClientId
//     unique_case       no two cases share a CaseId
//     unique_session    no two sessions share a SessionId
//     session_case      every session references an emitted case
//     consent           exactly one of names or SLK, matching the consent flag
//     disabilities      the Disabilities record is present iff HasDisabilities
//     minutes           session minutes are not negative
//   Warnings (reported, never blocking):
//     service_type      session without a ServiceTypeId
//     session_date      session date could not be read
//     case_client       case whose client is missing from the client list
//
// ERROR HANDLING:
//   Problems are collected, not returned one by one. Each carries the record
//   kind and identifier so it can be traced back to a source row.
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/dexreport/internal/normalize"
	"github.com/ginjaninja78/dexreport/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation problem.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Record is the kind of record: "Client", "Case" or "Session".
	Record string

	// ID identifies the record (ClientId, CaseId or SessionId).
	ID string

	// Field is the element that failed validation.
	Field string

	// Value is the offending value.
	Value string

	// Rule is the rule that was violated.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s %s, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.Record,
		e.ID,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors.
	IsValid bool

	// Errors contains all problems, warnings included, in record order.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	ClientsValidated  int
	CasesValidated    int
	SessionsValidated int
}

// Problems returns the entries of the given severity.
func (r *ValidationResult) Problems(severity string) []*ValidationError {
	var out []*ValidationError
	for _, e := range r.Errors {
		if e.Severity == severity {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// StopOnFirstError stops validation after the first error.
	StopOnFirstError bool

	// TreatWarningsAsErrors promotes every warning to an error.
	TreatWarningsAsErrors bool
}

// Validator performs validation on a report.
type Validator struct {
	options ValidationOptions
	result  *ValidationResult
}

// NewValidator creates a validator.
func NewValidator(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// Validate checks a report with the default options.
func Validate(report *types.Report) *ValidationResult {
	return NewValidator(ValidationOptions{}).Validate(report)
}

// Validate checks every rule against the report.
func (v *Validator) Validate(report *types.Report) *ValidationResult {
	v.result = &ValidationResult{IsValid: true}

	clientIDs := v.validateClients(report.Clients)
	if v.stopped() {
		return v.result
	}
	caseIDs := v.validateCases(report.Cases, clientIDs)
	if v.stopped() {
		return v.result
	}
	v.validateSessions(report.Sessions, caseIDs)

	return v.result
}

func (v *Validator) validateClients(clients []types.Client) map[string]struct{} {
	seen := make(map[string]struct{}, len(clients))

	for _, c := range clients {
		v.result.ClientsValidated++

		if _, dup := seen[c.ClientID]; dup {
			v.add(SeverityError, "Client", c.ClientID, "ClientId", c.ClientID, "unique_client", "duplicate client")
		}
		seen[c.ClientID] = struct{}{}

		hasNames := c.GivenName != nil || c.FamilyName != nil
		hasSLK := c.Slk != nil
		switch {
		case hasNames && hasSLK:
			v.add(SeverityError, "Client", c.ClientID, "Slk", *c.Slk, "consent", "both names and SLK present")
		case !hasNames && !hasSLK:
			v.add(SeverityError, "Client", c.ClientID, "Slk", "", "consent", "neither names nor SLK present")
		case c.ConsentToProvideDetails == "true" && hasSLK:
			v.add(SeverityError, "Client", c.ClientID, "ConsentToProvideDetails", c.ConsentToProvideDetails, "consent", "SLK reported for a consenting client")
		case c.ConsentToProvideDetails != "true" && hasNames:
			v.add(SeverityError, "Client", c.ClientID, "ConsentToProvideDetails", c.ConsentToProvideDetails, "consent", "names reported without consent")
		case hasNames && (c.GivenName == nil || c.FamilyName == nil):
			v.add(SeverityError, "Client", c.ClientID, "GivenName", "", "consent", "given and family name must be reported together")
		}

		if (c.HasDisabilities == "true") != (c.Disabilities != nil) {
			v.add(SeverityError, "Client", c.ClientID, "HasDisabilities", c.HasDisabilities, "disabilities", "disability record does not match HasDisabilities")
		}

		if v.stopped() {
			break
		}
	}

	return seen
}

func (v *Validator) validateCases(cases []types.Case, clientIDs map[string]struct{}) map[string]struct{} {
	seen := make(map[string]struct{}, len(cases))

	for _, c := range cases {
		v.result.CasesValidated++

		if _, dup := seen[c.CaseID]; dup {
			v.add(SeverityError, "Case", c.CaseID, "CaseId", c.CaseID, "unique_case", "duplicate case")
		}
		seen[c.CaseID] = struct{}{}

		for _, cc := range c.CaseClients.CaseClient {
			if _, ok := clientIDs[cc.ClientID]; !ok {
				v.add(SeverityWarning, "Case", c.CaseID, "ClientId", cc.ClientID, "case_client", "client is not in the client list")
			}
		}

		if v.stopped() {
			break
		}
	}

	return seen
}

func (v *Validator) validateSessions(sessions []types.Session, caseIDs map[string]struct{}) {
	seen := make(map[string]struct{}, len(sessions))

	for _, s := range sessions {
		v.result.SessionsValidated++

		if _, dup := seen[s.SessionID]; dup {
			v.add(SeverityError, "Session", s.SessionID, "SessionId", s.SessionID, "unique_session", "duplicate session")
		}
		seen[s.SessionID] = struct{}{}

		if _, ok := caseIDs[s.CaseID]; !ok {
			v.add(SeverityError, "Session", s.SessionID, "CaseId", s.CaseID, "session_case", "case does not exist")
		}
		if s.TimeMinutes < 0 {
			v.add(SeverityError, "Session", s.SessionID, "TimeMinutes", fmt.Sprint(s.TimeMinutes), "minutes", "negative minutes")
		}
		if s.ServiceTypeID == "" {
			v.add(SeverityWarning, "Session", s.SessionID, "ServiceTypeId", "", "service_type", "no service type")
		}
		if s.SessionDate == normalize.UnknownDate {
			v.add(SeverityWarning, "Session", s.SessionID, "SessionDate", s.SessionDate, "session_date", "date could not be read")
		}

		if v.stopped() {
			return
		}
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (v *Validator) add(severity, record, id, field, value, rule, message string) {
	if severity == SeverityWarning && v.options.TreatWarningsAsErrors {
		severity = SeverityError
	}

	v.result.Errors = append(v.result.Errors, &ValidationError{
		Severity: severity,
		Record:   record,
		ID:       id,
		Field:    field,
		Value:    value,
		Rule:     rule,
		Message:  message,
	})

	if severity == SeverityError {
		v.result.ErrorCount++
		v.result.IsValid = false
	} else {
		v.result.WarningCount++
	}
}

func (v *Validator) stopped() bool {
	return v.options.StopOnFirstError && v.result.ErrorCount > 0
}
