package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/dexreport/internal/types"
)

func str(s string) *string { return &s }

func validReport() *types.Report {
	return &types.Report{
		Clients: []types.Client{
			{ClientID: "1", ConsentToProvideDetails: "false", Slk: str("ABC"), HasDisabilities: "false"},
			{ClientID: "2", ConsentToProvideDetails: "true", GivenName: str("Jane"), FamilyName: str("Doe"),
				HasDisabilities: "true", Disabilities: &types.Disabilities{DisabilityCode: "PHYS"}},
		},
		Cases: []types.Case{
			{CaseID: "1_10714", CaseClients: types.CaseClients{CaseClient: []types.CaseClient{{ClientID: "1"}}}},
			{CaseID: "2_10714", CaseClients: types.CaseClients{CaseClient: []types.CaseClient{{ClientID: "2"}}}},
		},
		Sessions: []types.Session{
			{SessionID: "100", CaseID: "1_10714", SessionDate: "2024-01-15", ServiceTypeID: "7", TimeMinutes: 45},
			{SessionID: "101", CaseID: "2_10714", SessionDate: "2024-01-16", ServiceTypeID: "7"},
		},
	}
}

func rules(errs []*ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Rule)
	}
	return out
}

func TestValidate_ValidReport(t *testing.T) {
	res := Validate(validReport())
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 2, res.ClientsValidated)
	assert.Equal(t, 2, res.CasesValidated)
	assert.Equal(t, 2, res.SessionsValidated)
}

func TestValidate_Errors(t *testing.T) {
	r := validReport()
	r.Clients = append(r.Clients, types.Client{
		ClientID: "1", ConsentToProvideDetails: "false", Slk: str("X"), GivenName: str("Y"), FamilyName: str("Z"),
		HasDisabilities: "true",
	})
	r.Sessions = append(r.Sessions,
		types.Session{SessionID: "100", CaseID: "9_10714", SessionDate: "2024-01-01", ServiceTypeID: "7", TimeMinutes: -1},
	)

	res := Validate(r)
	require.False(t, res.IsValid)
	assert.ElementsMatch(t,
		[]string{"unique_client", "consent", "disabilities", "unique_session", "session_case", "minutes"},
		rules(res.Problems(SeverityError)))
	assert.Equal(t, 6, res.ErrorCount)
}

func TestValidate_ConsentMismatch(t *testing.T) {
	r := validReport()
	r.Clients[0].ConsentToProvideDetails = "true"

	res := Validate(r)
	require.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, "consent", res.Errors[0].Rule)
	assert.Equal(t, "1", res.Errors[0].ID)
}

func TestValidate_WarningsDoNotInvalidate(t *testing.T) {
	r := validReport()
	r.Sessions[0].ServiceTypeID = ""
	r.Sessions[1].SessionDate = "Unknown"
	r.Cases[1].CaseClients.CaseClient[0].ClientID = "3"

	res := Validate(r)
	assert.True(t, res.IsValid)
	assert.Equal(t, 3, res.WarningCount)
	assert.ElementsMatch(t, []string{"service_type", "session_date", "case_client"}, rules(res.Problems(SeverityWarning)))
}

func TestValidator_Options(t *testing.T) {
	r := validReport()
	r.Sessions[0].ServiceTypeID = ""

	res := NewValidator(ValidationOptions{TreatWarningsAsErrors: true}).Validate(r)
	assert.False(t, res.IsValid)
	assert.Equal(t, 1, res.ErrorCount)

	r = validReport()
	r.Clients = append(r.Clients, r.Clients[0], r.Clients[0])
	res = NewValidator(ValidationOptions{StopOnFirstError: true}).Validate(r)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, 0, res.CasesValidated)
}

func TestValidationError_Error(t *testing.T) {
	e := &ValidationError{Severity: SeverityError, Record: "Session", ID: "5", Field: "CaseId", Value: "x", Message: "case does not exist"}
	assert.Equal(t, "[ERROR] Session 5, Field 'CaseId': case does not exist (value: 'x')", e.Error())
}
