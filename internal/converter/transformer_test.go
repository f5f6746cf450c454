package converter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/dexreport/internal/codes"
	"github.com/ginjaninja78/dexreport/internal/config"
	"github.com/ginjaninja78/dexreport/internal/registry"
	"github.com/ginjaninja78/dexreport/internal/sequence"
	"github.com/ginjaninja78/dexreport/internal/types"
)

const accepted = "CHSP - Payneham"

func testReporting() config.Reporting {
	return config.Reporting{
		AcceptedFeeCategory: accepted,
		OutletActivityID:    "10714",
		CategoryRewrites:    config.DefaultCategoryRewrites(),
	}
}

func testLookups(appts ...types.AppointmentRecord) Lookups {
	codeRows := []types.ServiceCodeRow{
		{Code: "101", VisitType: "Home Visit", TotalTime: "as per report", Category: "Allied Health & Therapy Services"},
		{Code: "102", VisitType: "Group Session", TotalTime: "60", Category: "Social Support Group"},
	}
	return Lookups{
		Codes: codes.Build(codeRows, config.DefaultCategoryRewrites(), zerolog.Nop()),
		ServiceTypes: registry.NewIndex(map[string]string{
			"Allied Health and Therapy Services": "7",
			"Social Support Group":               "12",
		}),
		Appointments: NewAppointmentIndex(appts),
	}
}

func run(lines []types.BillingLine, lookups Lookups, seed int64) TransformResult {
	return Transform(lines, lookups, sequence.NewCounter(seed), testReporting(), zerolog.Nop())
}

var ignoreXMLName = cmpopts.IgnoreFields(types.Session{}, "XMLName")

func TestTransform_AsPerReportUsesAppointment(t *testing.T) {
	appts := []types.AppointmentRecord{
		{ClientID: "1024", AppointmentDate: "15/01/2024", Status: "Completed", AppointmentType: "Home Visit", DurationMinutes: 45},
	}
	lines := []types.BillingLine{
		{ClientID: "1024", InvoiceID: "55120", ServiceCode: "101", Schedule: "CHSP", ItemDate: "45306", FeeCategory: accepted, Fee: "85.0"},
	}

	res := run(lines, testLookups(appts...), 1000)
	require.Len(t, res.Sessions, 1)

	want := types.Session{
		SessionID:     "1000",
		CaseID:        "1024_10714",
		SessionDate:   "2024-01-15",
		ServiceTypeID: "7",
		FeesCharged:   "85",
		SessionClients: types.SessionClients{
			SessionClient: []types.SessionClient{{ClientID: "1024", ParticipationCode: "CLIENT"}},
		},
		TimeMinutes: 45,
	}
	if diff := cmp.Diff(want, res.Sessions[0], ignoreXMLName); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, res.Invoices, 1)
	require.NotNil(t, res.Invoices[0].ScheduledService)
	assert.Equal(t, "Home Visit", *res.Invoices[0].ScheduledService)
}

func TestTransform_CancelledAppointmentIgnored(t *testing.T) {
	appts := []types.AppointmentRecord{
		{ClientID: "1024", AppointmentDate: "2024-01-15", Status: "cancelled", DurationMinutes: 90},
		{ClientID: "1024", AppointmentDate: "2024-01-15", Status: "Completed", DurationMinutes: 30},
		{ClientID: "1024", AppointmentDate: "2024-01-15", Status: "Completed", DurationMinutes: 60},
	}
	lines := []types.BillingLine{
		{ClientID: "1024", InvoiceID: "1", ServiceCode: "101", Schedule: "CHSP", ItemDate: "2024-01-15", FeeCategory: accepted},
	}

	res := run(lines, testLookups(appts...), 1)
	require.Len(t, res.Sessions, 1)
	assert.Equal(t, 30, res.Sessions[0].TimeMinutes, "earliest non-cancelled appointment wins")
}

func TestTransform_FixedMinutesAndUnknownCode(t *testing.T) {
	lines := []types.BillingLine{
		{ClientID: "1", InvoiceID: "10", ServiceCode: "102", Schedule: "CHSP", ItemDate: "2024-02-01", FeeCategory: accepted, Fee: "20"},
		{ClientID: "1", InvoiceID: "11", ServiceCode: "999", Schedule: "CHSP", ItemDate: "2024-02-02", FeeCategory: accepted, Fee: "20"},
	}

	res := run(lines, testLookups(), 1)
	require.Len(t, res.Sessions, 2)
	assert.Equal(t, 60, res.Sessions[0].TimeMinutes)
	assert.Equal(t, "12", res.Sessions[0].ServiceTypeID)

	assert.Equal(t, 0, res.Sessions[1].TimeMinutes)
	assert.Equal(t, "", res.Sessions[1].ServiceTypeID)
	assert.Nil(t, res.Invoices[1].ScheduledService)
	assert.Equal(t, 1, res.Stats.UnknownCodes)
}

func TestTransform_OccupationalTherapyWithoutAppointment(t *testing.T) {
	lines := []types.BillingLine{
		{ClientID: "7", InvoiceID: "900", ServiceCode: "101", Schedule: "Occupational Therapy", ItemDate: "2024-03-04", FeeCategory: accepted, Fee: "150"},
	}

	res := run(lines, testLookups(), 500)

	require.Len(t, res.Invoices, 1)
	assert.Equal(t, 0, res.Invoices[0].Minutes)
	assert.Nil(t, res.Invoices[0].ScheduledService)

	require.Len(t, res.Sessions, 1, "an invoice number still yields a session")
	assert.Equal(t, 0, res.Sessions[0].TimeMinutes)
	assert.Equal(t, 1, res.Stats.AppointmentMisses)
}

func TestTransform_OccupationalTherapyWithAppointment(t *testing.T) {
	appts := []types.AppointmentRecord{
		{ClientID: "7.0", AppointmentDate: "45355", Status: "Arrived", AppointmentType: "OT Assessment", DurationMinutes: 75},
	}
	lines := []types.BillingLine{
		{ClientID: "7", InvoiceID: "900", ServiceCode: "555", Schedule: "Occupational Therapy", ItemDate: "2024-03-04", FeeCategory: accepted},
	}

	res := run(lines, testLookups(appts...), 1)
	require.Len(t, res.Sessions, 1)
	assert.Equal(t, 75, res.Sessions[0].TimeMinutes)
	require.NotNil(t, res.Invoices[0].ScheduledService)
	assert.Equal(t, "OT Assessment", *res.Invoices[0].ScheduledService)
}

func TestTransform_FilteredLinesHaveNoSideEffects(t *testing.T) {
	lines := []types.BillingLine{
		{ClientID: "1", InvoiceID: "1", ServiceCode: "102", Schedule: "CHSP", ItemDate: "2024-01-01", FeeCategory: "Private"},
		{ClientID: "2", InvoiceID: "2", ServiceCode: "102", Schedule: "CHSP", ItemDate: "2024-01-01", FeeCategory: "HCP"},
	}

	ids := sequence.NewCounter(42)
	res := Transform(lines, testLookups(), ids, testReporting(), zerolog.Nop())

	assert.Empty(t, res.Cases)
	assert.Empty(t, res.Sessions)
	assert.Empty(t, res.Invoices)
	assert.Equal(t, int64(42), ids.Peek(), "filtered lines do not consume identifiers")
	assert.Equal(t, 2, res.Stats.LinesFiltered)
}

func TestTransform_OneCasePerClientAndIncreasingIDs(t *testing.T) {
	lines := []types.BillingLine{
		{ClientID: "1024", InvoiceID: "1", ServiceCode: "102", Schedule: "CHSP", ItemDate: "2024-01-01", FeeCategory: accepted},
		{ClientID: "1024", InvoiceID: "2", ServiceCode: "102", Schedule: "CHSP", ItemDate: "2024-01-08", FeeCategory: accepted},
	}

	res := run(lines, testLookups(), 100)

	require.Len(t, res.Cases, 1)
	c := res.Cases[0]
	assert.Equal(t, "1024_10714", c.CaseID)
	assert.Equal(t, "10714", c.OutletActivityID)
	assert.Equal(t, 0, c.TotalNumberOfUnidentifiedClients)
	assert.Equal(t, []types.CaseClient{{ClientID: "1024"}}, c.CaseClients.CaseClient)

	require.Len(t, res.Sessions, 2)
	assert.Equal(t, "100", res.Sessions[0].SessionID)
	assert.Equal(t, "101", res.Sessions[1].SessionID)
	for _, s := range res.Sessions {
		assert.Equal(t, c.CaseID, s.CaseID)
	}
}

func TestTransform_IDAdvancesWithoutSession(t *testing.T) {
	lines := []types.BillingLine{
		{ClientID: "1", InvoiceID: "1", ServiceCode: "102", Schedule: "CHSP", ItemDate: "2024-01-01", FeeCategory: accepted},
		{ClientID: "1", InvoiceID: "2", ServiceCode: "102", Schedule: "Physiotherapy", ItemDate: "2024-01-02", FeeCategory: accepted},
		{ClientID: "1", InvoiceID: "", ServiceCode: "102", Schedule: "CHSP", ItemDate: "2024-01-03", FeeCategory: accepted},
		{ClientID: "1", InvoiceID: "4", ServiceCode: "102", Schedule: "CHSP", ItemDate: "bad date", FeeCategory: accepted},
	}

	res := run(lines, testLookups(), 10)

	require.Len(t, res.Sessions, 2)
	assert.Equal(t, "10", res.Sessions[0].SessionID)
	assert.Equal(t, "13", res.Sessions[1].SessionID, "gaps follow lines without a session")
	assert.Equal(t, "Unknown", res.Sessions[1].SessionDate)
	assert.Len(t, res.Invoices, 3, "other schedules produce no invoice")
	assert.Equal(t, 2, res.Stats.LinesWithoutSession)
}

func TestTransform_MissingClientSkipped(t *testing.T) {
	lines := []types.BillingLine{
		{ClientID: "", InvoiceID: "1", Schedule: "CHSP", FeeCategory: accepted},
	}
	res := run(lines, testLookups(), 1)
	assert.Empty(t, res.Cases)
	assert.Equal(t, 1, res.Stats.LinesMissingClient)
}

func TestTransform_DeterministicForFixedSeed(t *testing.T) {
	appts := []types.AppointmentRecord{
		{ClientID: "1", AppointmentDate: "2024-01-01", Status: "Completed", DurationMinutes: 20},
	}
	lines := []types.BillingLine{
		{ClientID: "1", InvoiceID: "1", ServiceCode: "101", Schedule: "CHSP", ItemDate: "2024-01-01", FeeCategory: accepted},
		{ClientID: "2", InvoiceID: "2", ServiceCode: "102", Schedule: "CHSP", ItemDate: "2024-01-01", FeeCategory: accepted},
	}

	a := run(lines, testLookups(appts...), 7)
	b := run(lines, testLookups(appts...), 7)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("runs differ (-a +b):\n%s", diff)
	}

	c := run(lines, testLookups(appts...), 1007)
	assert.Equal(t, a.Cases, c.Cases)
	require.Len(t, c.Sessions, len(a.Sessions))
	assert.Equal(t, []string{"7", "8"}, []string{a.Sessions[0].SessionID, a.Sessions[1].SessionID})
	assert.Equal(t, []string{"1007", "1008"}, []string{c.Sessions[0].SessionID, c.Sessions[1].SessionID})
	for i := range a.Sessions {
		a.Sessions[i].SessionID = c.Sessions[i].SessionID
	}
	assert.Equal(t, a.Sessions, c.Sessions, "sessions differ only by the seed offset")
}

func TestTransform_MinutesNeverNegative(t *testing.T) {
	appts := []types.AppointmentRecord{
		{ClientID: "1", AppointmentDate: "2024-01-01", Status: "Completed", DurationMinutes: -15},
	}
	lines := []types.BillingLine{
		{ClientID: "1", InvoiceID: "1", ServiceCode: "101", Schedule: "CHSP", ItemDate: "2024-01-01", FeeCategory: accepted},
	}
	res := run(lines, testLookups(appts...), 1)
	require.Len(t, res.Sessions, 1)
	assert.GreaterOrEqual(t, res.Sessions[0].TimeMinutes, 0)
}

func TestTransform_BlankDatesNeverMatch(t *testing.T) {
	appts := []types.AppointmentRecord{
		{ClientID: "1", AppointmentDate: "", Status: "Completed", AppointmentType: "OT Review", DurationMinutes: 90},
		{ClientID: "1", AppointmentDate: "TBC", Status: "Completed", AppointmentType: "OT Review", DurationMinutes: 60},
	}
	lines := []types.BillingLine{
		{ClientID: "1", InvoiceID: "1", ServiceCode: "101", Schedule: "CHSP", ItemDate: "", FeeCategory: accepted},
		{ClientID: "1", InvoiceID: "2", ServiceCode: "X", Schedule: "Occupational Therapy", ItemDate: "", FeeCategory: accepted},
		{ClientID: "1", InvoiceID: "3", ServiceCode: "101", Schedule: "CHSP", ItemDate: "TBC", FeeCategory: accepted},
	}

	lookups := testLookups(appts...)
	assert.Equal(t, 0, lookups.Appointments.Len())

	res := run(lines, lookups, 1)
	require.Len(t, res.Sessions, 3)
	for _, s := range res.Sessions {
		assert.Equal(t, "Unknown", s.SessionDate)
		assert.Equal(t, 0, s.TimeMinutes, "session %s", s.SessionID)
	}
	assert.Nil(t, res.Invoices[1].ScheduledService)
	assert.Equal(t, 3, res.Stats.AppointmentMisses)
}

func TestTransform_LeadingZeroClientIDKept(t *testing.T) {
	lines := []types.BillingLine{
		{ClientID: "00123", InvoiceID: "9.0", ServiceCode: "102", Schedule: "CHSP", ItemDate: "45306", FeeCategory: accepted},
	}

	res := run(lines, testLookups(), 1)
	require.Len(t, res.Cases, 1)
	assert.Equal(t, "00123_10714", res.Cases[0].CaseID)
	require.Len(t, res.Sessions, 1)
	assert.Equal(t, "00123", res.Sessions[0].SessionClients.SessionClient[0].ClientID)
	assert.Equal(t, 60, res.Sessions[0].TimeMinutes)
}
