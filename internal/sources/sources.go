// =============================================================================
// DEX Report Converter - Source Loader
// =============================================================================
//
// This module loads the four tabular sources of a run and maps their columns
// onto typed input records. The column names below are the contract with the
// practice-management exports.
//
// LOADING:
//   The sources are independent files, so they are read concurrently. The
//   first failure (missing file, unreadable workbook) cancels the shared
//   context so readers that have not started yet are skipped, and the load
//   fails as a whole: a run never continues with partial source data.
//
// MISSING COLUMNS:
//   A missing column is not an error. Its values read as empty strings and
//   the documented defaults take over downstream.
//
// =============================================================================

package sources

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/dexreport/internal/config"
	"github.com/ginjaninja78/dexreport/internal/csvparser"
	"github.com/ginjaninja78/dexreport/internal/normalize"
	"github.com/ginjaninja78/dexreport/internal/types"
	"github.com/ginjaninja78/dexreport/internal/xlsxparser"
	"github.com/ginjaninja78/dexreport/pkg/utils"
)

// =============================================================================
// COLUMN NAMES
// =============================================================================

// Billing ledger columns.
const (
	ColBillingClientID    = "Client ID"
	ColBillingInvoice     = "Invoice #"
	ColBillingItem        = "Item"
	ColBillingSchedule    = "Schedule"
	ColBillingItemDate    = "Item Date"
	ColBillingFeeCategory = "Fee Category"
	ColBillingFee         = "Fee"
)

// Appointment ledger columns.
const (
	ColApptClientID = "Client ID"
	ColApptDate     = "Appointment Date"
	ColApptStatus   = "Appointment Status"
	ColApptType     = "Appointment Type"
	ColApptDuration = "Duration"
)

// Service code reference columns.
const (
	ColCode          = "Code"
	ColVisitType     = "Visit Type in HCM"
	ColTotalTime     = "Total Time Reported"
	ColCategory      = "DEX DSS Category"
	ColServiceTypeID = "Service Type ID"
)

// =============================================================================
// DATASET
// =============================================================================

// Dataset is the fully materialised tabular input of a run, in source order.
type Dataset struct {
	Billing      []types.BillingLine
	Appointments []types.AppointmentRecord
	ServiceCodes []types.ServiceCodeRow
	Clients      []types.ClientRow
}

// Load reads the billing, appointment, service code and client sources
// named in cfg.
func Load(ctx context.Context, cfg config.Sources, csv config.CSVSettings) (*Dataset, error) {
	var (
		billing, appointments, codes, clients *types.Table
	)

	g, gctx := errgroup.WithContext(ctx)
	load := func(name, path string, dst **types.Table) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			table, err := ReadTable(path, cfg.Sheet, csv)
			if err != nil {
				return fmt.Errorf("load %s source: %w", name, err)
			}
			*dst = table
			return nil
		})
	}

	load("billing", cfg.Billing, &billing)
	load("appointments", cfg.Appointments, &appointments)
	load("service code", cfg.ServiceCodes, &codes)
	load("client", cfg.Clients, &clients)

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Dataset{
		Billing:      BillingLines(billing),
		Appointments: Appointments(appointments),
		ServiceCodes: ServiceCodes(codes),
		Clients:      Clients(clients),
	}, nil
}

// ReadTable picks a reader by file extension.
func ReadTable(path, sheet string, csv config.CSVSettings) (*types.Table, error) {
	if !utils.FileExists(path) {
		return nil, fmt.Errorf("source not found: %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return xlsxparser.Parse(path, sheet)
	case ".csv", ".txt":
		return csvparser.Parse(path, csv)
	default:
		return nil, fmt.Errorf("unsupported source format %q", filepath.Ext(path))
	}
}

// =============================================================================
// ROW MAPPING
// =============================================================================

// BillingLines maps billing ledger rows. Identifier columns are normalised
// so that 1024 and 1024.0 join to the same client and code.
func BillingLines(t *types.Table) []types.BillingLine {
	lines := make([]types.BillingLine, 0, len(t.Rows))
	for i, row := range t.Rows {
		lines = append(lines, types.BillingLine{
			ClientID:    normalize.Identifier(row[ColBillingClientID]),
			InvoiceID:   normalize.Identifier(row[ColBillingInvoice]),
			ServiceCode: normalize.Identifier(row[ColBillingItem]),
			Schedule:    strings.TrimSpace(row[ColBillingSchedule]),
			ItemDate:    strings.TrimSpace(row[ColBillingItemDate]),
			FeeCategory: strings.TrimSpace(row[ColBillingFeeCategory]),
			Fee:         strings.TrimSpace(row[ColBillingFee]),
			Row:         i + 1,
		})
	}
	return lines
}

// Appointments maps appointment ledger rows. A non-numeric duration reads as 0.
func Appointments(t *types.Table) []types.AppointmentRecord {
	appts := make([]types.AppointmentRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		minutes, _ := normalize.Minutes(row[ColApptDuration])
		appts = append(appts, types.AppointmentRecord{
			ClientID:        normalize.Identifier(row[ColApptClientID]),
			AppointmentDate: strings.TrimSpace(row[ColApptDate]),
			Status:          strings.TrimSpace(row[ColApptStatus]),
			AppointmentType: strings.TrimSpace(row[ColApptType]),
			DurationMinutes: minutes,
			Row:             i + 1,
		})
	}
	return appts
}

// ServiceCodes maps service code reference rows.
func ServiceCodes(t *types.Table) []types.ServiceCodeRow {
	codes := make([]types.ServiceCodeRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		codes = append(codes, types.ServiceCodeRow{
			Code:          normalize.Identifier(row[ColCode]),
			VisitType:     strings.TrimSpace(row[ColVisitType]),
			TotalTime:     strings.TrimSpace(row[ColTotalTime]),
			Category:      strings.TrimSpace(row[ColCategory]),
			ServiceTypeID: normalize.Identifier(row[ColServiceTypeID]),
		})
	}
	return codes
}

// Clients maps client master rows.
func Clients(t *types.Table) []types.ClientRow {
	clients := make([]types.ClientRow, 0, len(t.Rows))
	for i, row := range t.Rows {
		get := func(col string) string { return strings.TrimSpace(row[col]) }
		clients = append(clients, types.ClientRow{
			DSSClientID:                normalize.Identifier(get("DSSClientID")),
			PracSuiteID:                normalize.Identifier(get("PracSuiteID")),
			SLK:                        get("SLK"),
			ConsentToProvideDetails:    normalize.Flag(get("ConsentToProvideDetails")),
			ConsentedForFutureContacts: normalize.Flag(get("ConsentedForFutureContacts")),
			FirstName:                  get("FirstName"),
			LastName:                   get("LastName"),
			IsUsingPseudonym:           normalize.Flag(get("IsUsingPseudonym")),
			DateOfBirth:                get("DateOfBirth"),
			IsBirthDateAnEstimate:      normalize.Flag(get("IsBirthDateAnEstimate")),
			GenderCode:                 get("GenderCode"),
			CountryOfBirthCode:         normalize.Identifier(get("CountryOfBirthCode")),
			LanguageSpokenAtHomeCode:   normalize.Identifier(get("LanguageSpokenAtHomeCode")),
			AboriginalOrTorresCode:     get("AboriginalOrTorresCode"),
			Disabilities:               get("Disabilities"),
			AccommodationTypeCode:      get("AccommodationTypeCode"),
			DVACardStatusCode:          get("DVACardStatusCode"),
			HasCarer:                   normalize.Flag(get("HasCarer")),
			Address:                    get("Address"),
			Town:                       get("Town"),
			County:                     get("County"),
			PostCode:                   normalize.Identifier(get("PostCode")),
			HouseholdCompositionCode:   get("HouseholdCompositionCode"),
			Row:                        i + 1,
		})
	}
	return clients
}
