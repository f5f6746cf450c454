// =============================================================================
// DEX Report Converter - Client Registry Builder
// =============================================================================
//
// This module turns client master rows into <Client> records. Only clients
// that appear in the billing ledger are reported, each at most once.
//
// PROCESSING (per master row, in source order):
//   1. Skip rows without a PracSuiteID or DSSClientID, and rows whose
//      PracSuiteID is not a billing client.
//   2. Skip rows whose DSSClientID or PracSuiteID has already been emitted.
//      The first row wins.
//   3. Fill defaults for blank fields.
//   4. Attach the disability sub-record when the client has disabilities.
//   5. Redact by consent: without consent the SLK is reported and the names
//      are dropped; with consent the names are reported and the SLK dropped.
//
// =============================================================================

package clients

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/dexreport/internal/normalize"
	"github.com/ginjaninja78/dexreport/internal/types"
)

// =============================================================================
// DEFAULT CODES
// =============================================================================

const (
	// NoDisabilities is the Disabilities value of a client without any.
	NoDisabilities = "<NONE>"

	DefaultGenderCode            = "NOTSTATED"
	DefaultCountryOfBirthCode    = "0"
	DefaultLanguageCode          = "2"
	DefaultAboriginalCode        = "NOTSTATED"
	DefaultAccommodationTypeCode = "NOTSTATED"
)

// Stats counts the outcome of every master row.
type Stats struct {
	Emitted   int
	MissingID int
	NotBilled int
	Duplicate int
	WithSLK   int
	WithNames int
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder owns the "already emitted" state of one run.
type Builder struct {
	billed       map[string]struct{}
	seenInternal map[string]struct{}
	seenExternal map[string]struct{}
	stats        Stats
	logger       zerolog.Logger
}

// NewBuilder creates a builder that accepts only the given billing client IDs.
func NewBuilder(billedClientIDs map[string]struct{}, logger zerolog.Logger) *Builder {
	return &Builder{
		billed:       billedClientIDs,
		seenInternal: make(map[string]struct{}),
		seenExternal: make(map[string]struct{}),
		logger:       logger,
	}
}

// BilledClientIDs collects the client IDs of every billing line, whatever
// its fee category.
func BilledClientIDs(lines []types.BillingLine) map[string]struct{} {
	ids := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if line.ClientID != "" {
			ids[line.ClientID] = struct{}{}
		}
	}
	return ids
}

// Build runs every master row through a new builder.
func Build(rows []types.ClientRow, billedClientIDs map[string]struct{}, logger zerolog.Logger) ([]types.Client, Stats) {
	b := NewBuilder(billedClientIDs, logger)
	out := make([]types.Client, 0, len(rows))
	for _, row := range rows {
		if c, ok := b.Add(row); ok {
			out = append(out, c)
		}
	}
	return out, b.Stats()
}

// Add converts one master row. It returns false when the row is skipped.
func (b *Builder) Add(row types.ClientRow) (types.Client, bool) {
	internal := normalize.Identifier(row.DSSClientID)
	external := normalize.Identifier(row.PracSuiteID)

	if internal == "" || external == "" {
		b.stats.MissingID++
		b.logger.Debug().Int("row", row.Row).Msg("client skipped: missing DSSClientID or PracSuiteID")
		return types.Client{}, false
	}
	if _, ok := b.billed[external]; !ok {
		b.stats.NotBilled++
		return types.Client{}, false
	}
	_, dupInternal := b.seenInternal[internal]
	_, dupExternal := b.seenExternal[external]
	if dupInternal || dupExternal {
		b.stats.Duplicate++
		b.logger.Debug().Int("row", row.Row).Str("client_id", external).Msg("client skipped: already emitted")
		return types.Client{}, false
	}

	client := newClient(external, row)

	b.seenInternal[internal] = struct{}{}
	b.seenExternal[external] = struct{}{}
	b.stats.Emitted++
	if client.Slk != nil {
		b.stats.WithSLK++
	} else {
		b.stats.WithNames++
	}

	return client, true
}

// Stats returns the counts so far.
func (b *Builder) Stats() Stats {
	return b.stats
}

// =============================================================================
// FIELD MAPPING
// =============================================================================

func newClient(clientID string, row types.ClientRow) types.Client {
	client := types.Client{
		ClientID:                   clientID,
		ConsentToProvideDetails:    normalize.BoolText(row.ConsentToProvideDetails),
		ConsentedForFutureContacts: normalize.BoolText(row.ConsentedForFutureContacts),
		IsUsingPseudonym:           normalize.BoolText(row.IsUsingPseudonym),
		BirthDate:                  normalize.CalendarDate(row.DateOfBirth),
		IsBirthDateAnEstimate:      normalize.BoolText(row.IsBirthDateAnEstimate),
		GenderCode:                 normalize.OrDefault(row.GenderCode, DefaultGenderCode),
		CountryOfBirthCode:         normalize.OrDefault(normalize.Identifier(row.CountryOfBirthCode), DefaultCountryOfBirthCode),
		LanguageSpokenAtHomeCode:   normalize.OrDefault(normalize.Identifier(row.LanguageSpokenAtHomeCode), DefaultLanguageCode),
		AccommodationTypeCode:      normalize.OrDefault(row.AccommodationTypeCode, DefaultAccommodationTypeCode),
		DVACardStatusCode:          normalize.OrDefault(row.DVACardStatusCode, normalize.NoValue),
		HasCarer:                   normalize.BoolText(row.HasCarer),
		ResidentialAddress: types.ResidentialAddress{
			AddressLine1: normalize.OrDefault(row.Address, normalize.NoValue),
			Suburb:       normalize.OrDefault(row.Town, normalize.NoValue),
			StateCode:    normalize.StateCode(row.County),
			Postcode:     normalize.OrDefault(normalize.Identifier(row.PostCode), normalize.NoValue),
		},
		HouseholdCompositionCode: normalize.OrDefault(row.HouseholdCompositionCode, normalize.NoValue),
	}

	client.AboriginalOrTorresStraitIslanderOriginCode = normalize.OrDefault(row.AboriginalOrTorresCode, DefaultAboriginalCode)

	hasDisabilities := HasDisabilities(row.Disabilities)
	client.HasDisabilities = normalize.BoolText(hasDisabilities)
	if hasDisabilities {
		client.Disabilities = &types.Disabilities{
			DisabilityCode: normalize.OrDefault(strings.TrimSpace(row.Disabilities), normalize.NoValue),
		}
	}

	if row.ConsentToProvideDetails {
		given := normalize.OrDefault(row.FirstName, normalize.NoValue)
		family := normalize.OrDefault(row.LastName, normalize.NoValue)
		client.GivenName = &given
		client.FamilyName = &family
	} else {
		slk := normalize.OrDefault(row.SLK, normalize.NoValue)
		client.Slk = &slk
	}

	return client
}

// HasDisabilities reports whether a Disabilities cell names a disability.
// Only the <NONE> marker means "no disabilities".
func HasDisabilities(value string) bool {
	return !strings.EqualFold(strings.TrimSpace(value), NoDisabilities)
}
