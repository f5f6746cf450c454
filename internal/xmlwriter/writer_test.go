package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/dexreport/internal/types"
)

func str(s string) *string { return &s }

func sampleReport() *types.Report {
	return &types.Report{
		Clients: []types.Client{{
			ClientID:                   "1024",
			Slk:                        str("DOEJA010119801"),
			ConsentToProvideDetails:    "false",
			ConsentedForFutureContacts: "true",
			IsUsingPseudonym:           "false",
			BirthDate:                  "1980-01-01",
			IsBirthDateAnEstimate:      "false",
			GenderCode:                 "NOTSTATED",
			CountryOfBirthCode:         "1101",
			LanguageSpokenAtHomeCode:   "1201",
			AboriginalOrTorresStraitIslanderOriginCode: "NO",
			HasDisabilities:       "true",
			Disabilities:          &types.Disabilities{DisabilityCode: "PHYS"},
			AccommodationTypeCode: "NOTSTATED",
			DVACardStatusCode:     "NODVA",
			HasCarer:              "false",
			ResidentialAddress: types.ResidentialAddress{
				AddressLine1: "1 Main St & Co",
				Suburb:       "Payneham",
				StateCode:    "SA",
				Postcode:     "5070",
			},
			HouseholdCompositionCode: "GROUP",
		}},
		Cases: []types.Case{{
			CaseID:           "1024_10714",
			OutletActivityID: "10714",
			CaseClients:      types.CaseClients{CaseClient: []types.CaseClient{{ClientID: "1024"}}},
		}},
		Sessions: []types.Session{{
			SessionID:     "1700000000",
			CaseID:        "1024_10714",
			SessionDate:   "2024-01-15",
			ServiceTypeID: "7",
			FeesCharged:   "85",
			SessionClients: types.SessionClients{
				SessionClient: []types.SessionClient{{ClientID: "1024", ParticipationCode: "CLIENT"}},
			},
			TimeMinutes: 45,
		}},
	}
}

// assertOrder checks that each element appears after the previous one.
func assertOrder(t *testing.T, doc string, elements ...string) {
	t.Helper()
	last := -1
	for _, el := range elements {
		idx := strings.Index(doc, "<"+el+">")
		require.GreaterOrEqual(t, idx, 0, "missing <%s>", el)
		assert.Greater(t, idx, last, "<%s> out of order", el)
		last = idx
	}
}

func TestGenerate_Structure(t *testing.T) {
	out, err := Generate(sampleReport())
	require.NoError(t, err)
	doc := string(out)

	assert.True(t, strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`+"\n<DEXFileUpload>"))
	assertOrder(t, doc, "Clients", "Cases", "Sessions")
	assertOrder(t, doc,
		"ClientId", "Slk", "ConsentToProvideDetails", "ConsentedForFutureContacts",
		"IsUsingPsuedonym", "BirthDate", "IsBirthDateAnEstimate", "GenderCode",
		"CountryOfBirthCode", "LanguageSpokenAtHomeCode",
		"AboriginalOrTorresStraitIslanderOriginCode", "HasDisabilities", "Disabilities",
		"DisabilityCode", "AccommodationTypeCode", "DVACardStatusCode", "HasCarer",
		"ResidentialAddress", "AddressLine1", "Suburb", "StateCode", "Postcode",
		"HouseholdCompositionCode")
	assertOrder(t, doc, "CaseId", "OutletActivityId", "TotalNumberOfUnidentifiedClients",
		"CaseClients", "CaseClient")
	assertOrder(t, doc, "SessionId", "SessionDate", "ServiceTypeId", "FeesCharged",
		"SessionClients", "SessionClient", "ParticipationCode", "TimeMinutes")

	assert.NotContains(t, doc, "<GivenName>")
	assert.NotContains(t, doc, "<FamilyName>")
	assert.Contains(t, doc, "<AddressLine1>1 Main St &amp; Co</AddressLine1>")
	assert.Contains(t, doc, "<TotalNumberOfUnidentifiedClients>0</TotalNumberOfUnidentifiedClients>")
	assert.Contains(t, doc, "    <Client>\n      <ClientId>1024</ClientId>")
}

func TestGenerate_OmitsDisabilitiesAndSLK(t *testing.T) {
	r := sampleReport()
	r.Clients[0].Slk = nil
	r.Clients[0].GivenName = str("Jane")
	r.Clients[0].FamilyName = str("Doe")
	r.Clients[0].HasDisabilities = "false"
	r.Clients[0].Disabilities = nil

	out, err := Generate(r)
	require.NoError(t, err)
	doc := string(out)

	assert.NotContains(t, doc, "<Slk>")
	assert.NotContains(t, doc, "<Disabilities>")
	assertOrder(t, doc, "ConsentedForFutureContacts", "GivenName", "FamilyName", "IsUsingPsuedonym")
}

func TestGenerateWithOptions(t *testing.T) {
	opts := GenerateOptions{
		Indent:         "",
		RootAttributes: map[string]string{"version": "2", "a": "1"},
	}
	out, err := GenerateWithOptions(&types.Report{}, opts)
	require.NoError(t, err)
	assert.Equal(t,
		`<DEXFileUpload a="1" version="2"><Clients></Clients><Cases></Cases><Sessions></Sessions></DEXFileUpload>`+"\n",
		string(out))
}

func TestWrite_NilReport(t *testing.T) {
	require.Error(t, Write(&bytes.Buffer{}, nil, DefaultGenerateOptions()))
}

func TestParse_RoundTrip(t *testing.T) {
	want := sampleReport()
	out, err := Generate(want)
	require.NoError(t, err)

	got, err := Parse(bytes.NewReader(out))
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, cmpopts.IgnoreTypes(xml.Name{})); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
