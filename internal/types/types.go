// =============================================================================
// DEX Report Converter - Shared Types
// =============================================================================
//
// This package contains the record types shared across the pipeline so that
// the readers, the builders, the validator and the XML writer can all depend
// on it without import cycles. Types defined here are used by:
//   - csvparser / xlsxparser (Table)
//   - sources                (input records)
//   - codes, clients, converter (lookups and output records)
//   - validation, xmlwriter  (output records)
//
// INPUT RECORDS are immutable snapshots of one source row, already trimmed and
// with numeric identifiers normalised (no trailing ".0").
//
// OUTPUT RECORDS carry their XML element names as struct tags. Optional
// elements are pointers: nil means the element is absent from the document.
//
// =============================================================================

package types

import "encoding/xml"

// =============================================================================
// TABULAR SOURCE DATA
// =============================================================================

// Table is one tabular source read into memory.
type Table struct {
	// Headers contains the column headers in source order.
	Headers []string

	// Rows contains the data rows as maps of header -> value, in source order.
	Rows []map[string]string

	// SourceFile is the path the table was read from.
	SourceFile string
}

// =============================================================================
// INPUT RECORDS
// =============================================================================

// BillingLine is one row of the billing ledger.
type BillingLine struct {
	ClientID    string
	InvoiceID   string
	ServiceCode string
	Schedule    string
	// ItemDate is the raw cell value; it may be an Excel serial number.
	ItemDate    string
	FeeCategory string
	Fee         string

	// Row is the 1-indexed position in the source (for logging).
	Row int
}

// AppointmentRecord is one row of the appointment ledger.
type AppointmentRecord struct {
	ClientID        string
	AppointmentDate string
	Status          string
	AppointmentType string
	DurationMinutes int
	Row             int
}

// ServiceCodeRow is one row of the service code reference table.
type ServiceCodeRow struct {
	Code          string
	VisitType     string
	TotalTime     string
	Category      string
	ServiceTypeID string
}

// ClientRow is one row of the client master table.
type ClientRow struct {
	DSSClientID                string
	PracSuiteID                string
	SLK                        string
	ConsentToProvideDetails    bool
	ConsentedForFutureContacts bool
	FirstName                  string
	LastName                   string
	IsUsingPseudonym           bool
	DateOfBirth                string
	IsBirthDateAnEstimate      bool
	GenderCode                 string
	CountryOfBirthCode         string
	LanguageSpokenAtHomeCode   string
	AboriginalOrTorresCode     string
	Disabilities               string
	AccommodationTypeCode      string
	DVACardStatusCode          string
	HasCarer                   bool
	Address                    string
	Town                       string
	County                     string
	PostCode                   string
	HouseholdCompositionCode   string
	Row                        int
}

// =============================================================================
// OUTPUT RECORDS
// =============================================================================

// Client is one <Client> element.
//
// Presence predicates:
//   - Slk is set iff ConsentToProvideDetails is "false".
//   - GivenName and FamilyName are set iff ConsentToProvideDetails is "true".
//   - Disabilities is set iff HasDisabilities is "true".
type Client struct {
	XMLName                                    xml.Name           `xml:"Client"`
	ClientID                                   string             `xml:"ClientId"`
	Slk                                        *string            `xml:"Slk,omitempty"`
	ConsentToProvideDetails                    string             `xml:"ConsentToProvideDetails"`
	ConsentedForFutureContacts                 string             `xml:"ConsentedForFutureContacts"`
	GivenName                                  *string            `xml:"GivenName,omitempty"`
	FamilyName                                 *string            `xml:"FamilyName,omitempty"`
	IsUsingPseudonym                           string             `xml:"IsUsingPsuedonym"`
	BirthDate                                  string             `xml:"BirthDate"`
	IsBirthDateAnEstimate                      string             `xml:"IsBirthDateAnEstimate"`
	GenderCode                                 string             `xml:"GenderCode"`
	CountryOfBirthCode                         string             `xml:"CountryOfBirthCode"`
	LanguageSpokenAtHomeCode                   string             `xml:"LanguageSpokenAtHomeCode"`
	AboriginalOrTorresStraitIslanderOriginCode string             `xml:"AboriginalOrTorresStraitIslanderOriginCode"`
	HasDisabilities                            string             `xml:"HasDisabilities"`
	Disabilities                               *Disabilities      `xml:"Disabilities,omitempty"`
	AccommodationTypeCode                      string             `xml:"AccommodationTypeCode"`
	DVACardStatusCode                          string             `xml:"DVACardStatusCode"`
	HasCarer                                   string             `xml:"HasCarer"`
	ResidentialAddress                         ResidentialAddress `xml:"ResidentialAddress"`
	HouseholdCompositionCode                   string             `xml:"HouseholdCompositionCode"`
}

// Disabilities is the optional disability sub-record of a client.
type Disabilities struct {
	DisabilityCode string `xml:"DisabilityCode"`
}

// ResidentialAddress is the address sub-record of a client.
type ResidentialAddress struct {
	AddressLine1 string `xml:"AddressLine1"`
	Suburb       string `xml:"Suburb"`
	StateCode    string `xml:"StateCode"`
	Postcode     string `xml:"Postcode"`
}

// Case is one <Case> element. There is exactly one per client per run.
type Case struct {
	XMLName                          xml.Name    `xml:"Case"`
	CaseID                           string      `xml:"CaseId"`
	OutletActivityID                 string      `xml:"OutletActivityId"`
	TotalNumberOfUnidentifiedClients int         `xml:"TotalNumberOfUnidentifiedClients"`
	CaseClients                      CaseClients `xml:"CaseClients"`
}

// CaseClients groups the clients of a case.
type CaseClients struct {
	CaseClient []CaseClient `xml:"CaseClient"`
}

// CaseClient references a client from a case.
type CaseClient struct {
	ClientID string `xml:"ClientId"`
}

// Session is one <Session> element, derived from one qualifying billing line.
type Session struct {
	XMLName        xml.Name       `xml:"Session"`
	SessionID      string         `xml:"SessionId"`
	CaseID         string         `xml:"CaseId"`
	SessionDate    string         `xml:"SessionDate"`
	ServiceTypeID  string         `xml:"ServiceTypeId"`
	FeesCharged    string         `xml:"FeesCharged"`
	SessionClients SessionClients `xml:"SessionClients"`
	TimeMinutes    int            `xml:"TimeMinutes"`
}

// SessionClients groups the participants of a session.
type SessionClients struct {
	SessionClient []SessionClient `xml:"SessionClient"`
}

// SessionClient references a client participating in a session.
type SessionClient struct {
	ClientID          string `xml:"ClientId"`
	ParticipationCode string `xml:"ParticipationCode"`
}

// Report is the full record set for one run.
type Report struct {
	Clients  []Client
	Cases    []Case
	Sessions []Session
}

// InvoiceData is the per-line billing detail used to decide session emission.
// It is not part of the uploaded document.
type InvoiceData struct {
	InvoiceID string
	// ScheduledService is nil when no scheduled-service name was produced.
	ScheduledService *string
	FeeCategory      string
	Minutes          int
	ServiceTypeID    string
	// Row is the billing line the invoice was derived from.
	Row int
}
