// =============================================================================
// DEX Report Converter - XML Writer Module
// =============================================================================
//
// This module renders a report as the DEXFileUpload document.
//
// XML STRUCTURE:
//
//   <DEXFileUpload>
//     <Clients>
//       <Client>
//         <ClientId>1024</ClientId>
//         <Slk>DOEJA010119801</Slk>          <!-- or GivenName/FamilyName -->
//         ...
//         <ResidentialAddress>
//           <AddressLine1>1 Main St</AddressLine1>
//           ...
//         </ResidentialAddress>
//       </Client>
//     </Clients>
//     <Cases>
//       <Case>
//         <CaseId>1024_10714</CaseId>
//         ...
//         <CaseClients><CaseClient><ClientId>1024</ClientId></CaseClient></CaseClients>
//       </Case>
//     </Cases>
//     <Sessions>
//       <Session>
//         <SessionId>1700000000</SessionId>
//         ...
//       </Session>
//     </Sessions>
//   </DEXFileUpload>
//
// Element order and names come from the struct tags in internal/types.
// Optional elements (Slk, GivenName, FamilyName, Disabilities) are left out
// entirely when absent, never written empty.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"

	"github.com/ginjaninja78/dexreport/internal/types"
)

// RootElement is the document element of a DEX upload.
const RootElement = "DEXFileUpload"

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation. Empty writes the document
	// on a single line.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// XMLVersion is the XML version for the declaration.
	// Default: "1.0"
	XMLVersion string

	// Encoding is the encoding for the XML declaration.
	// Default: "UTF-8"
	Encoding string

	// RootAttributes are additional attributes for the root element.
	// Example: {"xmlns": "http://example.com/schema"}
	RootAttributes map[string]string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		XMLVersion:            "1.0",
		Encoding:              "UTF-8",
		RootAttributes:        make(map[string]string),
	}
}

// =============================================================================
// XML DOCUMENT
// =============================================================================

// Document is the root of the upload document.
type Document struct {
	XMLName  xml.Name   `xml:"DEXFileUpload"`
	Attrs    []xml.Attr `xml:",attr"`
	Clients  Clients    `xml:"Clients"`
	Cases    Cases      `xml:"Cases"`
	Sessions Sessions   `xml:"Sessions"`
}

// Clients is the <Clients> collection.
type Clients struct {
	Client []types.Client `xml:"Client"`
}

// Cases is the <Cases> collection.
type Cases struct {
	Case []types.Case `xml:"Case"`
}

// Sessions is the <Sessions> collection.
type Sessions struct {
	Session []types.Session `xml:"Session"`
}

// NewDocument wraps a report in the upload document.
func NewDocument(report *types.Report, options GenerateOptions) *Document {
	doc := &Document{
		Clients:  Clients{Client: report.Clients},
		Cases:    Cases{Case: report.Cases},
		Sessions: Sessions{Session: report.Sessions},
	}

	// Sorted so that the output does not depend on map order.
	keys := make([]string, 0, len(options.RootAttributes))
	for k := range options.RootAttributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		doc.Attrs = append(doc.Attrs, xml.Attr{
			Name:  xml.Name{Local: k},
			Value: options.RootAttributes[k],
		})
	}

	return doc
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate renders the report with the default options.
func Generate(report *types.Report) ([]byte, error) {
	return GenerateWithOptions(report, DefaultGenerateOptions())
}

// GenerateWithOptions renders the report with custom options.
func GenerateWithOptions(report *types.Report, options GenerateOptions) ([]byte, error) {
	var buffer bytes.Buffer
	if err := Write(&buffer, report, options); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Write streams the document to w.
func Write(w io.Writer, report *types.Report, options GenerateOptions) error {
	if report == nil {
		return fmt.Errorf("no report to write")
	}
	if options.XMLVersion == "" {
		options.XMLVersion = "1.0"
	}
	if options.Encoding == "" {
		options.Encoding = "UTF-8"
	}

	if options.IncludeXMLDeclaration {
		if _, err := fmt.Fprintf(w, "<?xml version=\"%s\" encoding=\"%s\"?>\n",
			options.XMLVersion, options.Encoding); err != nil {
			return fmt.Errorf("failed to write XML declaration: %w", err)
		}
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", options.Indent)
	if err := enc.Encode(NewDocument(report, options)); err != nil {
		return fmt.Errorf("failed to marshal XML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to marshal XML: %w", err)
	}

	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to write XML: %w", err)
	}
	return nil
}

// Parse reads an upload document back into a report.
func Parse(r io.Reader) (*types.Report, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse upload document: %w", err)
	}
	return &types.Report{
		Clients:  doc.Clients.Client,
		Cases:    doc.Cases.Case,
		Sessions: doc.Sessions.Session,
	}, nil
}
