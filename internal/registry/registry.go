// =============================================================================
// DEX Report Converter - Service Type Registry
// =============================================================================
//
// This module flattens the organisation registry document into a lookup from
// service type name to the ServiceTypeId expected by DEX.
//
// DOCUMENT SHAPE (Expected):
//
//   <Organisation>
//     <OrganisationActivities>
//       <OrganisationActivity>
//         <ServiceTypes>
//           <ServiceType>
//             <Name>Allied Health and Therapy Services</Name>
//             <ServiceTypeId>7</ServiceTypeId>
//           </ServiceType>
//         </ServiceTypes>
//       </OrganisationActivity>
//     </OrganisationActivities>
//   </Organisation>
//
// Only ServiceType elements nested (at any depth) inside an
// OrganisationActivity are indexed. When a name appears more than once the
// later node wins; the overwrite is logged at warn level because it changes
// which identifier is reported.
//
// =============================================================================

package registry

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Index maps service type names to service type identifiers. It is built once
// per run and read-only afterwards.
type Index struct {
	ids map[string]string
}

// serviceType is the decoded form of one ServiceType element.
type serviceType struct {
	Name          string `xml:"Name"`
	ServiceTypeID string `xml:"ServiceTypeId"`
}

// NewIndex builds an index directly from name/identifier pairs.
func NewIndex(ids map[string]string) *Index {
	copied := make(map[string]string, len(ids))
	for k, v := range ids {
		copied[k] = v
	}
	return &Index{ids: copied}
}

// Load reads the organisation registry at path.
func Load(path string, logger zerolog.Logger) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open organisation registry: %w", err)
	}
	defer f.Close()

	idx, err := Read(f, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

// Read streams a registry document from r.
func Read(r io.Reader, logger zerolog.Logger) (*Index, error) {
	dec := xml.NewDecoder(r)
	idx := &Index{ids: make(map[string]string)}

	// Depth of open OrganisationActivity elements.
	activityDepth := 0
	sawRoot := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse organisation registry: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			switch t.Name.Local {
			case "OrganisationActivity":
				activityDepth++
			case "ServiceType":
				if activityDepth == 0 {
					if err := dec.Skip(); err != nil {
						return nil, fmt.Errorf("failed to parse organisation registry: %w", err)
					}
					continue
				}
				var st serviceType
				if err := dec.DecodeElement(&st, &t); err != nil {
					return nil, fmt.Errorf("failed to decode ServiceType: %w", err)
				}
				idx.add(strings.TrimSpace(st.Name), strings.TrimSpace(st.ServiceTypeID), logger)
			}
		case xml.EndElement:
			if t.Name.Local == "OrganisationActivity" && activityDepth > 0 {
				activityDepth--
			}
		}
	}

	if !sawRoot {
		return nil, fmt.Errorf("organisation registry is empty")
	}

	logger.Debug().Int("service_types", idx.Len()).Msg("organisation registry indexed")
	return idx, nil
}

func (idx *Index) add(name, id string, logger zerolog.Logger) {
	if name == "" {
		return
	}
	if prev, ok := idx.ids[name]; ok && prev != id {
		logger.Warn().
			Str("service_type", name).
			Str("previous_id", prev).
			Str("id", id).
			Msg("duplicate service type name, later registry entry wins")
	}
	idx.ids[name] = id
}

// Lookup returns the service type identifier for name.
func (idx *Index) Lookup(name string) (string, bool) {
	if idx == nil {
		return "", false
	}
	id, ok := idx.ids[name]
	return id, ok
}

// Len returns the number of indexed service type names.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.ids)
}
