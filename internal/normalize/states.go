package normalize

import "strings"

// stateCodes maps Australian state and territory names to their codes.
var stateCodes = map[string]string{
	"new south wales":              "NSW",
	"victoria":                     "VIC",
	"queensland":                   "QLD",
	"south australia":              "SA",
	"western australia":            "WA",
	"tasmania":                     "TAS",
	"northern territory":           "NT",
	"australian capital territory": "ACT",
}

// StateCode converts a state name from the client master table to its code.
// Unknown names pass through unchanged; blanks become NoValue.
func StateCode(county string) string {
	county = strings.TrimSpace(county)
	if county == "" {
		return NoValue
	}
	if code, ok := stateCodes[strings.ToLower(county)]; ok {
		return code
	}
	return county
}
