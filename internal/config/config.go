// =============================================================================
// DEX Report Converter - Configuration Module
// =============================================================================
//
// This module is responsible for loading and validating the application
// configuration. A single YAML file describes:
//   1. Where the five sources live (billing, appointments, service codes,
//      client master, organisation registry)
//   2. Where the upload document is written and archived
//   3. The reporting constants (accepted fee category, outlet activity,
//      session identifier seed, category label rewrites)
//   4. Logging settings
//   5. How the document is rendered and how strictly it is validated
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultFeeCategory is the only fee category reported to DEX.
	DefaultFeeCategory = "CHSP - Payneham"

	// DefaultOutletActivityID is the outlet activity every case is filed under.
	DefaultOutletActivityID = "10714"

	// DefaultOutputFileFormat names the generated upload document.
	DefaultOutputFileFormat = "dex_{timestamp}_{uuid}.xml"
)

// DefaultCategoryRewrites repairs the category labels of the service code
// table so they match the service type names in the organisation registry.
// Rewrites are applied in order.
func DefaultCategoryRewrites() []Rewrite {
	return []Rewrite{
		{Find: "&", Value: "and"},
		{Find: "Ongoing Allied Health andTherapy Services", Value: "Ongoing Allied Health and Therapy Services"},
	}
}

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// SOURCES
	// =========================================================================

	// Sources lists the input files of a run.
	Sources Sources `yaml:"sources"`

	// CSVSettings applies to any tabular source with a .csv extension.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is where the upload document is written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// OutputArchiveDir receives a copy of every written document.
	// Leave empty to disable archiving.
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// OutputFileFormat names the upload document.
	// Placeholders: {uuid}, {timestamp}, {date}, {time}
	// Default: "dex_{timestamp}_{uuid}.xml"
	OutputFileFormat string `yaml:"output_file_format"`

	// XMLOutput controls how the upload document is rendered.
	XMLOutput XMLOutput `yaml:"xml_output"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" (console) or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// ContinueOnError writes the document even when output validation
	// reports problems.
	// Default: false
	ContinueOnError bool `yaml:"continue_on_error"`

	// Validation tunes the checks run on the report before it is written.
	Validation ValidationSettings `yaml:"validation"`

	// Reporting holds the constants of the DEX reporting rules.
	Reporting Reporting `yaml:"reporting"`
}

// Sources lists the five input files.
type Sources struct {
	Billing      string `yaml:"billing"`
	Appointments string `yaml:"appointments"`
	ServiceCodes string `yaml:"service_codes"`
	Clients      string `yaml:"clients"`
	Organisation string `yaml:"organisation"`

	// Sheet selects the worksheet of XLSX sources. Empty means the first sheet.
	Sheet string `yaml:"sheet"`
}

// Reporting holds the constants of the reporting rules.
type Reporting struct {
	// AcceptedFeeCategory is the only fee category that produces cases and sessions.
	AcceptedFeeCategory string `yaml:"accepted_fee_category"`

	// OutletActivityID is combined with the client identifier to form case identifiers.
	OutletActivityID string `yaml:"outlet_activity_id"`

	// SessionIDSeed is the first session identifier of the run.
	// Zero means "seed from the wall clock at start-up".
	SessionIDSeed int64 `yaml:"session_id_seed"`

	// CategoryRewrites normalise service code category labels.
	CategoryRewrites []Rewrite `yaml:"category_rewrites"`
}

// XMLOutput contains settings for rendering the upload document.
type XMLOutput struct {
	// Indent is the string used for each level of indentation.
	// Default: "  " (two spaces)
	Indent string `yaml:"indent"`

	// Compact writes the document on a single line and ignores Indent.
	Compact bool `yaml:"compact"`

	// OmitDeclaration leaves out the <?xml ...?> declaration.
	OmitDeclaration bool `yaml:"omit_declaration"`

	// RootAttributes are added to the DEXFileUpload element.
	RootAttributes map[string]string `yaml:"root_attributes"`
}

// ValidationSettings contains settings for report validation.
type ValidationSettings struct {
	// StopOnFirstError stops checking after the first error.
	StopOnFirstError bool `yaml:"stop_on_first_error"`

	// TreatWarningsAsErrors makes warnings such as an unknown service type
	// block the write.
	TreatWarningsAsErrors bool `yaml:"treat_warnings_as_errors"`
}

// Rewrite replaces every occurrence of Find with Value.
type Rewrite struct {
	Find  string `yaml:"find"`
	Value string `yaml:"value"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV sources.
type CSVSettings struct {
	// Delimiter is the character used to separate fields.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the 1-indexed row where data begins.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file, applies
// defaults and validates the result.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// ApplyDefaults sets default values for any unset configuration options.
func ApplyDefaults(config *MainConfig) {
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.OutputFileFormat == "" {
		config.OutputFileFormat = DefaultOutputFileFormat
	}
	if config.XMLOutput.Indent == "" {
		config.XMLOutput.Indent = "  "
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}

	// CSV settings defaults.
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.HeaderRows == 0 {
		config.CSVSettings.HeaderRows = 1
	}
	if config.CSVSettings.DataStartRow == 0 {
		config.CSVSettings.DataStartRow = config.CSVSettings.HeaderRows + 1
	}

	// Reporting defaults.
	if config.Reporting.AcceptedFeeCategory == "" {
		config.Reporting.AcceptedFeeCategory = DefaultFeeCategory
	}
	if config.Reporting.OutletActivityID == "" {
		config.Reporting.OutletActivityID = DefaultOutletActivityID
	}
	if config.Reporting.CategoryRewrites == nil {
		config.Reporting.CategoryRewrites = DefaultCategoryRewrites()
	}
}

// Validate checks that every source is configured and that the settings
// are usable. It does not check that the files exist; that is the job of
// the source loader, which treats a missing file as fatal.
func (c *MainConfig) Validate() error {
	var errs []error

	required := []struct {
		name, path string
	}{
		{"sources.billing", c.Sources.Billing},
		{"sources.appointments", c.Sources.Appointments},
		{"sources.service_codes", c.Sources.ServiceCodes},
		{"sources.clients", c.Sources.Clients},
		{"sources.organisation", c.Sources.Organisation},
	}
	for _, r := range required {
		if strings.TrimSpace(r.path) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if c.CSVSettings.HeaderRows < 1 {
		errs = append(errs, fmt.Errorf("csv_settings.header_rows must be at least 1"))
	}
	if c.CSVSettings.DataStartRow <= c.CSVSettings.HeaderRows {
		errs = append(errs, fmt.Errorf("csv_settings.data_start_row must come after the header rows"))
	}
	if c.Reporting.SessionIDSeed < 0 {
		errs = append(errs, fmt.Errorf("reporting.session_id_seed must not be negative"))
	}
	if strings.Trim(c.XMLOutput.Indent, " \t") != "" {
		errs = append(errs, fmt.Errorf("xml_output.indent may only contain spaces and tabs"))
	}
	for name := range c.XMLOutput.RootAttributes {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " \t<>\"'=") {
			errs = append(errs, fmt.Errorf("xml_output.root_attributes: invalid attribute name %q", name))
		}
	}
	for i, rw := range c.Reporting.CategoryRewrites {
		if rw.Find == "" {
			errs = append(errs, fmt.Errorf("reporting.category_rewrites[%d].find is empty", i))
		}
	}

	return errors.Join(errs...)
}
