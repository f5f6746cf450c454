// =============================================================================
// DEX Report Converter - Converter Module
// =============================================================================
//
// This module orchestrates a run, from loading the sources to writing the
// upload document.
//
// CONVERSION PIPELINE:
//   1. Load the four tabular sources and the organisation registry
//   2. Build the lookups (service codes, service types, appointments)
//   3. Build the client records
//   4. Transform billing lines into cases and sessions
//   5. Validate the report
//   6. Generate the XML document
//   7. Write, archive and summarise the output
//
// ERRORS:
//   Every failure is returned as a *PipelineError naming the phase it came
//   from, so the command line can map it to an exit code. Nothing is written
//   when a phase before the write fails.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/dexreport/internal/clients"
	"github.com/ginjaninja78/dexreport/internal/codes"
	"github.com/ginjaninja78/dexreport/internal/config"
	"github.com/ginjaninja78/dexreport/internal/registry"
	"github.com/ginjaninja78/dexreport/internal/sequence"
	"github.com/ginjaninja78/dexreport/internal/sources"
	"github.com/ginjaninja78/dexreport/internal/types"
	"github.com/ginjaninja78/dexreport/internal/validation"
	"github.com/ginjaninja78/dexreport/internal/xmlwriter"
	"github.com/ginjaninja78/dexreport/pkg/utils"
)

// =============================================================================
// PIPELINE ERRORS
// =============================================================================

// Phase names a stage of the pipeline.
type Phase string

const (
	PhaseConfig    Phase = "config"
	PhaseLoad      Phase = "load"
	PhaseTransform Phase = "transform"
	PhaseValidate  Phase = "validate"
	PhaseWrite     Phase = "write"
)

// PipelineError wraps a failure with the phase it occurred in.
type PipelineError struct {
	Phase Phase
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ErrValidationFailed is wrapped by the validate-phase error.
var ErrValidationFailed = errors.New("report failed validation")

func phaseError(phase Phase, err error) *PipelineError {
	return &PipelineError{Phase: phase, Err: err}
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of a run.
type Result struct {
	// Report is the generated record set.
	Report *types.Report

	// Invoices is the per-line billing detail behind the sessions.
	Invoices []types.InvoiceData

	// Validation holds the problems found in the report.
	Validation *validation.ValidationResult

	// Document is the rendered upload document.
	Document []byte

	// OutputFile is the path of the written document. Empty on a dry run.
	OutputFile string

	ArchivePath string
	ErrorLog    string
	SummaryFile string

	Stats ProcessingStats
}

// ProcessingStats contains statistics about the run.
type ProcessingStats struct {
	BillingRows     int
	AppointmentRows int
	ServiceCodeRows int
	ClientRows      int
	ServiceTypes    int

	Clients   clients.Stats
	Transform TransformStats

	// FirstSessionID is the seed of the run; NextSessionID is the value the
	// sequence would hand out next.
	FirstSessionID int64
	NextSessionID  int64

	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options adjust a single run.
type Options struct {
	// DryRun builds and validates the report without writing files.
	DryRun bool

	// SessionSeed overrides the first session ID. Zero falls back to the
	// configured seed, then to the wall clock.
	SessionSeed int64
}

// Converter runs the pipeline for one configuration.
type Converter struct {
	cfg    *config.MainConfig
	logger zerolog.Logger
	files  *utils.FileManager
	now    func() time.Time
}

// New creates a new Converter instance.
func New(cfg *config.MainConfig, logger zerolog.Logger) *Converter {
	return &Converter{
		cfg:    cfg,
		logger: logger,
		files:  utils.NewFileManager(cfg.OutputDir, cfg.OutputArchiveDir),
		now:    time.Now,
	}
}

// WithClock replaces the clock used for seeding and file names.
func (c *Converter) WithClock(now func() time.Time) *Converter {
	c.now = now
	c.files.Now = now
	return c
}

// Inputs are the fully materialised sources of a run.
type Inputs struct {
	Data     *sources.Dataset
	Registry *registry.Index
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion pipeline.
func (c *Converter) Run(ctx context.Context, opts Options) (*Result, error) {
	start := c.now()
	result := &Result{}

	// =========================================================================
	// STEP 1: LOAD SOURCES
	// =========================================================================

	inputs, err := c.LoadInputs(ctx)
	if err != nil {
		return nil, err
	}
	result.Stats.BillingRows = len(inputs.Data.Billing)
	result.Stats.AppointmentRows = len(inputs.Data.Appointments)
	result.Stats.ServiceCodeRows = len(inputs.Data.ServiceCodes)
	result.Stats.ClientRows = len(inputs.Data.Clients)
	result.Stats.ServiceTypes = inputs.Registry.Len()

	// =========================================================================
	// STEPS 2-4: BUILD THE REPORT
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return nil, phaseError(PhaseTransform, err)
	}

	ids := sequence.NewCounter(c.seed(opts))
	result.Stats.FirstSessionID = ids.Peek()

	report, transformed, clientStats := BuildReport(inputs, ids, c.cfg.Reporting, c.logger)
	result.Report = report
	result.Invoices = transformed.Invoices
	result.Stats.Transform = transformed.Stats
	result.Stats.Clients = clientStats
	result.Stats.NextSessionID = ids.Peek()

	c.logger.Info().
		Int("clients", len(report.Clients)).
		Int("cases", len(report.Cases)).
		Int("sessions", len(report.Sessions)).
		Int("lines_filtered", transformed.Stats.LinesFiltered).
		Msg("report built")

	// =========================================================================
	// STEP 5: VALIDATE
	// =========================================================================

	result.Validation = validation.NewValidator(validation.ValidationOptions{
		StopOnFirstError:      c.cfg.Validation.StopOnFirstError,
		TreatWarningsAsErrors: c.cfg.Validation.TreatWarningsAsErrors,
	}).Validate(report)
	for _, ve := range result.Validation.Errors {
		ev := c.logger.Warn()
		if ve.Severity == validation.SeverityError {
			ev = c.logger.Error()
		}
		ev.Str("rule", ve.Rule).Str("record", ve.Record).Str("id", ve.ID).Msg(ve.Message)
	}

	if !result.Validation.IsValid && !c.cfg.ContinueOnError {
		if !opts.DryRun {
			result.ErrorLog = c.writeErrorLog(result.Validation)
		}
		return result, phaseError(PhaseValidate,
			fmt.Errorf("%w: %d errors", ErrValidationFailed, result.Validation.ErrorCount))
	}

	// =========================================================================
	// STEP 6: GENERATE XML DOCUMENT
	// =========================================================================

	doc, err := xmlwriter.GenerateWithOptions(report, generateOptions(c.cfg.XMLOutput))
	if err != nil {
		return result, phaseError(PhaseWrite, err)
	}
	result.Document = doc

	if opts.DryRun {
		result.Stats.ProcessingTime = c.now().Sub(start)
		c.logger.Info().Int("bytes", len(doc)).Msg("dry run, nothing written")
		return result, nil
	}

	// =========================================================================
	// STEP 7: WRITE OUTPUT
	// =========================================================================

	if err := c.files.EnsureDirectories(); err != nil {
		return result, phaseError(PhaseWrite, err)
	}

	name := utils.GenerateOutputFileName(c.cfg.OutputFileFormat, c.now(),
		map[string]string{"outlet": c.cfg.Reporting.OutletActivityID})
	outputPath, err := c.files.WriteOutput(name, doc)
	if err != nil {
		return result, phaseError(PhaseWrite, err)
	}
	result.OutputFile = outputPath
	c.logger.Info().Str("path", outputPath).Msg("upload document written")

	if archived, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		// The document itself is in place; a failed archive copy is not fatal.
		c.logger.Warn().Err(err).Msg("failed to archive output")
	} else {
		result.ArchivePath = archived
	}

	result.ErrorLog = c.writeErrorLog(result.Validation)

	result.Stats.ProcessingTime = c.now().Sub(start)
	summaryPath, err := c.files.WriteSummaryLog(c.summary(result, start))
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to write summary")
	} else {
		result.SummaryFile = summaryPath
	}

	return result, nil
}

// LoadInputs reads the tabular sources and the organisation registry
// concurrently. A missing or unreadable source fails the whole load.
func (c *Converter) LoadInputs(ctx context.Context) (*Inputs, error) {
	inputs := &Inputs{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := sources.Load(gctx, c.cfg.Sources, c.cfg.CSVSettings)
		if err != nil {
			return err
		}
		inputs.Data = data
		return nil
	})
	g.Go(func() error {
		idx, err := registry.Load(c.cfg.Sources.Organisation, c.logger)
		if err != nil {
			return fmt.Errorf("load organisation source: %w", err)
		}
		inputs.Registry = idx
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, phaseError(PhaseLoad, err)
	}

	c.logger.Info().
		Int("billing", len(inputs.Data.Billing)).
		Int("appointments", len(inputs.Data.Appointments)).
		Int("service_codes", len(inputs.Data.ServiceCodes)).
		Int("clients", len(inputs.Data.Clients)).
		Int("service_types", inputs.Registry.Len()).
		Msg("sources loaded")

	return inputs, nil
}

// BuildReport joins the inputs into a report. It does no I/O; given the same
// inputs and the same starting identifier it always produces the same report.
func BuildReport(inputs *Inputs, ids sequence.Generator, reporting config.Reporting, logger zerolog.Logger) (*types.Report, TransformResult, clients.Stats) {
	codeTable := codes.Build(inputs.Data.ServiceCodes, reporting.CategoryRewrites, logger)

	clientRecords, clientStats := clients.Build(
		inputs.Data.Clients,
		clients.BilledClientIDs(inputs.Data.Billing),
		logger,
	)

	lookups := Lookups{
		Codes:        codeTable,
		ServiceTypes: inputs.Registry,
		Appointments: NewAppointmentIndex(inputs.Data.Appointments),
	}
	transformed := Transform(inputs.Data.Billing, lookups, ids, reporting, logger)

	report := &types.Report{
		Clients:  clientRecords,
		Cases:    transformed.Cases,
		Sessions: transformed.Sessions,
	}
	return report, transformed, clientStats
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateOptions maps the xml_output settings onto the writer options.
func generateOptions(out config.XMLOutput) xmlwriter.GenerateOptions {
	opts := xmlwriter.DefaultGenerateOptions()
	opts.Indent = out.Indent
	if out.Compact {
		opts.Indent = ""
	}
	opts.IncludeXMLDeclaration = !out.OmitDeclaration
	for k, v := range out.RootAttributes {
		opts.RootAttributes[k] = v
	}
	return opts
}

// seed picks the first session ID of the run.
func (c *Converter) seed(opts Options) int64 {
	if opts.SessionSeed > 0 {
		return opts.SessionSeed
	}
	if c.cfg.Reporting.SessionIDSeed > 0 {
		return c.cfg.Reporting.SessionIDSeed
	}
	return sequence.NewClockCounter(c.now()).Peek()
}

func (c *Converter) writeErrorLog(res *validation.ValidationResult) string {
	if res == nil || len(res.Errors) == 0 {
		return ""
	}
	if err := c.files.EnsureDirectories(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to write error log")
		return ""
	}

	entries := make([]utils.ErrorLogEntry, 0, len(res.Errors))
	for _, ve := range res.Errors {
		entries = append(entries, utils.ErrorLogEntry{
			Severity:     ve.Severity,
			Record:       ve.Record,
			RecordID:     ve.ID,
			FieldName:    ve.Field,
			FieldValue:   ve.Value,
			Rule:         ve.Rule,
			ErrorMessage: ve.Message,
		})
	}

	path, err := c.files.WriteErrorLog(entries)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to write error log")
		return ""
	}
	return path
}

func (c *Converter) summary(result *Result, start time.Time) utils.ProcessingSummary {
	s := result.Stats
	src := c.cfg.Sources
	return utils.ProcessingSummary{
		StartTime:   start,
		EndTime:     start.Add(s.ProcessingTime),
		OutputFile:  result.OutputFile,
		ArchivePath: result.ArchivePath,
		Sources: []utils.SourceInfo{
			{Name: "billing", Path: src.Billing, Rows: s.BillingRows},
			{Name: "appointments", Path: src.Appointments, Rows: s.AppointmentRows},
			{Name: "service codes", Path: src.ServiceCodes, Rows: s.ServiceCodeRows},
			{Name: "clients", Path: src.Clients, Rows: s.ClientRows},
			{Name: "organisation", Path: src.Organisation, Rows: s.ServiceTypes},
		},
		Counts: []utils.Count{
			{Name: "Clients", Value: len(result.Report.Clients)},
			{Name: "Cases", Value: len(result.Report.Cases)},
			{Name: "Sessions", Value: len(result.Report.Sessions)},
			{Name: "Billing Lines Filtered", Value: s.Transform.LinesFiltered},
			{Name: "Billing Lines Without Client", Value: s.Transform.LinesMissingClient},
			{Name: "Lines Without Session", Value: s.Transform.LinesWithoutSession},
			{Name: "Unknown Service Codes", Value: s.Transform.UnknownCodes},
			{Name: "Unknown Service Types", Value: s.Transform.UnknownServiceTypes},
			{Name: "Appointment Misses", Value: s.Transform.AppointmentMisses},
			{Name: "Clients Not Billed", Value: s.Clients.NotBilled},
			{Name: "Clients Duplicate", Value: s.Clients.Duplicate},
			{Name: "Clients Missing ID", Value: s.Clients.MissingID},
		},
		ValidationErrors:   result.Validation.ErrorCount,
		ValidationWarnings: result.Validation.WarningCount,
	}
}
