package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/dexreport/internal/converter"
	"github.com/ginjaninja78/dexreport/internal/exitcode"
)

func TestExitCodeFor(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitcode.Success},
		{"plain error", cause, exitcode.UsageError},
		{"config", &converter.PipelineError{Phase: converter.PhaseConfig, Err: cause}, exitcode.UsageError},
		{"load", &converter.PipelineError{Phase: converter.PhaseLoad, Err: cause}, exitcode.SourceError},
		{"transform", &converter.PipelineError{Phase: converter.PhaseTransform, Err: cause}, exitcode.TransformError},
		{"validate", &converter.PipelineError{Phase: converter.PhaseValidate, Err: cause}, exitcode.TransformError},
		{"write", &converter.PipelineError{Phase: converter.PhaseWrite, Err: cause}, exitcode.WriteError},
		{"wrapped", fmt.Errorf("run: %w", &converter.PipelineError{Phase: converter.PhaseLoad, Err: cause}), exitcode.SourceError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	old := cfgFile
	t.Cleanup(func() { cfgFile = old })
	cfgFile = filepath.Join(t.TempDir(), "missing.yaml")

	cfg, _, err := loadConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Equal(t, exitcode.UsageError, exitCodeFor(err))
}

func TestLoadConfigVerboseForcesDebug(t *testing.T) {
	oldCfg, oldVerbose, oldFormat := cfgFile, verbose, logFormat
	t.Cleanup(func() { cfgFile, verbose, logFormat = oldCfg, oldVerbose, oldFormat })

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  billing: billing.xlsx
  appointments: appointments.xlsx
  service_codes: codes.xlsx
  clients: clients.xlsx
  organisation: organisation.xml
log_level: warn
`), 0o644))

	cfgFile, verbose, logFormat = path, true, "json"
	cfg, log, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "debug", log.GetLevel().String())
}
