package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	dir := t.TempDir()
	fm := NewFileManager(filepath.Join(dir, "output"), filepath.Join(dir, "archive"))
	fm.Now = func() time.Time { return fixedTime }
	return fm
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("dex_{timestamp}_{uuid}", fixedTime, nil)
	assert.Regexp(t, regexp.MustCompile(`^dex_20240115_143022_[0-9a-f-]{36}\.xml$`), name)

	name = GenerateOutputFileName("{outlet}_{date}_{time}.XML", fixedTime, map[string]string{"outlet": "10714"})
	assert.Equal(t, "10714_20240115_143022.XML", name)
}

func TestWriteOutput_Atomic(t *testing.T) {
	fm := newTestManager(t)

	path, err := fm.WriteOutput("report.xml", []byte("<DEXFileUpload/>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputDir, "report.xml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<DEXFileUpload/>", string(data))

	entries, err := os.ReadDir(fm.OutputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")
}

func TestArchiveOutputFile(t *testing.T) {
	fm := newTestManager(t)
	path, err := fm.WriteOutput("report.xml", []byte("x"))
	require.NoError(t, err)

	archived, err := fm.ArchiveOutputFile(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputArchiveDir, "report.xml"), archived)
	assert.True(t, FileExists(archived))
	assert.True(t, FileExists(path), "the output stays in place")

	fm.UseTimestampSubdirs = true
	archived, err = fm.ArchiveOutputFile(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputArchiveDir, "2024", "01", "15", "report.xml"), archived)

	fm.OutputArchiveDir = ""
	archived, err = fm.ArchiveOutputFile(path)
	require.NoError(t, err)
	assert.Empty(t, archived)
}

func TestWriteErrorLog(t *testing.T) {
	fm := newTestManager(t)
	require.NoError(t, fm.EnsureDirectories())

	path, err := fm.WriteErrorLog(nil)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = fm.WriteErrorLog([]ErrorLogEntry{{
		Severity:     "error",
		Record:       "Session",
		RecordID:     "100",
		FieldName:    "CaseId",
		FieldValue:   "9_10714",
		Rule:         "session_case",
		ErrorMessage: "case does not exist",
	}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputDir, "error_log_20240115_143022.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Total Entries: 1")
	assert.Contains(t, string(data), "Record:         Session 100")
	assert.Contains(t, string(data), "Value:          9_10714")
}

func TestWriteSummaryLog(t *testing.T) {
	fm := newTestManager(t)

	path, err := fm.WriteSummaryLog(ProcessingSummary{
		StartTime:  fixedTime,
		EndTime:    fixedTime.Add(2 * time.Second),
		OutputFile: "output/report.xml",
		Sources:    []SourceInfo{{Name: "billing", Path: "in/billing.xlsx", Rows: 12}},
		Counts:     []Count{{Name: "Sessions", Value: 9}},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Duration:       2s")
	assert.Contains(t, text, "billing:")
	assert.Contains(t, text, "12 rows")
	assert.Regexp(t, `Sessions:\s+9`, text)
	assert.Contains(t, text, "End of Summary")
}
