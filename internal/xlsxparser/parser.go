// =============================================================================
// DEX Report Converter - XLSX Source Parser
// =============================================================================
//
// This module reads the spreadsheet exports of the practice-management system
// (billing ledger, appointment ledger, service code table, client master) into
// a types.Table.
//
// SHEET LAYOUT (Expected):
//   Row 1 holds the column headers; data starts on row 2.
//
//   | Client ID | Invoice # | Item | Schedule | Item Date | Fee Category    | Fee  |
//   |-----------|-----------|------|----------|-----------|-----------------|------|
//   | 1024      | 55120     | 101  | CHSP     | 45306     | CHSP - Payneham | 85.5 |
//
// RAW VALUES:
//   Cells are read with RawCellValue so that dates arrive as Excel serial
//   numbers and numbers arrive without display formatting. The normalize
//   package turns serials into calendar dates.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/dexreport/internal/types"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads one worksheet of an XLSX workbook.
// An empty sheet name selects the first sheet.
func Parse(path, sheet string) (*types.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	table, err := readSheet(f, sheet)
	if err != nil {
		return nil, err
	}
	table.SourceFile = path
	return table, nil
}

// Read reads one worksheet of an XLSX workbook from r.
func Read(r io.Reader, sheet string) (*types.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readSheet(f, sheet)
}

// readSheet extracts the header row and data rows of a sheet.
func readSheet(f *excelize.File, sheet string) (*types.Table, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	headers := cleanHeaders(rows[0])
	table := &types.Table{
		Headers: headers,
		Rows:    make([]map[string]string, 0, len(rows)-1),
	}

	for _, row := range rows[1:] {
		if isRowEmpty(row) {
			continue
		}

		rowMap := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(row) {
				rowMap[header] = strings.TrimSpace(row[i])
			} else {
				rowMap[header] = ""
			}
		}
		table.Rows = append(table.Rows, rowMap)
	}

	return table, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// cleanHeaders trims headers and names blank columns Column_N.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
