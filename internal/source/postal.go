// Package source loads the input tables: the postal-code list the pipeline
// enumerates and the store list the brand index is built from.
package source

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/grocerytrack/modality-scout/internal/availability"
)

// Postal-code table columns.
const (
	colID     = "ID"
	colName   = "NAME"
	colRegion = "RG_NAME"
	colAbbrev = "RG_ABBREV"
)

// LoadPostalCodes reads the postal-code table into tasks. CSV and XLSX inputs
// are both accepted; the upstream dataset circulates in both shapes.
func LoadPostalCodes(path string) ([]availability.Task, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	return tasksFromRows(path, rows)
}

func tasksFromRows(path string, rows [][]string) ([]availability.Task, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("postal table %s is empty", path)
	}
	cols, err := columnIndex(rows[0], colID, colName, colRegion, colAbbrev)
	if err != nil {
		return nil, fmt.Errorf("postal table %s: %w", path, err)
	}

	tasks := make([]availability.Task, 0, len(rows)-1)
	for _, row := range rows[1:] {
		id := cell(row, cols[colID])
		if id == "" {
			continue
		}
		tasks = append(tasks, availability.Task{
			PostalCode: availability.NormalizePostalCode(id),
			City:       cell(row, cols[colName]),
			Region:     cell(row, cols[colRegion]),
			State:      cell(row, cols[colAbbrev]),
		})
	}
	return tasks, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // read-only

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func readWorkbook(path string) ([][]string, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer wb.Close() //nolint:errcheck // read-only

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read workbook %s: %w", path, err)
	}
	return rows, nil
}

func columnIndex(header []string, want ...string) (map[string]int, error) {
	cols := make(map[string]int, len(want))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range want {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return cols, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
