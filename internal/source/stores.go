package source

import (
	"fmt"

	"github.com/grocerytrack/modality-scout/internal/availability"
	"github.com/grocerytrack/modality-scout/internal/brand"
	"github.com/grocerytrack/modality-scout/internal/ledger"
)

// Store-list table columns.
const (
	colStoreNumber = "StoreNumber"
	colChainName   = "ChainName"
)

// LoadStoreList reads the store-list table into brand index rows.
func LoadStoreList(path string) ([]brand.StoreRow, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("store list %s is empty", path)
	}
	cols, err := columnIndex(rows[0], colStoreNumber, colChainName)
	if err != nil {
		return nil, fmt.Errorf("store list %s: %w", path, err)
	}

	out := make([]brand.StoreRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		number := cell(row, cols[colStoreNumber])
		chain := cell(row, cols[colChainName])
		if number == "" || chain == "" {
			continue
		}
		out = append(out, brand.StoreRow{StoreNumber: number, ChainName: chain})
	}
	return out, nil
}

// FilterPending drops tasks already recorded in the ledger and, when states
// is non-empty, tasks outside the listed regions. Input order is preserved.
func FilterPending(tasks []availability.Task, dedup ledger.Dedup, states []string) []availability.Task {
	allowed := make(map[string]struct{}, len(states))
	for _, s := range states {
		allowed[s] = struct{}{}
	}

	pending := make([]availability.Task, 0, len(tasks))
	for _, task := range tasks {
		if dedup.Contains(task.PostalCode) {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[task.Region]; !ok {
				continue
			}
		}
		pending = append(pending, task)
	}
	return pending
}
