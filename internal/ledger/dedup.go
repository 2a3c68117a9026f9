package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/grocerytrack/modality-scout/internal/availability"
)

// Dedup is the set of postal codes already present in the ledger at startup.
type Dedup map[string]struct{}

// Contains reports whether a postal code is already recorded. The lookup
// normalizes, so unpadded codes from the input table match padded ledger
// rows.
func (d Dedup) Contains(postalCode string) bool {
	_, ok := d[availability.NormalizePostalCode(postalCode)]
	return ok
}

// LoadDedup reads the full ledger once and extracts the recorded postal
// codes. A missing ledger yields an empty set.
func LoadDedup(path string) (Dedup, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Dedup{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // read-only

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return Dedup{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger header: %w", err)
	}

	zipCol := -1
	for i, name := range header {
		if name == "ZipCode" {
			zipCol = i
			break
		}
	}
	if zipCol == -1 {
		return nil, fmt.Errorf("ledger %s has no ZipCode column", path)
	}

	seen := Dedup{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger row: %w", err)
		}
		if zipCol >= len(row) || row[zipCol] == "" {
			continue
		}
		seen[availability.NormalizePostalCode(row[zipCol])] = struct{}{}
	}
	return seen, nil
}
