// Package brand resolves fulfillment location identifiers to retail brand
// names, with a similarity-based fallback when no store list is loaded.
package brand

import "strings"

// StoreRow is one row of the store-list table.
type StoreRow struct {
	StoreNumber string
	ChainName   string
}

// Index maps normalized location ids to chain names. Built once at startup
// and read-only afterwards, so concurrent reads need no synchronization.
type Index struct {
	byLocation map[string]string
}

// NewIndex builds an Index from store-list rows. Store numbers are normalized
// by stripping hyphens so they compare equal to the ids the modality endpoint
// returns.
func NewIndex(rows []StoreRow) *Index {
	byLocation := make(map[string]string, len(rows))
	for _, row := range rows {
		id := NormalizeLocationID(row.StoreNumber)
		if id == "" || row.ChainName == "" {
			continue
		}
		byLocation[id] = row.ChainName
	}
	return &Index{byLocation: byLocation}
}

// Lookup returns the chain name for a location id.
func (ix *Index) Lookup(locationID string) (string, bool) {
	name, ok := ix.byLocation[NormalizeLocationID(locationID)]
	return name, ok
}

// Len returns the number of indexed locations.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.byLocation)
}

// NormalizeLocationID strips hyphens and surrounding whitespace.
func NormalizeLocationID(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), "-", "")
}
