// Package ledger owns the append-only output file: row serialization, header
// management, and the startup dedup snapshot that makes reruns resumable.
//
// The dedup snapshot is point-in-time: rows appended during the current run
// are not folded back in, and two pipelines writing the same ledger
// concurrently will duplicate rows.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/grocerytrack/modality-scout/internal/availability"
)

// Header is the fixed column set of the ledger, written once at creation.
var Header = []string{
	"Ecommerce", "CityName", "StateAbbrev", "ZipCode",
	"Delivery", "DeliveryGrocery", "DeliveryRestaurants", "DeliveryAll",
	"Pickup", "PickupGrocery", "PickupRestaurants", "PickupAll",
}

// Sink appends availability records to the ledger. Appends are serialized
// under a mutex and each row is written and flushed whole, so concurrent
// workers never interleave fields and an interrupted run never leaves a
// partial row.
type Sink struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// Open returns a Sink for path, creating the file with the header row when it
// does not exist yet.
func Open(path string, logger *zap.Logger) (*Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeHeader(path); err != nil {
			return nil, err
		}
		logger.Info("initialized output ledger", zap.String("path", path))
	} else if err != nil {
		return nil, fmt.Errorf("stat ledger %s: %w", path, err)
	}

	return &Sink{path: path, logger: logger}, nil
}

// Append writes one record as a whole row.
func (s *Sink) Append(rec availability.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", s.path, err)
	}
	defer file.Close() //nolint:errcheck // write errors surface via Flush

	w := csv.NewWriter(file)
	if err := w.Write(rowOf(rec)); err != nil {
		return fmt.Errorf("write row for %s: %w", rec.ZipCode, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush row for %s: %w", rec.ZipCode, err)
	}
	return nil
}

// Path returns the ledger location.
func (s *Sink) Path() string { return s.path }

func writeHeader(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create ledger %s: %w", path, err)
	}
	w := csv.NewWriter(file)
	if err := w.Write(Header); err != nil {
		file.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("write ledger header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("flush ledger header: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}

func rowOf(rec availability.Record) []string {
	return []string{
		rec.Ecommerce,
		rec.CityName,
		rec.StateAbbrev,
		rec.ZipCode,
		rec.Delivery,
		formatBrandList(rec.DeliveryGrocery),
		formatBrandList(rec.DeliveryRestaurants),
		formatBrandList(rec.DeliveryAll),
		rec.Pickup,
		formatBrandList(rec.PickupGrocery),
		formatBrandList(rec.PickupRestaurants),
		formatBrandList(rec.PickupAll),
	}
}

// formatBrandList renders the literal list representation earlier runs used,
// so resumed ledgers stay uniform: [] or ['Kroger', 'Ralphs'].
func formatBrandList(brands []string) string {
	if len(brands) == 0 {
		return "[]"
	}
	quoted := make([]string, len(brands))
	for i, b := range brands {
		quoted[i] = "'" + b + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
