// Package transform normalizes raw modality-options payloads into ledger
// records.
package transform

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/grocerytrack/modality-scout/internal/availability"
	"github.com/grocerytrack/modality-scout/internal/brand"
)

// ErrMalformedPayload marks a response body that could not be parsed into the
// expected structure. Treated as terminal within a run: the task is dropped
// without a row and a later run picks it up again.
var ErrMalformedPayload = errors.New("malformed modality payload")

// Kind classifies a parsed payload.
type Kind int

// Parse outcomes.
const (
	// KindAvailable means the payload carries a modalityOptions object.
	KindAvailable Kind = iota
	// KindRejected means the upstream answered with an error-shaped body:
	// the postal code is unknown. Success-coded, but terminal.
	KindRejected
)

// Payload is the tagged parse result of a raw response body.
type Payload struct {
	Kind     Kind
	Modality *ModalityOptions
}

// ModalityOptions mirrors the upstream data.modalityOptions object.
type ModalityOptions struct {
	Delivery     json.RawMessage `json:"DELIVERY"`
	Pickup       json.RawMessage `json:"PICKUP"`
	StoreDetails []StoreDetail   `json:"storeDetails"`
}

// StoreDetail is one fulfilling store entry.
type StoreDetail struct {
	LocationID        string   `json:"locationId"`
	Banner            string   `json:"banner"`
	AllowedModalities []string `json:"allowedModalities"`
}

type deliveryOption struct {
	Fulfillment []string `json:"fulfillment"`
}

type envelope struct {
	Data struct {
		ModalityOptions *ModalityOptions `json:"modalityOptions"`
	} `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// Parse decodes a raw body into a tagged Payload. A body that fails to decode
// returns ErrMalformedPayload.
func Parse(raw []byte) (Payload, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if truthy(env.Errors) {
		return Payload{Kind: KindRejected}, nil
	}
	if env.Data.ModalityOptions == nil {
		// Structurally valid but carries no modality data; same terminal
		// shape as an explicit rejection.
		return Payload{Kind: KindRejected}, nil
	}
	return Payload{Kind: KindAvailable, Modality: env.Data.ModalityOptions}, nil
}

// Transformer builds ledger records from parsed payloads.
type Transformer struct {
	source   string
	resolver *brand.Resolver
	logger   *zap.Logger
}

// New constructs a Transformer. source is the ecommerce name stamped on every
// row.
func New(source string, resolver *brand.Resolver, logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{
		source:   source,
		resolver: resolver,
		logger:   logger,
	}
}

// Transform turns a raw response body into the record for task. Rejected
// payloads yield the default No/No record; malformed bodies return
// ErrMalformedPayload and no record.
func (t *Transformer) Transform(raw []byte, task availability.Task) (availability.Record, error) {
	rec := availability.NewRecord(t.source, task)

	payload, err := Parse(raw)
	if err != nil {
		return availability.Record{}, err
	}
	if payload.Kind == KindRejected {
		return rec, nil
	}

	opts := payload.Modality
	if truthy(opts.Delivery) {
		rec.Delivery = availability.FlagYes
		rec.DeliveryGrocery = t.deliveryBrands(opts, task)
		rec.DeliveryAll = append([]string(nil), rec.DeliveryGrocery...)
	}
	if truthy(opts.Pickup) {
		rec.Pickup = availability.FlagYes
		rec.PickupGrocery = t.pickupBrands(opts.StoreDetails, task)
		rec.PickupAll = append([]string(nil), rec.PickupGrocery...)
	}
	return rec, nil
}

func (t *Transformer) deliveryBrands(opts *ModalityOptions, task availability.Task) []string {
	var opt deliveryOption
	if err := json.Unmarshal(opts.Delivery, &opt); err != nil {
		t.logger.Warn("delivery fulfillment shape unreadable",
			zap.String("postal_code", task.PostalCode),
			zap.Error(err),
		)
		return nil
	}

	banners := bannersByLocation(opts.StoreDetails)
	set := newOrderedSet()
	for _, locationID := range opt.Fulfillment {
		name, ok := t.resolver.Resolve(locationID, banners[brand.NormalizeLocationID(locationID)])
		if !ok {
			continue
		}
		set.add(name)
	}
	return set.values
}

func (t *Transformer) pickupBrands(stores []StoreDetail, task availability.Task) []string {
	set := newOrderedSet()
	for _, store := range stores {
		if !allowsPickup(store.AllowedModalities) {
			continue
		}
		name, ok := t.resolver.Resolve(store.LocationID, store.Banner)
		if !ok {
			t.logger.Debug("unresolved pickup location",
				zap.String("postal_code", task.PostalCode),
				zap.String("location_id", store.LocationID),
			)
			continue
		}
		set.add(name)
	}
	return set.values
}

// allowsPickup treats an absent or empty allowedModalities list as
// unrestricted.
func allowsPickup(modalities []string) bool {
	if len(modalities) == 0 {
		return true
	}
	for _, m := range modalities {
		if m == "PICKUP" {
			return true
		}
	}
	return false
}

func bannersByLocation(stores []StoreDetail) map[string]string {
	banners := make(map[string]string, len(stores))
	for _, store := range stores {
		banners[brand.NormalizeLocationID(store.LocationID)] = store.Banner
	}
	return banners
}

// orderedSet keeps first-occurrence order and drops duplicates.
type orderedSet struct {
	seen   map[string]struct{}
	values []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.values = append(s.values, v)
}

// truthy applies the upstream's loose encoding: null, false, zero, empty
// string, empty object, and empty array all mean "modality not offered".
func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
