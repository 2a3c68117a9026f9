package brand

import "go.uber.org/zap"

// Catalog lists the banner names the fuzzy fallback matches against.
var Catalog = []string{
	"Baker’s", "City Market", "Dillons", "Food 4 Less", "Foods Co", "Fred Meyer", "Fry’s",
	"Gerbes", "Harris Teeter", "Jay C Food Store", "King Soopers", "Kroger", "Mariano’s",
	"Metro Market", "Pay-Less Super Markets", "Pick’n Save", "QFC", "Ralphs", "Ruler",
	"Smith’s Food and Drug",
}

// Resolver maps a fulfillment location to a brand name. The primary path is
// an exact Index lookup; when no index is loaded the resolver degrades to
// fuzzy-matching the store banner against Catalog.
type Resolver struct {
	index   *Index
	catalog []string
	logger  *zap.Logger
}

// NewResolver builds a Resolver. index may be nil or empty, which enables the
// banner-matching fallback.
func NewResolver(index *Index, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		index:   index,
		catalog: Catalog,
		logger:  logger,
	}
}

// Resolve returns the brand for a location. banner is the display name the
// upstream reports for the store; it is only consulted in degraded mode.
// A false return means the location is unresolved and should be skipped.
func (r *Resolver) Resolve(locationID, banner string) (string, bool) {
	if r.index.Len() > 0 {
		name, ok := r.index.Lookup(locationID)
		if !ok {
			r.logger.Warn("location id not in store index",
				zap.String("location_id", locationID),
				zap.String("banner", banner),
			)
		}
		return name, ok
	}
	return r.closestBanner(locationID, banner)
}

func (r *Resolver) closestBanner(locationID, banner string) (string, bool) {
	if banner == "" {
		return "", false
	}
	highest := 0.0
	closest := ""
	for _, candidate := range r.catalog {
		if score := Jaccard(banner, candidate); score > highest {
			highest = score
			closest = candidate
		}
	}
	if closest == "" {
		r.logger.Warn("no catalog brand matched banner",
			zap.String("location_id", locationID),
			zap.String("banner", banner),
		)
		return "", false
	}
	return closest, true
}

// Jaccard measures similarity between two strings as the Jaccard coefficient
// of their character sets: |intersection| / |union|. It is symmetric, 1.0 for
// equal non-empty strings, and 0.0 when the strings share no characters.
func Jaccard(s1, s2 string) float64 {
	set1 := runeSet(s1)
	set2 := runeSet(s2)

	union := len(set2)
	intersection := 0
	for r := range set1 {
		if _, ok := set2[r]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}
