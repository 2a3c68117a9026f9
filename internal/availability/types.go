// Package availability defines core types shared across subsystems.
package availability

import "strings"

// Flag values used in the output ledger.
const (
	FlagYes = "Yes"
	FlagNo  = "No"
)

// Task is one unit of work: a single postal code to query, carried with the
// city/state context needed to fill its output row. Immutable once loaded.
type Task struct {
	PostalCode string
	City       string
	Region     string
	State      string
}

// Record is one output row of the availability ledger. Written once, never
// mutated after being appended. Restaurant lists are reserved placeholders
// kept empty for this source.
type Record struct {
	Ecommerce           string
	CityName            string
	StateAbbrev         string
	ZipCode             string
	Delivery            string
	DeliveryGrocery     []string
	DeliveryRestaurants []string
	DeliveryAll         []string
	Pickup              string
	PickupGrocery       []string
	PickupRestaurants   []string
	PickupAll           []string
}

// NewRecord returns the default No/No row for a task. Terminal rejections
// (invalid postal codes, error-shaped payloads) are written exactly in this
// shape.
func NewRecord(source string, task Task) Record {
	return Record{
		Ecommerce:   source,
		CityName:    task.City,
		StateAbbrev: task.State,
		ZipCode:     task.PostalCode,
		Delivery:    FlagNo,
		Pickup:      FlagNo,
	}
}

// NormalizePostalCode left-pads a postal code with zeros to exactly five
// characters. Codes already five or more characters are returned unchanged.
func NormalizePostalCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) >= 5 {
		return code
	}
	return strings.Repeat("0", 5-len(code)) + code
}
