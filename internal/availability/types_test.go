package availability

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePostalCode(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"36804":   "36804",
		"6804":    "06804",
		"804":     "00804",
		"4":       "00004",
		" 6804 ":  "06804",
		"360-123": "360-123",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizePostalCode(in), "input %q", in)
	}
}

func TestNewRecordDefaults(t *testing.T) {
	t.Parallel()

	rec := NewRecord("Kroger", Task{PostalCode: "36804", City: "Opelika", State: "AL"})
	require.Equal(t, "Kroger", rec.Ecommerce)
	require.Equal(t, "Opelika", rec.CityName)
	require.Equal(t, "AL", rec.StateAbbrev)
	require.Equal(t, "36804", rec.ZipCode)
	require.Equal(t, FlagNo, rec.Delivery)
	require.Equal(t, FlagNo, rec.Pickup)
	require.Empty(t, rec.DeliveryGrocery)
	require.Empty(t, rec.PickupAll)
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	terminal := &TerminalError{PostalCode: "00000", StatusCode: 400}
	transient := &TransientError{PostalCode: "00000", StatusCode: 503}

	require.True(t, IsTerminal(terminal))
	require.False(t, IsTransient(terminal))
	require.True(t, IsTransient(transient))
	require.False(t, IsTerminal(transient))

	wrapped := fmt.Errorf("fetch: %w", transient)
	require.True(t, IsTransient(wrapped))

	require.False(t, IsTerminal(errors.New("plain")))
	require.False(t, IsTransient(errors.New("plain")))
}

func TestTransientErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := &TransientError{PostalCode: "12345", Err: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "12345")
}
