package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(scoutRowsWrittenTotal)
	ObserveRowWritten()
	require.Equal(t, before+1, testutil.ToFloat64(scoutRowsWrittenTotal))
}

func TestObserveHelpers(t *testing.T) {
	Init()

	ObserveTask(OutcomeWritten)
	ObserveTask(OutcomeFailed)
	require.Equal(t, float64(1), testutil.ToFloat64(scoutTasksTotal.WithLabelValues(OutcomeFailed)))

	ObserveFetchAttempt(FetchTransient)
	require.Equal(t, float64(1), testutil.ToFloat64(scoutFetchAttemptsTotal.WithLabelValues(FetchTransient)))

	IncActiveWorkers()
	require.Equal(t, float64(1), testutil.ToFloat64(scoutActiveWorkers))
	DecActiveWorkers()
	require.Equal(t, float64(0), testutil.ToFloat64(scoutActiveWorkers))

	ObserveBackoff(5 * time.Second)
}
