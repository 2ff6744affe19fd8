package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordFetchAttempt(t *testing.T) {
	before := testutil.ToFloat64(FetchAttemptsTotal.WithLabelValues("relay", "failure", "transient"))
	RecordFetchAttempt(false, false, "transient", 120*time.Millisecond)
	after := testutil.ToFloat64(FetchAttemptsTotal.WithLabelValues("relay", "failure", "transient"))
	assert.Equal(t, before+1, after)
}

func TestRecordRelaySelection(t *testing.T) {
	before := testutil.ToFloat64(RelaySelectionsTotal.WithLabelValues("direct"))
	RecordRelaySelection(false)
	after := testutil.ToFloat64(RelaySelectionsTotal.WithLabelValues("direct"))
	assert.Equal(t, before+1, after)
}

func TestUpdateRelayCounts(t *testing.T) {
	UpdateRelayCounts(12, 7)
	assert.Equal(t, 12.0, testutil.ToFloat64(RelaysTotal))
	assert.Equal(t, 7.0, testutil.ToFloat64(ActiveRelays))
}

func TestUpdateOpenBreakers(t *testing.T) {
	UpdateOpenBreakers(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(BreakersOpen))
	UpdateOpenBreakers(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(BreakersOpen))
}

func TestRecordBatchTarget(t *testing.T) {
	before := testutil.ToFloat64(BatchTargetsTotal.WithLabelValues("success"))
	RecordBatchTarget(true)
	after := testutil.ToFloat64(BatchTargetsTotal.WithLabelValues("success"))
	assert.Equal(t, before+1, after)
}
