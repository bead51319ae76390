package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordMutation(t *testing.T) {
	before := testutil.ToFloat64(mutationsTotal.WithLabelValues("save", OutcomeOK))
	RecordMutation("save", OutcomeOK)
	RecordMutation("save", OutcomeOK)
	after := testutil.ToFloat64(mutationsTotal.WithLabelValues("save", OutcomeOK))
	if after-before != 2 {
		t.Fatalf("expected +2, got %v", after-before)
	}
}

func TestGauges(t *testing.T) {
	SetRecords(7)
	if got := testutil.ToFloat64(recordsGauge); got != 7 {
		t.Fatalf("records gauge = %v", got)
	}

	ts := time.Unix(1741132800, 0)
	RecordPersisted(ts)
	RecordPersisted(time.Time{})
	if got := testutil.ToFloat64(persistGauge); got != float64(ts.Unix()) {
		t.Fatalf("zero time must not reset watermark, got %v", got)
	}
}

func TestRecordReplication(t *testing.T) {
	before := testutil.ToFloat64(replicationsTotal.WithLabelValues(OutcomeSkipped))
	RecordReplication(OutcomeSkipped)
	if got := testutil.ToFloat64(replicationsTotal.WithLabelValues(OutcomeSkipped)); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
}

func TestObserveHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "422"))
	ObserveHTTPRequest("POST", 422, 3*time.Millisecond)
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "422")); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}

	limited := testutil.ToFloat64(rateLimitedTotal)
	RecordRateLimited()
	if got := testutil.ToFloat64(rateLimitedTotal); got != limited+1 {
		t.Fatalf("rate limited counter = %v", got)
	}
}
