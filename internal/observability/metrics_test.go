package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPipelineRun(t *testing.T) {
	before := testutil.ToFloat64(pipelineRuns.WithLabelValues("create", ResultOK))

	RecordPipelineRun("create", ResultOK, 15*time.Millisecond)
	RecordPipelineRun("create", ResultOK, 5*time.Millisecond)

	after := testutil.ToFloat64(pipelineRuns.WithLabelValues("create", ResultOK))
	if after-before != 2 {
		t.Fatalf("expected 2 new runs, got %v", after-before)
	}
}

func TestRecordParseFailure(t *testing.T) {
	before := testutil.ToFloat64(parseFailures)
	RecordParseFailure()
	if got := testutil.ToFloat64(parseFailures); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
}

func TestCollectorsRegistered(t *testing.T) {
	RecordProfileBuckets(42)
	if n := testutil.CollectAndCount(profileBuckets); n != 1 {
		t.Fatalf("expected one profile bucket series, got %d", n)
	}
}
