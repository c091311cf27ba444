package monitor

import (
	"testing"
	"time"

	"github.com/Nao-Mk2/aws-error-monitor/internal/model"
	"github.com/Nao-Mk2/aws-error-monitor/internal/query"
)

func testConfig(groups ...string) Config {
	return Config{
		Project:     "acme",
		Environment: "UAT",
		Service:     "orders",
		ServiceType: query.ServiceLambda,
		LogGroups:   groups,
		Window:      time.Hour,
		Sender:      "alerts@example.com",
		Recipients:  []string{"ops@example.com"},
	}
}

func records(n int, base time.Time) []model.ErrorRecord {
	out := make([]model.ErrorRecord, n)
	for i := range out {
		out[i] = model.ErrorRecord{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			LogStream: "s",
			Message:   "ERROR",
		}
	}
	return out
}

func TestAggregatePreservesDeclarationOrder(t *testing.T) {
	base := time.Date(2025, 9, 1, 11, 0, 0, 0, time.UTC)
	cfg := testConfig("a", "b", "c")
	outcomes := []model.LogGroupResult{
		{LogGroup: "a", Count: 2, Records: records(2, base)},
		{LogGroup: "b", Failure: model.FailureTimeout, FailureDetail: "query timed out"},
		{LogGroup: "c", Count: 1, Records: records(1, base.Add(time.Minute))},
	}

	rep := Aggregate(cfg, base.Add(-time.Hour), base, outcomes)

	if len(rep.Groups) != 3 {
		t.Fatalf("groups=%d, want 3", len(rep.Groups))
	}
	for i, want := range []string{"a", "b", "c"} {
		if rep.Groups[i].LogGroup != want {
			t.Fatalf("group[%d]=%q, want %q", i, rep.Groups[i].LogGroup, want)
		}
	}
	if rep.TotalErrors != 3 {
		t.Fatalf("total=%d, want 3 (failed groups must not contribute)", rep.TotalErrors)
	}
	if !rep.Groups[1].Failed() || rep.Groups[1].Failure != model.FailureTimeout {
		t.Fatalf("group b should carry its timeout marker: %+v", rep.Groups[1])
	}
}

func TestAggregateCapsRecordsButNotCounts(t *testing.T) {
	base := time.Date(2025, 9, 1, 11, 0, 0, 0, time.UTC)
	cfg := testConfig("a")
	cfg.RecordCap = 5
	outcomes := []model.LogGroupResult{
		{LogGroup: "a", Count: 12, Records: records(12, base)},
	}

	rep := Aggregate(cfg, base.Add(-time.Hour), base, outcomes)

	if got := len(rep.Groups[0].Records); got != 5 {
		t.Fatalf("retained records=%d, want cap 5", got)
	}
	if rep.Groups[0].Count != 12 || rep.TotalErrors != 12 {
		t.Fatalf("counts must stay uncapped: group=%d total=%d", rep.Groups[0].Count, rep.TotalErrors)
	}
}

func TestAggregateFirstAndLastError(t *testing.T) {
	base := time.Date(2025, 9, 1, 11, 0, 0, 0, time.UTC)
	cfg := testConfig("a", "b")
	outcomes := []model.LogGroupResult{
		{LogGroup: "a", Count: 1, Records: []model.ErrorRecord{{Timestamp: base.Add(30 * time.Minute)}}},
		{LogGroup: "b", Count: 2, Records: []model.ErrorRecord{
			{Timestamp: base.Add(45 * time.Minute)},
			{Timestamp: base.Add(5 * time.Minute)},
		}},
	}

	rep := Aggregate(cfg, base, base.Add(time.Hour), outcomes)

	if !rep.FirstError.Equal(base.Add(5 * time.Minute)) {
		t.Fatalf("FirstError=%v", rep.FirstError)
	}
	if !rep.LastError.Equal(base.Add(45 * time.Minute)) {
		t.Fatalf("LastError=%v", rep.LastError)
	}
}

func TestAggregateZeroOutcomes(t *testing.T) {
	cfg := testConfig("a")
	now := time.Now().UTC()
	rep := Aggregate(cfg, now.Add(-time.Hour), now, []model.LogGroupResult{{LogGroup: "a"}})
	if rep.TotalErrors != 0 || rep.AllFailed() {
		t.Fatalf("empty success should be zero total and not all-failed: %+v", rep)
	}
	if !rep.FirstError.IsZero() || !rep.LastError.IsZero() {
		t.Fatalf("error bounds should stay zero with no records")
	}
}
