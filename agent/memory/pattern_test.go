package memory

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	contractx "github.com/suthimate/offerlens/agent/contract"
)

func TestNextSuccessRate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		oldRate  float64
		oldCount int64
		success  bool
		want     float64
	}{
		{0, 0, true, 1},
		{0, 0, false, 0},
		{1, 1, false, 0.5},
		{0.5, 2, true, 2.0 / 3.0},
		{0.5, 1, false, 0.25},
	}
	for _, tc := range cases {
		got := NextSuccessRate(tc.oldRate, tc.oldCount, tc.success)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("NextSuccessRate(%v, %d, %v) = %v, want %v", tc.oldRate, tc.oldCount, tc.success, got, tc.want)
		}
	}
}

func TestObservePattern(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	p := NewPattern(contractx.CategoryEntityStatus, contractx.EntityOffer, contractx.EnvProduction, now)
	if p.PatternID == "" {
		t.Fatal("new pattern must have an id")
	}

	ObservePattern(&p, []string{"entity_history", "datadog_logs"}, true, now)
	ObservePattern(&p, []string{"datadog_logs", "genie_offer"}, false, now.Add(time.Hour))

	if p.UsageCount != 2 {
		t.Fatalf("usage count = %d, want 2", p.UsageCount)
	}
	if math.Abs(p.SuccessRate-0.5) > 1e-9 {
		t.Fatalf("success rate = %v, want 0.5", p.SuccessRate)
	}
	if diff := cmp.Diff([]string{"datadog_logs", "entity_history", "genie_offer"}, p.CommonTools); diff != "" {
		t.Fatalf("tool union mismatch (-want +got):\n%s", diff)
	}
	if !p.LastUpdated.Equal(now.Add(time.Hour)) {
		t.Fatalf("last updated = %v", p.LastUpdated)
	}
}
