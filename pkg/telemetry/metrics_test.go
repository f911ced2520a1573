package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leadgrid/leadgrid/pkg/resilience"
)

func TestNewMetricsRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.JobsTotal.WithLabelValues("completed").Inc()
	m.RecordsCollected.WithLabelValues("big").Add(5)
	m.BrowserPoolState.Set(BrowserPoolStateValue(false, false, true, false))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected at least one registered metric family")
	}
}

func TestCircuitStateValue(t *testing.T) {
	cases := []struct {
		state resilience.CircuitBreakerState
		want  float64
	}{
		{resilience.StateClosed, 0},
		{resilience.StateHalfOpen, 0.5},
		{resilience.StateOpen, 1},
	}

	for _, tc := range cases {
		if got := CircuitStateValue(tc.state); got != tc.want {
			t.Errorf("CircuitStateValue(%v) = %v, want %v", tc.state, got, tc.want)
		}
	}
}

func TestBrowserPoolStateValue(t *testing.T) {
	if got := BrowserPoolStateValue(true, false, false, false); got != 0 {
		t.Errorf("disconnected: got %v, want 0", got)
	}
	if got := BrowserPoolStateValue(false, true, false, false); got != 1 {
		t.Errorf("connecting: got %v, want 1", got)
	}
	if got := BrowserPoolStateValue(false, false, true, false); got != 2 {
		t.Errorf("connected: got %v, want 2", got)
	}
	if got := BrowserPoolStateValue(false, false, true, true); got != 3 {
		t.Errorf("degraded: got %v, want 3", got)
	}
}
