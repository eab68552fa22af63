package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fixed(status Status) Checker {
	return NewCheckerFunc(status.String(), func(context.Context) Result {
		switch status {
		case StatusDegraded:
			return Degraded("degraded")
		case StatusUnhealthy:
			return Unhealthy("down", ErrStoreUnreachable)
		default:
			return Healthy("ok")
		}
	})
}

func TestNewAggregator_Defaults(t *testing.T) {
	agg := NewAggregator()
	if agg.config.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", agg.config.Timeout)
	}

	agg = NewAggregator(AggregatorConfig{Timeout: -1, MaxConcurrent: 2})
	if agg.config.Timeout != 10*time.Second || agg.config.MaxConcurrent != 2 {
		t.Errorf("config = %+v", agg.config)
	}
}

func TestAggregator_RegisterKeepsOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Register("store", fixed(StatusHealthy))
	agg.Register("upstream", fixed(StatusHealthy))
	agg.Register("store", fixed(StatusDegraded))

	names := agg.CheckerNames()
	if len(names) != 2 || names[0] != "store" || names[1] != "upstream" {
		t.Errorf("CheckerNames() = %v, want [store upstream]", names)
	}

	r, err := agg.Check(context.Background(), "store")
	if err != nil || r.Status != StatusDegraded {
		t.Errorf("Check(store) = (%v, %v), want replaced degraded checker", r.Status, err)
	}
}

func TestAggregator_CheckNotFound(t *testing.T) {
	_, err := NewAggregator().Check(context.Background(), "missing")
	if !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator()
	agg.Register("a", fixed(StatusHealthy))
	agg.Register("b", fixed(StatusDegraded))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results["b"].Status != StatusDegraded {
		t.Errorf("results[b] = %v, want degraded", results["b"].Status)
	}
	if results["a"].Duration < 0 || results["a"].Timestamp.IsZero() {
		t.Errorf("results[a] missing timing: %+v", results["a"])
	}
}

func TestAggregator_CheckAllEmpty(t *testing.T) {
	if results := NewAggregator().CheckAll(context.Background()); len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	block := make(chan struct{})
	defer close(block)
	agg.Register("hung", NewCheckerFunc("hung", func(context.Context) Result {
		<-block
		return Healthy("late")
	}))

	r := agg.CheckAll(context.Background())["hung"]
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("hung check = %+v, want timeout", r)
	}
}

func TestAggregator_MaxConcurrent(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{MaxConcurrent: 1})

	var running, peak atomic.Int64
	for _, name := range []string{"a", "b", "c"} {
		agg.Register(name, NewCheckerFunc(name, func(context.Context) Result {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return Healthy("ok")
		}))
	}

	agg.CheckAll(context.Background())
	if peak.Load() != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak.Load())
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", map[string]Result{"a": Healthy(""), "b": Healthy("")}, StatusHealthy},
		{"one degraded", map[string]Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"one unhealthy", map[string]Result{"a": Degraded(""), "b": Unhealthy("", nil)}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}
