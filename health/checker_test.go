package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusHealthy:   "healthy",
		StatusDegraded:  "degraded",
		StatusUnhealthy: "unhealthy",
		Status(99):      "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	err := errors.New("boom")

	if r := Healthy("ok"); r.Status != StatusHealthy || r.Message != "ok" || r.Timestamp.IsZero() {
		t.Errorf("Healthy() = %+v", r)
	}
	if r := Degraded("slow"); r.Status != StatusDegraded {
		t.Errorf("Degraded() = %+v", r)
	}
	r := Unhealthy("down", err).WithDetails(map[string]any{"k": 1})
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, err) || r.Details["k"] != 1 {
		t.Errorf("Unhealthy().WithDetails() = %+v", r)
	}
}

func TestCheckerFunc(t *testing.T) {
	c := NewCheckerFunc("fn", func(context.Context) Result { return Degraded("meh") })
	if c.Name() != "fn" {
		t.Errorf("Name() = %q, want fn", c.Name())
	}
	if got := c.Check(context.Background()).Status; got != StatusDegraded {
		t.Errorf("Check().Status = %v, want degraded", got)
	}
}
