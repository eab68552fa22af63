package cache

import (
	"testing"
	"time"
)

func TestPolicy_EffectiveTTL(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		override time.Duration
		want     time.Duration
	}{
		{"default used", DefaultFetchPolicy(), 0, DefaultFetchTTL},
		{"negative override uses default", DefaultFetchPolicy(), -time.Second, DefaultFetchTTL},
		{"override kept", DefaultFetchPolicy(), time.Minute, time.Minute},
		{"override clamped", Policy{DefaultTTL: time.Second, MaxTTL: time.Minute}, time.Hour, time.Minute},
		{"no max", Policy{DefaultTTL: time.Second}, time.Hour, time.Hour},
		{"no cache", NoCachePolicy(), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.EffectiveTTL(tt.override); got != tt.want {
				t.Errorf("EffectiveTTL(%v) = %v, want %v", tt.override, got, tt.want)
			}
		})
	}
}

func TestPolicy_ShouldCache(t *testing.T) {
	if !DefaultFetchPolicy().ShouldCache() {
		t.Error("DefaultFetchPolicy().ShouldCache() = false, want true")
	}
	if NoCachePolicy().ShouldCache() {
		t.Error("NoCachePolicy().ShouldCache() = true, want false")
	}
}
