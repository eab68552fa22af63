package secret

import (
	"errors"
	"testing"
)

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("CALLTRACK_TEST_HOST", "redis.internal")

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"plain", "localhost:6379", "localhost:6379", nil},
		{"braced", "${CALLTRACK_TEST_HOST}:6379", "redis.internal:6379", nil},
		{"bare", "$CALLTRACK_TEST_HOST", "redis.internal", nil},
		{"escaped dollar", "pa$$word", "pa$word", nil},
		{"missing braced", "${CALLTRACK_TEST_UNSET_B}-${CALLTRACK_TEST_UNSET_A}", "", ErrMissingEnv},
		{"missing bare expands empty", "x$CALLTRACK_TEST_UNSET_C", "x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandEnvStrict(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExpandEnvStrict(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpandEnvStrict_ListsMissingSorted(t *testing.T) {
	_, err := ExpandEnvStrict("${CALLTRACK_ZZ_UNSET}${CALLTRACK_AA_UNSET}")
	want := "secret: missing environment variable: CALLTRACK_AA_UNSET, CALLTRACK_ZZ_UNSET"
	if err == nil || err.Error() != want {
		t.Errorf("error = %v, want %q", err, want)
	}
}
