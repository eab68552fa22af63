package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/jonwraymond/calltrack/kv"
	"github.com/jonwraymond/calltrack/observe"
)

func TestFormatArgs(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{"no args", nil, "()"},
		{"string", []any{"foo"}, `("foo")`},
		{"quotes escaped", []any{`say "hi"`}, `("say \"hi\"")`},
		{"bytes", []any{[]byte("bar")}, `([]byte("bar"))`},
		{"int", []any{42}, "(42)"},
		{"float", []any{2.5}, "(2.5)"},
		{"uint8", []any{uint8(42)}, "(42)"},
		{"uint", []any{uint(42)}, "(42)"},
		{"uint64 max", []any{uint64(18446744073709551615)}, "(18446744073709551615)"},
		{"int64", []any{int64(-42)}, "(-42)"},
		{"float32", []any{float32(3.5)}, "(3.5)"},
		{"large float", []any{1e21}, "(1000000000000000000000)"},
		{"struct", []any{struct{ A int }{1}}, "(struct { A int }{A:1})"},
		{"nil", []any{nil}, "(nil)"},
		{"several", []any{"a", 1, []byte("b")}, `("a", 1, []byte("b"))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatArgs(tt.args...); got != tt.want {
				t.Errorf("FormatArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTracker_CountCalls(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	tracker := NewTracker(store)

	failing := errors.New("boom")
	calls := 0
	op := tracker.CountCalls("op", func(_ context.Context, args ...any) (any, error) {
		calls++
		if len(args) > 0 && args[0] == "fail" {
			return nil, failing
		}
		return "ok", nil
	})

	_, _ = op(ctx, "a")
	_, _ = op(ctx, "b")
	if _, err := op(ctx, "fail"); !errors.Is(err, failing) {
		t.Fatalf("op(fail) error = %v, want %v", err, failing)
	}

	raw, _, _ := store.Get(ctx, "op")
	if string(raw) != "3" {
		t.Errorf("counter = %q, want 3 (failed calls are counted)", raw)
	}
	if calls != 3 {
		t.Errorf("underlying calls = %d, want 3", calls)
	}
}

func TestTracker_CallHistory(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	tracker := NewTracker(store)

	failing := errors.New("boom")
	op := tracker.CallHistory("echo", func(_ context.Context, args ...any) (any, error) {
		if args[0] == "fail" {
			return nil, failing
		}
		return []byte("out-" + args[0].(string)), nil
	})

	_, _ = op(ctx, "x")
	_, _ = op(ctx, "fail")
	_, _ = op(ctx, "y")

	inputs, _ := store.LRange(ctx, InputsKey("echo"), 0, -1)
	outputs, _ := store.LRange(ctx, OutputsKey("echo"), 0, -1)

	wantIn := []string{`("x")`, `("fail")`, `("y")`}
	wantOut := []string{"out-x", "out-y"}
	if len(inputs) != len(wantIn) || len(outputs) != len(wantOut) {
		t.Fatalf("inputs=%q outputs=%q", inputs, outputs)
	}
	for i, w := range wantIn {
		if string(inputs[i]) != w {
			t.Errorf("inputs[%d] = %q, want %q", i, inputs[i], w)
		}
	}
	for i, w := range wantOut {
		if string(outputs[i]) != w {
			t.Errorf("outputs[%d] = %q, want %q", i, outputs[i], w)
		}
	}
}

func TestTracker_StoreFailureAbortsCall(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	tracker := NewTracker(store)
	_ = store.Close()

	called := false
	op := tracker.CallHistory("op", tracker.CountCalls("op", func(context.Context, ...any) (any, error) {
		called = true
		return nil, nil
	}))

	if _, err := op(ctx); !errors.Is(err, kv.ErrClosed) {
		t.Errorf("op() error = %v, want kv.ErrClosed", err)
	}
	if called {
		t.Error("operation should not run when tracking fails")
	}
}

func TestInstrument(t *testing.T) {
	ctx := context.Background()
	op := func(_ context.Context, args ...any) (any, error) {
		return len(args), nil
	}

	for _, mw := range []*observe.Middleware{nil, observe.NopMiddleware()} {
		wrapped := Instrument(mw, observe.OpMeta{Name: "count_args"}, op)
		got, err := wrapped(ctx, "a", "b")
		if err != nil || got != 2 {
			t.Errorf("Instrument(%v) = (%v, %v), want (2, nil)", mw, got, err)
		}
	}
}
