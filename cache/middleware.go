package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonwraymond/calltrack/kv"
	"github.com/jonwraymond/calltrack/observe"
)

// Operation is a call that can be counted and recorded.
type Operation func(ctx context.Context, args ...any) (any, error)

// InputsKey returns the list key holding the rendered arguments of name.
func InputsKey(name string) string {
	return name + ":inputs"
}

// OutputsKey returns the list key holding the rendered results of name.
func OutputsKey(name string) string {
	return name + ":outputs"
}

// Tracker wraps operations so their calls are recorded in a kv.Store.
//
// Contract:
//   - Concurrency: wrapped operations are safe for concurrent use if the store is.
//   - Errors: store failures abort the call; operation errors are returned unchanged.
type Tracker struct {
	store kv.Store
}

// NewTracker creates a Tracker writing to store.
func NewTracker(store kv.Store) *Tracker {
	return &Tracker{store: store}
}

// CountCalls increments the counter stored under name before each call.
// Failed calls are counted.
func (t *Tracker) CountCalls(name string, op Operation) Operation {
	return func(ctx context.Context, args ...any) (any, error) {
		if _, err := t.store.Incr(ctx, name); err != nil {
			return nil, fmt.Errorf("cache: count %s: %w", name, err)
		}
		return op(ctx, args...)
	}
}

// CallHistory appends the rendered arguments to InputsKey(name) before each
// call and the rendered result to OutputsKey(name) after a successful one.
func (t *Tracker) CallHistory(name string, op Operation) Operation {
	inputs, outputs := InputsKey(name), OutputsKey(name)
	return func(ctx context.Context, args ...any) (any, error) {
		if err := t.store.RPush(ctx, inputs, []byte(FormatArgs(args...))); err != nil {
			return nil, fmt.Errorf("cache: record input %s: %w", name, err)
		}

		result, err := op(ctx, args...)
		if err != nil {
			return nil, err
		}

		if err := t.store.RPush(ctx, outputs, []byte(formatOutput(result))); err != nil {
			return nil, fmt.Errorf("cache: record output %s: %w", name, err)
		}
		return result, nil
	}
}

// Instrument runs op through mw under meta. The argument list is passed to
// the middleware as a []any input.
func Instrument(mw *observe.Middleware, meta observe.OpMeta, op Operation) Operation {
	if mw == nil {
		return op
	}
	wrapped := mw.Wrap(func(ctx context.Context, _ observe.OpMeta, input any) (any, error) {
		args, _ := input.([]any)
		return op(ctx, args...)
	})
	return func(ctx context.Context, args ...any) (any, error) {
		return wrapped(ctx, meta, args)
	}
}

// FormatArgs renders an argument list the way it appears in a history,
// e.g. ("foo") or ([]byte("bar"), 3).
func FormatArgs(args ...any) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, arg := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatArg(arg))
	}
	b.WriteByte(')')
	return b.String()
}

func formatArg(arg any) string {
	switch v := arg.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(v)
	case []byte:
		return "[]byte(" + strconv.Quote(string(v)) + ")"
	}
	// Numbers render exactly as they are stored.
	if b, err := encodeValue(arg); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%#v", arg)
}

func formatOutput(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
