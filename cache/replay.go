package cache

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jonwraymond/calltrack/kv"
)

// Call is one recorded invocation.
type Call struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Report is the reconstructed call history of one operation.
type Report struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Calls []Call `json:"calls"`

	// Truncated is set when the input and output histories differ in length.
	// Calls then holds only the paired prefix.
	Truncated bool `json:"truncated,omitempty"`
}

// Replay reads the counter and histories recorded for name. A missing or
// unparsable counter reads as zero and missing histories read as empty.
func Replay(ctx context.Context, store kv.Store, name string) (Report, error) {
	if store == nil {
		return Report{}, ErrNilStore
	}
	r := Report{Name: name, Calls: []Call{}}

	raw, ok, err := store.Get(ctx, name)
	if err != nil {
		return Report{}, fmt.Errorf("cache: replay %s: %w", name, err)
	}
	if ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64); err == nil {
			r.Count = n
		}
	}

	inputs, err := store.LRange(ctx, InputsKey(name), 0, -1)
	if err != nil {
		return Report{}, fmt.Errorf("cache: replay %s inputs: %w", name, err)
	}
	outputs, err := store.LRange(ctx, OutputsKey(name), 0, -1)
	if err != nil {
		return Report{}, fmt.Errorf("cache: replay %s outputs: %w", name, err)
	}

	n := min(len(inputs), len(outputs))
	r.Truncated = len(inputs) != len(outputs)
	for i := range n {
		r.Calls = append(r.Calls, Call{Input: string(inputs[i]), Output: string(outputs[i])})
	}
	return r, nil
}

// WriteTo writes the report as text: a summary line followed by one
// "<name><input> -> <output>" line per call.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var total int64
	n, err := fmt.Fprintf(w, "%s was called %d times:\n", r.Name, r.Count)
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, c := range r.Calls {
		n, err = fmt.Fprintf(w, "%s%s -> %s\n", r.Name, c.Input, c.Output)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the text form written by WriteTo.
func (r Report) String() string {
	var b strings.Builder
	_, _ = r.WriteTo(&b)
	return b.String()
}
