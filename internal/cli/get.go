package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/calltrack/cache"
)

// Conversions accepted by get --as.
var validConversions = []string{"raw", "string", "int", "float"}

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	As string
}

// GetResult is the output of the get command.
type GetResult struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Found bool   `json:"found"`
}

func (r GetResult) String() string { return fmt.Sprint(r.Value) }

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Read a stored value",
		Long: `Read the value stored under KEY. Reads are not tracked.

With --as raw (the default) a missing key is an error. The string, int, and
float conversions print the zero value for a missing or unconvertible key.

Exit codes:
  0 - Value printed
  1 - Key not found (raw only)
  2 - Command error

Examples:
  calltrack get 6f1c...
  calltrack get --as int 6f1c...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "raw", "conversion (raw|string|int|float)")

	return cmd
}

func runGet(opts *GetOptions, cmd *cobra.Command, key string) error {
	ctx := commandContext(cmd)

	if !slices.Contains(validConversions, opts.As) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid conversion %q: must be one of %v", opts.As, validConversions))
	}

	sess, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	c, err := sess.cache(ctx, false)
	if err != nil {
		return err
	}

	raw, found, err := c.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrInvalidKey) || errors.Is(err, cache.ErrKeyTooLong) {
			return WrapExitError(ExitCommandError, "invalid key", err)
		}
		return WrapExitError(ExitCommandError, "failed to read key", err)
	}

	result := GetResult{Key: key, Found: found}
	switch opts.As {
	case "raw":
		if !found {
			return NewExitError(ExitFailure, fmt.Sprintf("key not found: %s", key))
		}
		result.Value = string(raw)
	case "string":
		result.Value = convertOrZero(raw, cache.AsString)
	case "int":
		result.Value = convertOrZero(raw, cache.AsInt)
	case "float":
		result.Value = convertOrZero(raw, cache.AsFloat)
	}

	return opts.formatter(cmd).Success(result)
}

// convertOrZero applies fn to raw, yielding the zero value when raw is
// absent or does not convert.
func convertOrZero[T any](raw []byte, fn func([]byte) (T, error)) T {
	v, err := fn(raw)
	if err != nil {
		var zero T
		return zero
	}
	return v
}
