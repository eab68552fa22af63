package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// StoreOptions holds flags for the store command.
type StoreOptions struct {
	*RootOptions
	Int   bool
	Float bool
	Bytes bool
}

// StoreResult is the output of the store command.
type StoreResult struct {
	Key string `json:"key"`
}

func (r StoreResult) String() string { return r.Key }

// NewStoreCommand creates the store command.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "store VALUE",
		Short: "Store a value under a new key",
		Long: `Store a value under a freshly generated key and print the key.

The call is counted and recorded under Cache.Store. VALUE is stored as text
unless --int or --float parses it as a number first.

Examples:
  calltrack store hello
  calltrack store --int 42
  calltrack --format json store --float 3.5`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(opts, cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Int, "int", false, "store VALUE as an integer")
	cmd.Flags().BoolVar(&opts.Float, "float", false, "store VALUE as a float")
	cmd.Flags().BoolVar(&opts.Bytes, "bytes", false, "store VALUE as raw bytes")
	cmd.MarkFlagsMutuallyExclusive("int", "float", "bytes")

	return cmd
}

func (o *StoreOptions) value(arg string) (any, error) {
	switch {
	case o.Int:
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid integer %q", arg), err)
		}
		return n, nil
	case o.Float:
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid float %q", arg), err)
		}
		return f, nil
	case o.Bytes:
		return []byte(arg), nil
	default:
		return arg, nil
	}
}

func runStore(opts *StoreOptions, cmd *cobra.Command, arg string) error {
	ctx := commandContext(cmd)

	value, err := opts.value(arg)
	if err != nil {
		return err
	}

	sess, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	c, err := sess.cache(ctx, opts.flush())
	if err != nil {
		return err
	}
	key, err := c.Store(ctx, value)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to store value", err)
	}

	out := opts.formatter(cmd)
	out.VerboseLog("stored %T under %s", value, key)
	return out.Success(StoreResult{Key: key})
}
