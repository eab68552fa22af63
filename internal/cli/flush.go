package cli

import (
	"github.com/spf13/cobra"
)

// FlushResult is the output of the flush command.
type FlushResult struct {
	Flushed bool `json:"flushed"`
}

func (FlushResult) String() string { return "flushed" }

// NewFlushCommand creates the flush command.
func NewFlushCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Delete every key in the backing store",
		Long: `Delete every key in the backing store, including call counters, call
history, and cached fetches. With the Redis backend and a key prefix only
prefixed keys are removed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlush(rootOpts, cmd)
		},
	}

	return cmd
}

func runFlush(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	sess, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	if err := sess.store.FlushDB(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to flush store", err)
	}
	return opts.formatter(cmd).Success(FlushResult{Flushed: true})
}
