package cli

import (
	"github.com/spf13/cobra"

	"github.com/jonwraymond/calltrack/cache"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [NAME]",
		Short: "Print the recorded calls of an operation",
		Long: `Print how many times an operation was called and, for each call, its input
and output in call order. NAME defaults to Cache.Store.

Examples:
  calltrack replay
  calltrack --format json replay Cache.Store`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := cache.StoreOpName
			if len(args) == 1 {
				name = args[0]
			}
			return runReplay(rootOpts, cmd, name)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command, name string) error {
	ctx := commandContext(cmd)

	sess, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	report, err := cache.Replay(ctx, sess.store, name)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read call history", err)
	}

	out := opts.formatter(cmd)
	if report.Truncated {
		out.VerboseLog("history of %s has unmatched entries; showing %d complete calls", name, len(report.Calls))
	}
	return out.Success(report)
}
