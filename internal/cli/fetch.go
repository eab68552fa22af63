package cli

import (
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/calltrack/cache"
	"github.com/jonwraymond/calltrack/fetch"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	Count bool
	Retry bool
	TTL   time.Duration
}

// FetchResult is the output of the fetch command.
type FetchResult struct {
	URL   string `json:"url"`
	Body  string `json:"body,omitempty"`
	Count int64  `json:"count"`
}

// CountResult is the output of fetch --count.
type CountResult struct {
	URL   string `json:"url"`
	Count int64  `json:"count"`
}

func (r CountResult) String() string { return strconv.FormatInt(r.Count, 10) }

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Fetch a page through the expiring cache",
		Long: `Fetch URL and print its body. The body is cached for the fetch TTL
(CALLTRACK_FETCH_TTL, default 10s) and every fetch increments count:URL.

With --count the counter is printed and nothing is fetched.

Exit codes:
  0 - Body printed
  1 - Upstream failure
  2 - Command error

Examples:
  calltrack fetch https://example.com
  calltrack fetch --count https://example.com`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(opts, cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the fetch counter instead of fetching")
	cmd.Flags().BoolVar(&opts.Retry, "retry", false, "retry transient upstream failures")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "cache lifetime (overrides CALLTRACK_FETCH_TTL)")

	return cmd
}

func (o *FetchOptions) ttl() time.Duration {
	if o.TTL > 0 {
		return o.TTL
	}
	return o.Config.FetchTTL
}

func runFetch(opts *FetchOptions, cmd *cobra.Command, url string) error {
	ctx := commandContext(cmd)

	sess, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	httpOpts := []fetch.Option{fetch.WithUserAgent(opts.Config.UserAgent)}
	if opts.Retry || opts.Config.FetchRetry {
		httpOpts = append(httpOpts, fetch.WithExecutor(fetch.DefaultExecutor(sess.mw.Logger())))
	}
	client := fetch.New(httpOpts...)

	fc, err := cache.NewFetchCache(sess.store, client.Fetch,
		cache.WithTTL(opts.ttl()),
		cache.WithFetchObserver(sess.mw),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create fetch cache", err)
	}

	out := opts.formatter(cmd)
	if opts.Count {
		n, err := fc.Count(ctx, url)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read fetch counter", err)
		}
		return out.Success(CountResult{URL: url, Count: n})
	}

	body, err := fc.Fetch(ctx, url)
	if err != nil {
		if errors.Is(err, cache.ErrInvalidKey) || errors.Is(err, cache.ErrKeyTooLong) {
			return WrapExitError(ExitCommandError, "invalid url", err)
		}
		return WrapExitError(ExitFailure, "fetch failed", err)
	}

	if opts.Format == "json" {
		n, err := fc.Count(ctx, url)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read fetch counter", err)
		}
		return out.Success(FetchResult{URL: url, Body: string(body), Count: n})
	}
	out.VerboseLog("fetched %d bytes from %s", len(body), url)
	_, err = cmd.OutOrStdout().Write(body)
	return err
}
