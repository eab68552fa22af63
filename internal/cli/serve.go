package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/calltrack/cache"
	"github.com/jonwraymond/calltrack/health"
	"github.com/jonwraymond/calltrack/kv"
	"github.com/jonwraymond/calltrack/observe"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics, and call history over HTTP",
		Long: `Serve diagnostics for the configured store until interrupted:

  /healthz  liveness
  /readyz   readiness (store ping)
  /health   detailed check results
  /metrics  Prometheus metrics
  /replay   call history as JSON (?name=, default Cache.Store)

Metrics are exported to Prometheus unless CALLTRACK_METRICS_EXPORTER selects
another exporter.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "localhost:8080", "listen address")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	if tc := &opts.Config.Telemetry; tc.MetricsExporter == "" || tc.MetricsExporter == "none" {
		tc.MetricsExporter = "prometheus"
	}

	sess, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(context.Background())

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           newServeMux(opts.Config.Backend, sess.store, sess.mw.Logger()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	opts.formatter(cmd).VerboseLog("serving on %s", opts.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitCommandError, "server failed", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "server shutdown failed", err)
	}
	return nil
}

func newServeMux(backend string, store kv.Store, logger observe.Logger) *http.ServeMux {
	agg := health.NewAggregator()
	agg.Register("store", health.NewStoreChecker(backend, store, health.StoreCheckerConfig{}))

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/replay", replayHandler(store, logger))
	return mux
}

func replayHandler(store kv.Store, logger observe.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			name = cache.StoreOpName
		}

		w.Header().Set("Content-Type", "application/json")
		report, err := cache.Replay(r.Context(), store, name)
		if err != nil {
			logger.Error(r.Context(), "replay failed",
				observe.Field{Key: "name", Value: name},
				observe.Field{Key: "error", Value: err.Error()},
			)
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(CLIError{Code: http.StatusInternalServerError, Message: err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}
