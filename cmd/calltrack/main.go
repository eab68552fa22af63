// Command calltrack stores values in an instrumented cache, replays the
// recorded calls, and fetches pages through an expiring cache.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonwraymond/calltrack/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
