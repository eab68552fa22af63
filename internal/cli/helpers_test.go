package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/calltrack/kv"
)

func memoryOptions(t *testing.T) *RootOptions {
	t.Helper()
	store := kv.NewMemory()
	t.Cleanup(func() { _ = store.Close() })
	return &RootOptions{Format: "text", Store: store}
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// storeValue runs the store command and returns the printed key.
func storeValue(t *testing.T, opts *RootOptions, args ...string) string {
	t.Helper()
	out, err := execute(t, NewStoreCommand(opts), args...)
	require.NoError(t, err)
	return strings.TrimSpace(out)
}
