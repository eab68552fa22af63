package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlushCommand(t *testing.T) {
	opts := memoryOptions(t)
	key := storeValue(t, opts, "foo")

	out, err := execute(t, NewFlushCommand(opts))
	require.NoError(t, err)
	assert.Equal(t, "flushed\n", out)

	_, ok, err := opts.Store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)

	out, err = execute(t, NewReplayCommand(opts))
	require.NoError(t, err)
	assert.Equal(t, "Cache.Store was called 0 times:\n", out)
}

func TestFlushCommand_RejectsArgs(t *testing.T) {
	_, err := execute(t, NewFlushCommand(memoryOptions(t)), "extra")
	require.Error(t, err)
}
