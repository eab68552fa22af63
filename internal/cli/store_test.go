package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/calltrack/cache"
)

func TestStoreCommand_PrintsKey(t *testing.T) {
	opts := memoryOptions(t)

	key := storeValue(t, opts, "hello")
	_, err := uuid.Parse(key)
	require.NoError(t, err, "key should be a UUID")

	val, ok, err := opts.Store.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", string(val))
}

func TestStoreCommand_NumericFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"int", []string{"--int", "42"}, "42"},
		{"negative int", []string{"--int", "--", "-7"}, "-7"},
		{"float", []string{"--float", "3.5"}, "3.5"},
		{"bytes", []string{"--bytes", "raw"}, "raw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := memoryOptions(t)
			key := storeValue(t, opts, tt.args...)

			val, ok, err := opts.Store.Get(context.Background(), key)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, string(val))
		})
	}
}

func TestStoreCommand_InvalidNumber(t *testing.T) {
	opts := memoryOptions(t)

	_, err := execute(t, NewStoreCommand(opts), "--int", "forty")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	report, err := cache.Replay(context.Background(), opts.Store, cache.StoreOpName)
	require.NoError(t, err)
	assert.Zero(t, report.Count, "rejected input must not be counted")
}

func TestStoreCommand_ExclusiveFlags(t *testing.T) {
	opts := memoryOptions(t)

	_, err := execute(t, NewStoreCommand(opts), "--int", "--float", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestStoreCommand_MissingArg(t *testing.T) {
	_, err := execute(t, NewStoreCommand(memoryOptions(t)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestStoreCommand_JSON(t *testing.T) {
	opts := memoryOptions(t)
	opts.Format = "json"

	out, err := execute(t, NewStoreCommand(opts), "hello")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   StoreResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Data.Key)
}

func TestStoreCommand_CountsEveryCall(t *testing.T) {
	opts := memoryOptions(t)

	for range 3 {
		storeValue(t, opts, "v")
	}

	report, err := cache.Replay(context.Background(), opts.Store, cache.StoreOpName)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Count)
	assert.Len(t, report.Calls, 3)
}

func TestStoreCommand_Flush(t *testing.T) {
	opts := memoryOptions(t)
	storeValue(t, opts, "old")

	opts.Flush = true
	storeValue(t, opts, "new")

	report, err := cache.Replay(context.Background(), opts.Store, cache.StoreOpName)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Count)
	require.Len(t, report.Calls, 1)
	assert.Equal(t, `("new")`, report.Calls[0].Input)
}
