package cli

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCmd_RequiresDirectory(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "watch")

	require.Error(t, err)
}

func TestWatchCmd_StopsWhenCancelled(t *testing.T) {
	setupTestServices(t)
	resetFlags()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"watch", t.TempDir()})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	assert.NoError(t, rootCmd.ExecuteContext(ctx))
}

func TestWatchCmd_ServiceNotConfigured(t *testing.T) {
	SetServices(nil)

	_, err := execute(t, "watch", t.TempDir())

	require.EqualError(t, err, "ingest service not configured")
}
