package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCmd_Aliases(t *testing.T) {
	assert.Equal(t, "chat", chatCmd.Use)
	assert.Contains(t, chatCmd.Aliases, "tui")
}

func TestChatCmd_RejectsArgs(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "chat", "extra")

	require.Error(t, err)
}

func TestChatCmd_ServiceNotConfigured(t *testing.T) {
	SetServices(nil)

	_, err := execute(t, "chat")

	require.EqualError(t, err, "RAG service not configured")
}

func TestMCPServeCmd_PortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")

	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestMCPServeCmd_ServiceNotConfigured(t *testing.T) {
	SetServices(nil)

	_, err := execute(t, "mcp", "serve")

	require.Error(t, err)
}
