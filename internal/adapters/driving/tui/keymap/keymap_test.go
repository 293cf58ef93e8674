package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	require.NotNil(t, km)
}

func TestDefaultKeyMap_Bindings(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		name    string
		binding key.Binding
		key     string
	}{
		{"quit", km.Quit, "ctrl+c"},
		{"help", km.Help, "f1"},
		{"back", km.Back, "esc"},
		{"send", km.Send, "enter"},
		{"documents", km.Documents, "tab"},
		{"sources", km.Sources, "ctrl+s"},
		{"clear", km.Clear, "ctrl+l"},
		{"up", km.Up, "up"},
		{"up vim", km.Up, "k"},
		{"down", km.Down, "down"},
		{"down vim", km.Down, "j"},
		{"scroll up", km.ScrollUp, "pgup"},
		{"scroll down", km.ScrollDown, "pgdown"},
		{"select", km.Select, "enter"},
		{"delete", km.Delete, "d"},
		{"reload", km.Reload, "r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.binding.Keys(), tt.key)
		})
	}
}

func TestDefaultKeyMap_QuitIsNotAPrintableKey(t *testing.T) {
	km := DefaultKeyMap()

	// Printable keys are typed into the question.
	assert.NotContains(t, km.Quit.Keys(), "q")
	assert.NotContains(t, km.Help.Keys(), "?")
}

func TestDefaultKeyMap_HelpText(t *testing.T) {
	km := DefaultKeyMap()

	assert.Equal(t, "ask", km.Send.Help().Desc)
	assert.Equal(t, "ctrl+c", km.Quit.Help().Key)
}

func TestKeyMap_ChatHelp(t *testing.T) {
	km := DefaultKeyMap()

	help := km.ChatHelp()

	require.Len(t, help, 5)
	assert.Equal(t, km.Send.Keys(), help[0].Keys())
	assert.Equal(t, km.Quit.Keys(), help[4].Keys())
}

func TestKeyMap_DocumentsHelp(t *testing.T) {
	km := DefaultKeyMap()

	help := km.DocumentsHelp()

	require.Len(t, help, 5)
	assert.Equal(t, km.Back.Keys(), help[4].Keys())
}

func TestKeyMap_FullHelp(t *testing.T) {
	km := DefaultKeyMap()

	groups := km.FullHelp()

	require.Len(t, groups, 3)
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	assert.Equal(t, 14, total)
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, Matches("ctrl+c", km.Quit))
	assert.True(t, Matches("k", km.Up))
	assert.False(t, Matches("x", km.Up))
	assert.False(t, Matches("", km.Send))
}
