package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

func newTestApp(t *testing.T) (*App, *MockDocumentService) {
	t.Helper()
	docs := &MockDocumentService{
		Documents: []domain.Document{{ID: "doc-1", Name: "policy.md", Kind: domain.DocumentKindText}},
	}
	app, err := NewApp(&Ports{RAG: &MockRAGService{}, Document: docs})
	require.NoError(t, err)
	app.SetDimensions(80, 24)
	return app, docs
}

func update(t *testing.T, app *App, msg tea.Msg) tea.Cmd {
	t.Helper()
	model, cmd := app.Update(msg)
	require.Same(t, app, model)
	return cmd
}

func TestNewApp_Success(t *testing.T) {
	app, err := NewApp(&Ports{RAG: &MockRAGService{}})

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.False(t, app.Ready())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{})

	require.ErrorIs(t, err, ErrMissingRAGService)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	app, _ := newTestApp(t)

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")
	result := app.WithContext(ctx)

	assert.Same(t, app, result)
	assert.Equal(t, ctx, app.ctx)
}

func TestApp_Init(t *testing.T) {
	app, _ := newTestApp(t)

	assert.NotNil(t, app.Init())
}

func TestApp_ViewBeforeReady(t *testing.T) {
	app, err := NewApp(&Ports{RAG: &MockRAGService{}})
	require.NoError(t, err)

	assert.Equal(t, "Initialising...", app.View())
}

func TestApp_WindowSize(t *testing.T) {
	app, err := NewApp(&Ports{RAG: &MockRAGService{}})
	require.NoError(t, err)

	update(t, app, tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.True(t, app.Ready())
	assert.Equal(t, 100, app.width)
	assert.Contains(t, app.View(), "docchat")
}

func TestApp_CtrlCQuits(t *testing.T) {
	app, _ := newTestApp(t)

	cmd := update(t, app, tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_QuitMessage(t *testing.T) {
	app, _ := newTestApp(t)

	cmd := update(t, app, messages.Quit{})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_TabSwitchesToDocuments(t *testing.T) {
	app, _ := newTestApp(t)

	cmd := update(t, app, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
	require.NotNil(t, cmd)

	msg := cmd()
	loaded, ok := msg.(messages.DocumentsLoaded)
	require.True(t, ok)
	update(t, app, loaded)

	assert.Contains(t, app.View(), "policy.md")

	update(t, app, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, messages.ViewChat, app.CurrentView())
}

func TestApp_EscFromDocumentsReturnsToChat(t *testing.T) {
	app, _ := newTestApp(t)
	update(t, app, messages.ViewChanged{View: messages.ViewDocuments})

	cmd := update(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	update(t, app, cmd())

	assert.Equal(t, messages.ViewChat, app.CurrentView())
}

func TestApp_HelpToggle(t *testing.T) {
	app, _ := newTestApp(t)

	update(t, app, tea.KeyMsg{Type: tea.KeyF1})
	assert.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Contains(t, app.View(), "Toggle help")

	update(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewChat, app.CurrentView())
}

func TestApp_HelpReturnsToPreviousView(t *testing.T) {
	app, _ := newTestApp(t)
	update(t, app, messages.ViewChanged{View: messages.ViewDocuments})

	update(t, app, tea.KeyMsg{Type: tea.KeyF1})
	update(t, app, tea.KeyMsg{Type: tea.KeyF1})

	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
}

func TestApp_AskQuestion(t *testing.T) {
	app, _ := newTestApp(t)

	cmd := update(t, app, messages.QuestionAsked{Question: "refunds?"})
	require.NotNil(t, cmd)
	assert.True(t, app.ChatView().Thinking())

	update(t, app, cmd())

	assert.False(t, app.ChatView().Thinking())
	assert.Contains(t, app.ChatView().Transcript(), domain.NoRelevantInformation)
}

func TestApp_DocumentsLoadedNamesSources(t *testing.T) {
	app, _ := newTestApp(t)

	update(t, app, messages.DocumentsLoaded{Documents: []domain.Document{{ID: "doc-1", Name: "policy.md"}}})

	assert.Len(t, app.DocumentsView().Documents(), 1)
}

func TestApp_DeleteDocument(t *testing.T) {
	app, docs := newTestApp(t)
	update(t, app, messages.ViewChanged{View: messages.ViewDocuments})
	update(t, app, messages.DocumentsLoaded{Documents: docs.Documents})

	update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	cmd := update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	require.NotNil(t, cmd)

	update(t, app, cmd())

	assert.Equal(t, []string{"doc-1"}, docs.Deleted)
}

func TestApp_ErrorOccurred(t *testing.T) {
	app, _ := newTestApp(t)

	update(t, app, messages.ErrorOccurred{Err: domain.ErrLLMUnavailable})

	assert.ErrorIs(t, app.Err(), domain.ErrLLMUnavailable)
}
