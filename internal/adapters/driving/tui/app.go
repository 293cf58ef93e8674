package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/views/documents"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	chatView      *chat.View
	documentsView *documents.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// previousView is restored when help is closed.
	previousView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keymap:        keymap.DefaultKeyMap(),
		chatView:      chat.NewView(s, ports.RAG, ports.Document),
		documentsView: documents.NewView(s, ports.Document),
		currentView:   messages.ViewChat,
		previousView:  messages.ViewChat,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("docchat"),
		a.chatView.Init(),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.QuestionAsked, messages.AnswerReceived:
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.DocumentsLoaded:
		// The chat view uses the list to name sources.
		a.chatView, _ = a.chatView.Update(msg)
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.DocumentDetailsLoaded, messages.DocumentDeleted:
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		if a.currentView == messages.ViewDocuments {
			a.documentsView, cmd = a.documentsView.Update(msg)
		} else {
			a.chatView, cmd = a.chatView.Update(msg)
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Forward other messages, such as cursor blinks, to the active view.
	switch a.currentView {
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewHelp:
	}
	return a, cmd
}

func (a *App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()

	if keymap.Matches(k, a.keymap.Quit) {
		return a, tea.Quit
	}

	if a.currentView == messages.ViewHelp {
		if keymap.Matches(k, a.keymap.Back) || keymap.Matches(k, a.keymap.Help) {
			a.currentView = a.previousView
		}
		return a, nil
	}

	switch {
	case keymap.Matches(k, a.keymap.Help):
		a.previousView = a.currentView
		a.currentView = messages.ViewHelp
		return a, nil

	case keymap.Matches(k, a.keymap.Documents):
		if a.currentView == messages.ViewDocuments {
			return a, a.switchTo(messages.ViewChat)
		}
		return a, a.switchTo(messages.ViewDocuments)
	}

	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewHelp:
	}
	return a, cmd
}

// switchTo activates view, loading its data when needed.
func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	a.currentView = view
	switch view {
	case messages.ViewDocuments:
		return a.documentsView.Load()
	case messages.ViewChat:
		return a.chatView.Input().Focus()
	case messages.ViewHelp:
	}
	return nil
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.chatView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Chat:
  (type)      Enter a question
  enter       Ask
  ctrl+s      Show or hide sources
  ctrl+l      Start a new conversation
  pgup/pgdn   Scroll the conversation
  tab         Documents

Documents:
  j/k, ↑/↓    Navigate documents
  enter       Show details
  d           Delete document
  r           Reload
  esc, tab    Back to chat

General:
  f1          Toggle help
  ctrl+c      Quit

` + a.styles.Help.Render("[esc] back")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// ChatView returns the chat view.
func (a *App) ChatView() *chat.View {
	return a.chatView
}

// DocumentsView returns the documents view.
func (a *App) DocumentsView() *documents.View {
	return a.documentsView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.chatView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
}
