// Package chat provides the question and answer view for the TUI.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// MaxHistory is the number of earlier messages sent with each question.
const MaxHistory = 10

// turn is one question and its answer.
type turn struct {
	question string
	answer   *domain.Answer
	err      error
}

// View is the chat view.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	rag    driving.RAGService
	docs   driving.DocumentService
	ctx    context.Context

	input      *input.ChatInput
	transcript viewport.Model
	sources    *list.SourceList
	status     *status.Bar

	turns       []turn
	history     []domain.ChatMessage
	thinking    bool
	showSources bool
	topK        int

	width  int
	height int
}

// NewView creates a chat view. docs may be nil; sources then show
// document IDs instead of names.
func NewView(s *styles.Styles, rag driving.RAGService, docs driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	km := keymap.DefaultKeyMap()

	v := &View{
		styles:      s,
		keymap:      km,
		rag:         rag,
		docs:        docs,
		ctx:         context.Background(),
		input:       input.NewChatInput(s),
		transcript:  viewport.New(80, 20),
		sources:     list.NewSourceList(s),
		status:      status.NewBar(s, km),
		showSources: true,
	}
	v.SetDimensions(80, 24)
	return v
}

// WithContext sets the context questions are asked with.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetTopK sets the number of passages retrieved per question. Zero uses
// the service default.
func (v *View) SetTopK(k int) {
	v.topK = k
}

// Init starts the cursor and loads document names.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.loadNames())
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd

	case messages.QuestionAsked:
		return v, v.submit(msg.Question)

	case messages.AnswerReceived:
		v.receive(msg)
		return v, nil

	case messages.DocumentsLoaded:
		if msg.Err == nil {
			names := make(map[string]string, len(msg.Documents))
			for i := range msg.Documents {
				names[msg.Documents[i].ID] = msg.Documents[i].Name
			}
			v.sources.SetNames(names)
			v.layout()
		}
		return v, nil

	case messages.ErrorOccurred:
		v.status.SetState(status.StateError)
		v.status.SetMessage(msg.Err.Error())
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Send):
		question := v.input.Question()
		v.input.Reset()
		return v, v.submit(question)

	case keymap.Matches(k, v.keymap.Clear):
		v.Reset()
		return v, nil

	case keymap.Matches(k, v.keymap.Sources):
		v.showSources = !v.showSources
		v.layout()
		return v, nil

	case keymap.Matches(k, v.keymap.ScrollUp), keymap.Matches(k, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit records question as a pending turn and returns the command that
// answers it. Blank questions and questions asked while another is being
// answered are ignored.
func (v *View) submit(question string) tea.Cmd {
	question = strings.TrimSpace(question)
	if question == "" || v.thinking {
		return nil
	}

	v.thinking = true
	v.turns = append(v.turns, turn{question: question})
	v.status.SetState(status.StateThinking)
	v.refresh()

	history := v.recentHistory()
	rag, ctx, topK := v.rag, v.ctx, v.topK
	return func() tea.Msg {
		if rag == nil {
			return messages.AnswerReceived{Question: question, Err: domain.ErrLLMUnavailable}
		}
		answer, err := rag.Query(ctx, question, domain.QueryOptions{TopK: topK, History: history})
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

// receive completes the pending turn.
func (v *View) receive(msg messages.AnswerReceived) {
	v.thinking = false
	if n := len(v.turns); n > 0 && v.turns[n-1].answer == nil && v.turns[n-1].err == nil {
		v.turns[n-1].answer = msg.Answer
		v.turns[n-1].err = msg.Err
	}

	if msg.Err != nil {
		v.status.SetState(status.StateError)
		v.status.SetMessage(msg.Err.Error())
		v.refresh()
		return
	}

	v.history = append(v.history,
		domain.ChatMessage{Role: domain.ChatRoleUser, Content: msg.Question},
		domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: msg.Answer.Text},
	)
	v.sources.SetSources(msg.Answer.Sources)

	v.status.SetState(status.StateInfo)
	v.status.SetMessage(fmt.Sprintf("%d sources | retrieval %dms | generation %dms",
		len(msg.Answer.Sources), msg.Answer.RetrievalMs(), msg.Answer.GenerationMs()))
	v.layout()
}

// recentHistory returns a copy of the last MaxHistory messages.
func (v *View) recentHistory() []domain.ChatMessage {
	start := max(len(v.history)-MaxHistory, 0)
	out := make([]domain.ChatMessage, len(v.history)-start)
	copy(out, v.history[start:])
	return out
}

func (v *View) loadNames() tea.Cmd {
	if v.docs == nil {
		return nil
	}
	docs, ctx := v.docs, v.ctx
	return func() tea.Msg {
		all, err := docs.List(ctx)
		return messages.DocumentsLoaded{Documents: all, Err: err}
	}
}

// Reset forgets the conversation.
func (v *View) Reset() {
	v.turns = nil
	v.history = nil
	v.thinking = false
	v.sources.SetSources(nil)
	v.status.Clear()
	v.input.Reset()
	v.layout()
}

// layout sizes the transcript to the space the other parts leave.
func (v *View) layout() {
	used := lipgloss.Height(v.header()) + lipgloss.Height(v.input.View()) + 1
	if s := v.sourcesView(); s != "" {
		used += lipgloss.Height(s)
	}
	v.transcript.Width = v.width
	v.transcript.Height = max(v.height-used, 3)
	v.refresh()
}

// refresh re-renders the transcript and scrolls to the latest turn.
func (v *View) refresh() {
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.turns) == 0 {
		return v.styles.Muted.Render("Ask a question to get started. Answers cite the passages they were built from.")
	}

	wrap := lipgloss.NewStyle().Width(max(v.width-2, 20))
	var b strings.Builder
	for i, t := range v.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(v.styles.User.Render("You: "))
		b.WriteString(wrap.Render(t.question))
		b.WriteString("\n")
		b.WriteString(v.styles.Assistant.Render("docchat: "))
		switch {
		case t.err != nil:
			b.WriteString(v.styles.Error.Render(t.err.Error()))
		case t.answer == nil:
			b.WriteString(v.styles.Muted.Render("..."))
		default:
			b.WriteString(wrap.Render(t.answer.Text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (v *View) header() string {
	return v.styles.Title.Render("docchat") + v.styles.Muted.Render("  ask questions about your documents")
}

func (v *View) sourcesView() string {
	if !v.showSources {
		return ""
	}
	return v.sources.View()
}

// View renders the chat view.
func (v *View) View() string {
	parts := []string{v.header(), v.transcript.View()}
	if s := v.sourcesView(); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, v.input.View(), v.status.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.input.SetWidth(width)
	v.sources.SetWidth(width)
	v.status.SetWidth(width)
	v.layout()
}

// History returns the messages exchanged so far.
func (v *View) History() []domain.ChatMessage {
	return v.history
}

// Thinking reports whether a question is being answered.
func (v *View) Thinking() bool {
	return v.thinking
}

// Transcript returns the rendered conversation.
func (v *View) Transcript() string {
	return v.renderTranscript()
}

// Status returns the status bar.
func (v *View) Status() *status.Bar {
	return v.status
}

// Sources returns the sources of the latest answer.
func (v *View) Sources() []domain.Source {
	return v.sources.Sources()
}

// ShowingSources reports whether sources are displayed.
func (v *View) ShowingSources() bool {
	return v.showSources
}

// Input returns the question input.
func (v *View) Input() *input.ChatInput {
	return v.input
}
