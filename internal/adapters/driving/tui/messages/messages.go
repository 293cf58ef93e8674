// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewChat is the question and answer view.
	ViewChat ViewType = iota
	// ViewDocuments lists indexed documents.
	ViewDocuments
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewChat:
		return "chat"
	case ViewDocuments:
		return "documents"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// QuestionAsked is sent when the user submits a question.
type QuestionAsked struct {
	Question string
}

// AnswerReceived carries a generated answer back to the chat view.
type AnswerReceived struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// DocumentsLoaded carries the stored documents.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// DocumentDetailsLoaded carries the metadata of a document.
type DocumentDetailsLoaded struct {
	DocumentID string
	Details    *driving.DocumentDetails
	Err        error
}

// DocumentDeleted signals a document was deleted.
type DocumentDeleted struct {
	DocumentID string
	Err        error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
