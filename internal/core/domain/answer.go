package domain

import "time"

// NoRelevantInformation is the answer returned when retrieval finds nothing.
const NoRelevantInformation = "No relevant information found in the documents."

// ChatRole identifies the speaker of a chat message.
type ChatRole string

// Chat roles understood by every LLM adapter.
const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    ChatRole
	Content string
}

// Source is a cited chunk attached to an answer.
type Source struct {
	// DocumentID is the document the chunk belongs to.
	DocumentID string

	// ChunkIndex is the chunk's position within the document.
	ChunkIndex int

	// Content is a bounded preview of the chunk text.
	Content string

	// Score is the similarity score the chunk was ranked with.
	Score float64
}

// Answer is the result of a retrieval-augmented query.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Sources are ordered by descending score; Source 1 is first.
	Sources []Source

	// TokensUsed is the token count reported by the generator.
	TokensUsed int

	// Model is the generator model that produced the answer, if any.
	Model string

	// RetrievalTime is the time spent searching the index.
	RetrievalTime time.Duration

	// GenerationTime is the time spent waiting for the generator.
	GenerationTime time.Duration
}

// RetrievalMs returns the retrieval latency in milliseconds.
func (a *Answer) RetrievalMs() int64 {
	return a.RetrievalTime.Milliseconds()
}

// GenerationMs returns the generation latency in milliseconds.
func (a *Answer) GenerationMs() int64 {
	return a.GenerationTime.Milliseconds()
}

// HasSources reports whether any context was retrieved for the answer.
func (a *Answer) HasSources() bool {
	return len(a.Sources) > 0
}
