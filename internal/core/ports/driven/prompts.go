package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptRAGSystem constrains answers to the retrieved context.
	// The prompt template expects a %s placeholder for the context.
	PromptRAGSystem = "rag_system"

	// PromptSummarise creates summaries of document content.
	// The prompt template expects %d (max length) and %s (content) placeholders.
	PromptSummarise = "summarise"
)

// DefaultRAGSystemPrompt is the rag_system prompt used when no store is
// configured or the stored prompt is blank. The %s receives the context.
const DefaultRAGSystemPrompt = `You are docchat's document assistant. Answer questions based ONLY on the provided context.

Rules:
- Use information from the context to answer
- If the context doesn't contain the answer, say so
- Cite sources using [Source N] format
- Be precise and factual
- Use markdown formatting

Context:
%s`

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}
