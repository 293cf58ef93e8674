package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docchat/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/normalisers"
	"github.com/custodia-labs/docchat/internal/postprocessors"
	"github.com/custodia-labs/docchat/internal/postprocessors/chunker"
)

const testReply = "Refunds are accepted within 30 days [Source 1]."

// fakeLLM replies with a fixed answer.
type fakeLLM struct {
	mu       sync.Mutex
	requests []driven.CompletionRequest
	err      error
}

func (f *fakeLLM) Complete(_ context.Context, req driven.CompletionRequest) (*driven.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &driven.Completion{Text: testReply, TokensUsed: 21, Model: "fake-model"}, nil
}

func (f *fakeLLM) Summarise(_ context.Context, _ string, _ int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "A short summary.", nil
}

func (f *fakeLLM) ModelName() string            { return "fake-model" }
func (f *fakeLLM) Ping(_ context.Context) error { return nil }
func (f *fakeLLM) Close() error                 { return nil }

// testEnv holds real in-memory services installed into the command globals.
type testEnv struct {
	rag      *services.RAGService
	docs     *services.DocumentService
	ingest   *services.IngestService
	settings *services.SettingsService
	llm      *fakeLLM
}

// setupTestServices installs in-memory services and restores the previous
// ones when the test ends.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()

	llm := &fakeLLM{}
	index := memory.NewVectorIndex(local.NewHashEmbedder(128))
	pipeline := postprocessors.NewPipeline(chunker.New())
	rag := services.NewRAGService(index, pipeline, llm, nil, domain.DefaultAppSettings().RAG)
	docs := services.NewDocumentService(normalisers.NewDefaultRegistry(), memory.NewDocumentStore(), rag, llm)

	store, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		rag:      rag,
		docs:     docs,
		ingest:   services.NewIngestService(docs, 2),
		settings: services.NewSettingsService(store, ai.NewConfigValidator()),
		llm:      llm,
	}

	SetServices(&Services{
		RAG:      env.rag,
		Document: env.docs,
		Ingest:   env.ingest,
		Settings: env.settings,
	})
	t.Cleanup(func() { SetServices(nil) })
	return env
}

// upload stores a text document directly through the document service.
func (e *testEnv) upload(t *testing.T, id, name, content string) {
	t.Helper()
	_, err := e.docs.Upload(context.Background(), &domain.RawDocument{
		ID:      id,
		Name:    name,
		URI:     "file:///tmp/" + name,
		Content: []byte(content),
	})
	require.NoError(t, err)
}

// resetFlags restores every command flag variable to its default; cobra
// keeps parsed values between executions.
func resetFlags() {
	verbose, noColor, home = false, false, ""
	askTopK, askDocument, askJSON, askNoSource = 0, "", false, false
	searchLimit, searchDocument, searchJSON = domain.DefaultSearchTopK, "", false
	docsJSON, docsSummaryLength = false, 200
	statsJSON = false
	resetYes, resetAll = false, false
	indexJSON = false
	watchSkipInitial = false

	// cobra only propagates the root context to a subcommand whose context
	// is still nil, so clear contexts left over from earlier executions.
	for _, c := range rootCmd.Commands() {
		c.SetContext(nil)
	}
}

// execute runs the root command with args and returns what it wrote to
// stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}
