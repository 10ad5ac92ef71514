package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"

	"lumina-rag/internal/chromemdb"
	"lumina-rag/internal/imagesearch"
	"lumina-rag/internal/models"
)

type fakeNormalizer struct {
	err error
}

func (f *fakeNormalizer) Normalize(_ context.Context, _, _ string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return string(data), nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

type fakeGenerator struct {
	plannerResponse string
	plannerErr      error
	answer          string
	answerErr       error

	synthesisSystem string
	synthesisUser   string
	plannerCalls    int
	synthesisCalls  int
}

func (f *fakeGenerator) Generate(_ context.Context, system, user string, _ ...llms.CallOption) (string, error) {
	if system == models.SystemPrompt {
		f.synthesisCalls++
		f.synthesisSystem = system
		f.synthesisUser = user
		return f.answer, f.answerErr
	}
	f.plannerCalls++
	return f.plannerResponse, f.plannerErr
}

type fakeSearcher struct {
	candidates map[string][]imagesearch.Candidate
	errs       map[string]error
	calls      int
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]imagesearch.Candidate, error) {
	f.calls++
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.candidates[query], nil
}

type testHarness struct {
	svc       *Service
	index     *chromemdb.Manager
	embedder  *fakeEmbedder
	generator *fakeGenerator
	searcher  *fakeSearcher
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	index, err := chromemdb.NewManager("", "lumina_notebook", true)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	logger := zerolog.Nop()
	embedder := &fakeEmbedder{}
	generator := &fakeGenerator{answer: "synthesized answer"}
	searcher := &fakeSearcher{}
	svc, err := NewService(&fakeNormalizer{}, embedder, index, generator, searcher, &logger)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(svc.Close)
	return &testHarness{svc: svc, index: index, embedder: embedder, generator: generator, searcher: searcher}
}

func TestIngestFile_SingleChunkWithSessionMetadata(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.svc.IngestFile(ctx, "hello.txt", "text/plain", "S1", []byte("Hello world")); err != nil {
		t.Fatalf("IngestFile: %v", err)
	}

	if h.index.Count() != 1 {
		t.Fatalf("expected exactly 1 stored chunk, got %d", h.index.Count())
	}
	results, err := h.index.Query(ctx, []float32{1, 0}, 4, map[string]string{models.MetaSessionID: "S1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result under S1, got %d", len(results))
	}
	if results[0].Content != "Hello world" {
		t.Errorf("expected chunk text 'Hello world', got %q", results[0].Content)
	}
	if results[0].Metadata[models.MetaFilename] != "hello.txt" {
		t.Errorf("missing filename metadata: %v", results[0].Metadata)
	}
	if results[0].Metadata[models.MetaSessionID] != "S1" {
		t.Errorf("missing session metadata: %v", results[0].Metadata)
	}
}

func TestIngestFile_EmptyContentWritesNothing(t *testing.T) {
	h := newHarness(t)

	if err := h.svc.IngestFile(context.Background(), "empty.txt", "text/plain", "S1", nil); err != nil {
		t.Fatalf("empty content must not be an error: %v", err)
	}
	if h.index.Count() != 0 {
		t.Errorf("expected no chunks written, got %d", h.index.Count())
	}
	if h.embedder.calls != 0 {
		t.Errorf("expected no embedding calls, got %d", h.embedder.calls)
	}
}

func TestIngestFile_EmbeddingFailureFailsUpload(t *testing.T) {
	h := newHarness(t)
	h.embedder.err = errors.New("embedding quota exceeded")

	err := h.svc.IngestFile(context.Background(), "doc.txt", "text/plain", "S1", []byte("content"))
	if err == nil {
		t.Fatal("expected upload to fail on embedding error")
	}
	if !strings.Contains(err.Error(), "embedding quota exceeded") {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestQuery_SessionIsolation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.svc.IngestFile(ctx, "a.txt", "text/plain", "A", []byte("alpha secret notes")); err != nil {
		t.Fatal(err)
	}
	if err := h.svc.IngestFile(ctx, "b.txt", "text/plain", "B", []byte("bravo meeting agenda")); err != nil {
		t.Fatal(err)
	}

	h.svc.Query(ctx, models.Query{Text: "what do my notes say?", SessionID: "B"})

	if !strings.Contains(h.generator.synthesisUser, "bravo meeting agenda") {
		t.Errorf("expected session B content in context, got %q", h.generator.synthesisUser)
	}
	if strings.Contains(h.generator.synthesisUser, "alpha secret notes") {
		t.Errorf("session A content leaked into session B context: %q", h.generator.synthesisUser)
	}
}

func TestQuery_EmptySessionUsesSentinel(t *testing.T) {
	h := newHarness(t)

	envelope := h.svc.Query(context.Background(), models.Query{Text: "anything", SessionID: "empty"})

	if envelope.Answer != "synthesized answer" {
		t.Errorf("expected the synthesized answer, got %q", envelope.Answer)
	}
	if !strings.Contains(h.generator.synthesisUser, models.NoContextSentinel) {
		t.Errorf("expected sentinel in synthesis prompt, got %q", h.generator.synthesisUser)
	}
}

func TestQuery_WithoutImagesNeverSearches(t *testing.T) {
	h := newHarness(t)

	envelope := h.svc.Query(context.Background(), models.Query{Text: "question", IncludeImages: false})

	if h.generator.plannerCalls != 0 {
		t.Errorf("planner invoked despite include_images=false")
	}
	if h.searcher.calls != 0 {
		t.Errorf("image search invoked despite include_images=false")
	}
	if envelope.Images == nil || len(envelope.Images) != 0 {
		t.Errorf("expected empty, non-nil image list, got %#v", envelope.Images)
	}
}

func TestQuery_GenerationFailureReturnsProcessingError(t *testing.T) {
	h := newHarness(t)
	h.generator.answerErr = errors.New("model unavailable")

	envelope := h.svc.Query(context.Background(), models.Query{Text: "question"})

	if !strings.HasPrefix(envelope.Answer, "Processing Error: ") {
		t.Errorf("expected processing error answer, got %q", envelope.Answer)
	}
	if len(envelope.Images) != 0 {
		t.Errorf("expected empty image list, got %d", len(envelope.Images))
	}
}

func TestQuery_ImagePipeline(t *testing.T) {
	h := newHarness(t)
	h.generator.plannerResponse = "solar system diagram | shows planet order\nmalformed line without pipe\nsun closeup | illustrates the star"
	h.searcher.candidates = map[string][]imagesearch.Candidate{
		"solar system diagram": {{URL: "https://img/solar.jpg", Thumbnail: "https://img/solar_t.jpg", Title: "Solar system"}},
	}
	h.searcher.errs = map[string]error{
		"sun closeup": errors.New("search timeout"),
	}

	envelope := h.svc.Query(context.Background(), models.Query{Text: "explain the solar system", IncludeImages: true})

	if h.generator.plannerCalls != 1 {
		t.Errorf("expected 1 planner call, got %d", h.generator.plannerCalls)
	}
	if h.searcher.calls != 2 {
		t.Errorf("expected one search per well-formed plan entry, got %d", h.searcher.calls)
	}
	if len(envelope.Images) != 1 {
		t.Fatalf("expected 1 image (failures dropped), got %d", len(envelope.Images))
	}
	img := envelope.Images[0]
	if img.URL != "https://img/solar.jpg" || img.Title != "Solar system" {
		t.Errorf("unexpected image: %+v", img)
	}
	if img.ContextLabel != "shows planet order" {
		t.Errorf("expected plan label on image, got %q", img.ContextLabel)
	}
}

func TestQuery_PlannerFailureDegradesToNoImages(t *testing.T) {
	h := newHarness(t)
	h.generator.plannerErr = errors.New("planner down")

	envelope := h.svc.Query(context.Background(), models.Query{Text: "question", IncludeImages: true})

	if h.searcher.calls != 0 {
		t.Errorf("expected no searches after planning failure, got %d", h.searcher.calls)
	}
	if len(envelope.Images) != 0 {
		t.Errorf("expected no images, got %d", len(envelope.Images))
	}
	if envelope.Answer != "synthesized answer" {
		t.Errorf("planning failure must not affect the answer, got %q", envelope.Answer)
	}
}

func TestClearStorage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.svc.IngestFile(ctx, "doc.txt", "text/plain", "S1", []byte("content")); err != nil {
		t.Fatal(err)
	}
	if err := h.svc.ClearStorage(ctx); err != nil {
		t.Fatalf("ClearStorage: %v", err)
	}
	if h.index.Count() != 0 {
		t.Errorf("expected empty index after clear, got %d", h.index.Count())
	}

	h.svc.Query(ctx, models.Query{Text: "anything", SessionID: "S1"})
	if !strings.Contains(h.generator.synthesisUser, models.NoContextSentinel) {
		t.Errorf("expected sentinel after clear, got %q", h.generator.synthesisUser)
	}
}

func TestDefine(t *testing.T) {
	h := newHarness(t)
	h.generator.plannerResponse = "A chunk is a bounded segment of text."

	got := h.svc.Define(context.Background(), "chunk", "retrieval pipelines")
	if got != "A chunk is a bounded segment of text." {
		t.Errorf("unexpected definition: %q", got)
	}
}

func TestDefine_FailureReturnsFixedMessage(t *testing.T) {
	h := newHarness(t)
	h.generator.plannerErr = errors.New("model unavailable")

	if got := h.svc.Define(context.Background(), "chunk", ""); got != models.DefinitionFailure {
		t.Errorf("expected %q, got %q", models.DefinitionFailure, got)
	}
}
