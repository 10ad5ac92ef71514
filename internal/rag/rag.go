// Package rag implements the retrieval-augmented pipeline: ingestion of
// normalized content into the vector index and query answering over it.
package rag

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"

	"lumina-rag/internal/chunker"
	"lumina-rag/internal/helper"
	"lumina-rag/internal/imagesearch"
	"lumina-rag/internal/models"
)

// Normalizer converts an uploaded artifact into a plain-text blob.
type Normalizer interface {
	Normalize(ctx context.Context, filename, mimeType string, data []byte) (string, error)
}

// Embedder maps text to a fixed-dimension vector. The same embedder must
// back ingestion and queries.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a completion from a system instruction and one user
// turn.
type Generator interface {
	Generate(ctx context.Context, system, user string, opts ...llms.CallOption) (string, error)
}

// VectorIndex is the persistent store of embedded chunks.
type VectorIndex interface {
	Add(ctx context.Context, docs []chromem.Document) error
	Query(ctx context.Context, embedding []float32, k int, where map[string]string) ([]chromem.Result, error)
	Reset(ctx context.Context) error
}

// ImageSearcher resolves a query to ranked image candidates.
type ImageSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]imagesearch.Candidate, error)
}

type Service struct {
	normalizer Normalizer
	embedder   Embedder
	index      VectorIndex
	generator  Generator
	searcher   ImageSearcher
	searchPool *ants.Pool
	logger     *zerolog.Logger
}

func NewService(normalizer Normalizer, embedder Embedder, index VectorIndex, generator Generator, searcher ImageSearcher, logger *zerolog.Logger) (*Service, error) {
	pool, err := ants.NewPool(models.MaxImageQueries)
	if err != nil {
		return nil, fmt.Errorf("create image search pool: %w", err)
	}
	return &Service{
		normalizer: normalizer,
		embedder:   embedder,
		index:      index,
		generator:  generator,
		searcher:   searcher,
		searchPool: pool,
		logger:     logger,
	}, nil
}

func (s *Service) Close() {
	s.searchPool.Release()
}

// IngestFile normalizes, chunks, embeds and indexes one uploaded file under
// sessionID. Empty or unrecognized content is not an error and writes
// nothing. An embedding failure fails the whole upload; chunks already
// written for the file are not rolled back, so a retried upload may leave
// duplicates.
func (s *Service) IngestFile(ctx context.Context, filename, mimeType, sessionID string, data []byte) error {
	blob, err := s.normalizer.Normalize(ctx, filename, mimeType, data)
	if err != nil {
		return fmt.Errorf("normalize %s: %w", filename, err)
	}

	chunks := chunker.Split(blob, models.ChunkSize)
	if len(chunks) == 0 {
		s.logger.Info().Str("filename", filename).Msg("no indexable content, skipping")
		return nil
	}

	contentType := mimeType
	if contentType == "" {
		contentType = "text"
	}

	for i, chunk := range chunks {
		vector, err := s.embedder.EmbedQuery(ctx, chunk)
		if err != nil {
			return fmt.Errorf("embed chunk %d of %s: %w", i+1, filename, err)
		}
		id, err := helper.GenerateUUID()
		if err != nil {
			return err
		}
		metadata := map[string]string{
			models.MetaFilename: filename,
			models.MetaType:     contentType,
		}
		if sessionID != "" {
			metadata[models.MetaSessionID] = sessionID
		}
		doc := chromem.Document{
			ID:        id,
			Content:   chunk,
			Embedding: vector,
			Metadata:  metadata,
		}
		if err := s.index.Add(ctx, []chromem.Document{doc}); err != nil {
			return fmt.Errorf("index chunk %d of %s: %w", i+1, filename, err)
		}
	}

	s.logger.Info().Str("filename", filename).Str("session_id", sessionID).Int("chunks", len(chunks)).Msg("file ingested")
	return nil
}

// Query answers one chat request. It always returns a well-formed envelope:
// retrieval problems degrade to the no-context sentinel, image problems
// degrade to fewer (or no) images, and a generation failure yields a
// structured error answer instead of propagating.
func (s *Service) Query(ctx context.Context, q models.Query) models.AnswerEnvelope {
	retrieval := s.retrieve(ctx, q)
	contextStr := retrieval.Context()

	var images []models.ImageResult
	if q.IncludeImages {
		images = s.findImages(ctx, q.Text, contextStr)
	}

	answer, err := s.generator.Generate(ctx, models.SystemPrompt,
		fmt.Sprintf(models.UserTurnTemplate, contextStr, q.Text))
	if err != nil {
		s.logger.Error().Err(err).Msg("answer synthesis failed")
		return models.AnswerEnvelope{
			Answer: models.ProcessingErrorPrefix + err.Error(),
			Images: []models.ImageResult{},
		}
	}

	if images == nil {
		images = []models.ImageResult{}
	}
	return models.AnswerEnvelope{Answer: answer, Images: images}
}

// retrieve embeds the query and fetches the top matches, filtered to the
// session when one is supplied. Errors degrade to an empty result so the
// query path continues with the sentinel context.
func (s *Service) retrieve(ctx context.Context, q models.Query) models.RetrievalResult {
	vector, err := s.embedder.EmbedQuery(ctx, q.Text)
	if err != nil {
		s.logger.Warn().Err(err).Msg("query embedding failed, proceeding without context")
		return models.RetrievalResult{}
	}

	var where map[string]string
	if q.SessionID != "" {
		where = map[string]string{models.MetaSessionID: q.SessionID}
	}

	results, err := s.index.Query(ctx, vector, models.TopK, where)
	if err != nil {
		s.logger.Warn().Err(err).Msg("retrieval failed, proceeding without context")
		return models.RetrievalResult{}
	}

	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Content)
	}
	return models.RetrievalResult{Texts: texts, Found: len(texts) > 0}
}

// Define asks for a short definition of term within the given context. A
// generation failure yields the fixed failure message, never an error.
func (s *Service) Define(ctx context.Context, term, contextStr string) string {
	definition, err := s.generator.Generate(ctx, "",
		fmt.Sprintf(models.DefinePromptTemplate, term, contextStr))
	if err != nil {
		s.logger.Warn().Err(err).Str("term", term).Msg("definition lookup failed")
		return models.DefinitionFailure
	}
	return definition
}

// ClearStorage wipes the whole knowledge base.
func (s *Service) ClearStorage(ctx context.Context) error {
	if err := s.index.Reset(ctx); err != nil {
		return err
	}
	s.logger.Info().Msg("knowledge base cleared")
	return nil
}
