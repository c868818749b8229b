package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

// HybridService reranks vector store candidates with a blend of semantic
// similarity and keyword overlap. Ranking is fully deterministic: equal
// final scores break ties by source recency, then document ID.
type HybridService struct {
	embedder       interfaces.EmbeddingService
	vectorStore    interfaces.VectorStore
	lockService    interfaces.LockService
	semanticWeight float64
	keywordWeight  float64
	defaultTopK    int
	lockWait       time.Duration
	logger         arbor.ILogger
}

// candidateMultiplier oversamples the vector store so reranking has slack
// beyond the final topK.
const candidateMultiplier = 3

// NewHybridService creates the search service.
func NewHybridService(
	embedder interfaces.EmbeddingService,
	vectorStore interfaces.VectorStore,
	lockService interfaces.LockService,
	config *common.SearchConfig,
	logger arbor.ILogger,
) interfaces.SearchService {
	return &HybridService{
		embedder:       embedder,
		vectorStore:    vectorStore,
		lockService:    lockService,
		semanticWeight: config.SemanticWeight,
		keywordWeight:  config.KeywordWeight,
		defaultTopK:    config.DefaultTopK,
		lockWait:       common.Duration(config.LockWaitTimeout, 2*time.Second),
		logger:         logger,
	}
}

// Search answers one retrieval query against the store's namespaces.
func (s *HybridService) Search(ctx context.Context, query string, sctx models.SearchContext, opts models.SearchOptions, filters models.SearchFilters) (*models.SearchResponse, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if sctx.StoreID == "" {
		return nil, fmt.Errorf("store ID is required")
	}

	if lock := s.lockService.CheckLock(sctx.StoreID); lock != nil {
		if opts.LockWait == models.LockWaitNone {
			return &models.SearchResponse{Unavailable: true}, nil
		}
		if !s.lockService.WaitForUnlock(ctx, sctx.StoreID, s.lockWait) {
			return nil, &models.SearchUnavailableError{StoreID: sctx.StoreID}
		}
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}

	// An embedding provider outage is transient the same way a deletion in
	// progress is; surface it as unavailable so callers retry shortly.
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.logger.Warn().
			Str("store_id", sctx.StoreID).
			Err(err).
			Msg("Query embedding failed")
		return nil, &models.SearchUnavailableError{StoreID: sctx.StoreID}
	}

	candidates, err := s.vectorStore.Query(ctx, sctx.StoreID, filters.DataTypes, vector, topK*candidateMultiplier, opts.ScoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("vector store query failed: %w", err)
	}

	results := s.rerank(query, candidates, topK, opts.ScoreThreshold)

	s.logger.Debug().
		Str("store_id", sctx.StoreID).
		Str("agent_type", sctx.AgentType).
		Int("candidates", len(candidates)).
		Int("results", len(results)).
		Msg("Search completed")

	return &models.SearchResponse{Results: results}, nil
}

func (s *HybridService) rerank(query string, candidates []models.Candidate, topK int, threshold float64) []models.SearchResult {
	queryTokens := tokenize(query)

	results := make([]models.SearchResult, 0, len(candidates))
	for _, candidate := range candidates {
		keyword := keywordOverlap(queryTokens, candidate.Text)
		final := s.semanticWeight*candidate.Score + s.keywordWeight*keyword
		if final < threshold {
			continue
		}
		results = append(results, models.SearchResult{
			DocumentID:      candidate.DocumentID,
			DataType:        candidate.DataType,
			SourceID:        candidate.SourceID,
			SourceUpdatedAt: candidate.SourceUpdatedAt,
			Excerpt:         candidate.Text,
			SemanticScore:   candidate.Score,
			KeywordScore:    keyword,
			FinalScore:      final,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		if !results[i].SourceUpdatedAt.Equal(results[j].SourceUpdatedAt) {
			return results[i].SourceUpdatedAt.After(results[j].SourceUpdatedAt)
		}
		return results[i].DocumentID < results[j].DocumentID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
