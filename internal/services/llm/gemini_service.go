package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"google.golang.org/genai"
)

// GeminiService implements LLMService against the Gemini embedding API.
type GeminiService struct {
	config  *common.LLMConfig
	client  *genai.Client
	timeout time.Duration
	logger  arbor.ILogger
}

// NewGeminiService creates a Gemini embedding provider. The API key comes
// from configuration (or the TABERNA_LLM_GOOGLE_API_KEY override applied
// during config load).
func NewGeminiService(config *common.LLMConfig, logger arbor.ILogger) (interfaces.LLMService, error) {
	if config.GoogleAPIKey == "" {
		return nil, fmt.Errorf("Google API key is required for the Gemini embedding provider (set llm.google_api_key or TABERNA_LLM_GOOGLE_API_KEY)")
	}
	if config.EmbedModelName == "" {
		config.EmbedModelName = "gemini-embedding-001"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.GoogleAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  config,
		client:  client,
		timeout: common.Duration(config.Timeout, 60*time.Second),
		logger:  logger,
	}

	logger.Info().
		Str("embed_model", config.EmbedModelName).
		Int("embed_dimension", config.EmbedDimension).
		Msg("Gemini embedding service initialized")

	return service, nil
}

// EmbedBatch embeds texts in one API call, returning vectors in input order.
func (s *GeminiService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("text cannot be empty for embedding generation")
		}
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	outputDim := int32(s.config.EmbedDimension)
	result, err := s.client.Models.EmbedContent(timeoutCtx, s.config.EmbedModelName, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, embedding := range result.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		vectors[i] = embedding.Values
	}

	s.logger.Debug().
		Int("batch_size", len(texts)).
		Int("dimension", len(vectors[0])).
		Msg("Embedded batch")

	return vectors, nil
}

// Dimension returns the configured output dimensionality.
func (s *GeminiService) Dimension() int {
	return s.config.EmbedDimension
}

// ModelName identifies the embedding model.
func (s *GeminiService) ModelName() string {
	return s.config.EmbedModelName
}

// HealthCheck embeds a short probe to verify connectivity and quota.
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	vectors, err := s.EmbedBatch(probeCtx, []string{"health check probe"})
	if err != nil {
		return fmt.Errorf("embedding probe failed: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return fmt.Errorf("embedding probe returned an empty vector")
	}
	return nil
}
