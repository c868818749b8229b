package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/ternarybob/taberna/internal/interfaces"
)

// OfflineService is a deterministic embedding stand-in for tests and
// development without API access. Vectors are derived from a hash of the
// input, so equal texts always embed identically and different texts almost
// never collide.
type OfflineService struct {
	dimension int
}

// NewOfflineService creates the offline embedding provider.
func NewOfflineService(dimension int) interfaces.LLMService {
	if dimension <= 0 {
		dimension = 768
	}
	return &OfflineService{dimension: dimension}
}

func (s *OfflineService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = s.embed(text)
	}
	return vectors, nil
}

func (s *OfflineService) embed(text string) []float32 {
	vector := make([]float32, s.dimension)
	seed := sha256.Sum256([]byte(text))

	// Stretch the hash across the vector, then normalize to unit length so
	// cosine scores stay in a sane range.
	var norm float64
	for i := 0; i < s.dimension; i++ {
		chunk := sha256.Sum256(append(seed[:], byte(i), byte(i>>8)))
		bits := binary.BigEndian.Uint32(chunk[:4])
		v := float32(bits)/float32(math.MaxUint32)*2 - 1
		vector[i] = v
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector
}

func (s *OfflineService) Dimension() int {
	return s.dimension
}

func (s *OfflineService) ModelName() string {
	return "offline-hash"
}

func (s *OfflineService) HealthCheck(ctx context.Context) error {
	return nil
}
