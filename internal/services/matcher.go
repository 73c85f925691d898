package services

import (
	"encoding/json"
	"math"
	"sort"

	"gorm.io/datatypes"

	"github.com/wsayer1/empathic-weave/internal/logger"
	"github.com/wsayer1/empathic-weave/internal/types"
)

// ScoredSecret is a candidate secret with its similarity to the query vector.
type ScoredSecret struct {
	Secret     *types.Secret
	Similarity float64
}

// Matcher ranks stored secrets against a query embedding. It is an
// interface so the linear scan can later be swapped for an indexed
// nearest-neighbor search without touching callers.
type Matcher interface {
	Rank(query []float64, candidates []*types.Secret, topK int) []ScoredSecret
}

type linearMatcher struct {
	log *logger.Logger
}

func NewLinearMatcher(log *logger.Logger) Matcher {
	return &linearMatcher{log: log.With("service", "LinearMatcher")}
}

// Rank scores every candidate by cosine similarity and returns the top
// min(topK, len) in non-increasing order. Candidates whose stored vector
// does not decode to exactly EmbeddingDim numbers are dropped, not errored:
// a malformed row must never surface in match results.
func (m *linearMatcher) Rank(query []float64, candidates []*types.Secret, topK int) []ScoredSecret {
	scored := make([]ScoredSecret, 0, len(candidates))
	dropped := 0
	for _, cand := range candidates {
		vec, ok := DecodeEmbedding(cand.Embedding)
		if !ok || len(vec) != len(query) {
			dropped++
			continue
		}
		scored = append(scored, ScoredSecret{
			Secret:     cand,
			Similarity: CosineSimilarity(query, vec),
		})
	}
	if dropped > 0 {
		m.log.Debug("Dropped candidates with invalid embeddings", "dropped", dropped, "total", len(candidates))
	}

	// Stable sort keeps input order on exact ties.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// DecodeEmbedding parses a stored embedding column. It accepts only a JSON
// array of exactly types.EmbeddingDim numbers.
func DecodeEmbedding(raw datatypes.JSON) ([]float64, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var vec []float64
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	if len(vec) != types.EmbeddingDim {
		return nil, false
	}
	return vec, true
}

// CosineSimilarity computes dot(a,b) / (|a| * |b|) in float64. A zero-length
// or zero-magnitude vector scores 0 rather than NaN.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
