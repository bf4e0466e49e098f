package testutil

import (
	"context"
	"crypto/sha256"
	"math"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// FakeEmbedder implements ai.Embedder with deterministic vectors so
// similarity tests run without a model provider. Texts sharing words
// produce nearby vectors; unrelated texts land far apart.
type FakeEmbedder struct {
	// Dimension of produced vectors; defaults to 768 when zero.
	Dimension int
	// Err, when set, fails every Embed call.
	Err error
}

func (f *FakeEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	dim := f.Dimension
	if dim == 0 {
		dim = 768
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text strings.Builder
		for _, part := range doc.Content {
			text.WriteString(part.Text)
		}
		resp.Embeddings = append(resp.Embeddings,
			&ai.Embedding{Embedding: wordVector(text.String(), dim)})
	}
	return resp, nil
}

func (f *FakeEmbedder) Name() string { return "testutil/fake-embedder" }

func (f *FakeEmbedder) Register(_ api.Registry) {}

// wordVector builds a normalized bag-of-words vector: each word hashes
// to a dimension bucket. Shared words raise cosine similarity the same
// way shared meaning would with a real embedder.
func wordVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := sha256.Sum256([]byte(word))
		bucket := (int(h[0])<<16 | int(h[1])<<8 | int(h[2])) % dim
		vec[bucket]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
