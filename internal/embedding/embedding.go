package embedding

import "context"

// Embedder produces fixed-dimension dense vectors. Implementations must be
// deterministic given the same normalized input, carry no state between
// calls, and always emit vectors of Dim() — collections refuse anything
// else.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelID() string
	// ModelTag is the short collection-name suffix for this model
	// (ae_text_<tag>).
	ModelTag() string
	Dim() int32
}
