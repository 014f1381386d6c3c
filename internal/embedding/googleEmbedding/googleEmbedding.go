package googleEmbedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/plantdex/plantdex/internal/domain/faults"
	"github.com/plantdex/plantdex/internal/embedding"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
	logger    *logger_i.Logger
}

// New builds the Gemini-backed embedder. The output dimensionality is
// pinned from configuration; a collection created for this embedder will
// refuse vectors of any other size.
func New(ctx context.Context, modelName string, apiKey string, dimension int32) (embedding.Embedder, error) {
	logger := logger_i.NewLogger("google_embedding")

	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, faults.Wrap(faults.KindFatal, "creating Google embedding client", err)
	}
	logger.Info("Google Embedding client created", "model", modelName, "dim", dimension)

	return &client{genAi: c, model: modelName, dimension: dimension, logger: logger}, nil
}

func (c *client) ModelID() string { return c.model }

func (c *client) Dim() int32 { return c.dimension }

// ModelTag shortens the model id to a collection suffix: the first letter
// of the family plus the dimension, e.g. g1536.
func (c *client) ModelTag() string {
	family := "m"
	if len(c.model) > 0 {
		family = strings.ToLower(c.model[:1])
	}
	return fmt.Sprintf("%s%d", family, c.dimension)
}

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: embedding.Normalize(text)}},
		})
	}

	result, err := c.doCall(ctx, contents)
	if err != nil {
		if isRateLimited(err) {
			// one courtesy retry on quota exhaustion; the caller's
			// backoff machinery owns everything beyond that
			time.Sleep(5 * time.Second)
			result, err = c.doCall(ctx, contents)
		}
		if err != nil {
			c.logger.Error("Error getting embeddings from Google", "error", err)
			return nil, faults.Transient("embedding call failed", err)
		}
	}

	if len(result.Embeddings) != len(texts) {
		return nil, faults.Integrity("embedder returned %d vectors for %d inputs",
			len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, 0, len(result.Embeddings))
	for _, r := range result.Embeddings {
		if int32(len(r.Values)) != c.dimension {
			return nil, faults.Integrity("embedder returned dimension %d, want %d",
				len(r.Values), c.dimension)
		}
		vectors = append(vectors, r.Values)
	}
	return vectors, nil
}

func (c *client) doCall(ctx context.Context, contents []*genai.Content) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &c.dimension,
		TaskType:             "RETRIEVAL_DOCUMENT",
	})
}

func isRateLimited(err error) bool {
	if s, ok := status.FromError(err); ok {
		return s.Code() == codes.ResourceExhausted
	}
	return false
}
