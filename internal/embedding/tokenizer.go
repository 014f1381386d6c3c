package embedding

import (
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// tokenBudget is the input ceiling for the embedding models we run;
// anything longer is truncated after normalization.
const tokenBudget = 2048

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// getEncoding lazily loads the cl100k_base BPE from the bundled offline
// loader so the tokenizer works without network access.
func getEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	return encoding
}

// Tokenizer satisfies chunker.TokenCounter and backs input truncation.
type Tokenizer struct{}

func NewTokenizer() *Tokenizer { return &Tokenizer{} }

func (t *Tokenizer) CountTokens(text string) int {
	if enc := getEncoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

// Normalize collapses whitespace, trims, and truncates to the model token
// budget. Embedding the same logical text must hit the model with the same
// bytes every time.
func Normalize(text string) string {
	var sb strings.Builder
	lastSpace := true
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !lastSpace {
				sb.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		sb.WriteRune(r)
		lastSpace = false
	}
	normalized := strings.TrimSpace(sb.String())

	enc := getEncoding()
	if enc == nil {
		return normalized
	}
	tokens := enc.Encode(normalized, nil, nil)
	if len(tokens) <= tokenBudget {
		return normalized
	}
	return enc.Decode(tokens[:tokenBudget])
}
