package checks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/plantdex/plantdex/internal/customHttpClient"
	"github.com/plantdex/plantdex/internal/domain/ocModel"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

// hard blocks: fragments that must never leave the organization regardless
// of what the model thinks
var blockPatterns = []struct {
	re      *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`(?i)коммерческая\s+тайна`), "references trade secrets"},
	{regexp.MustCompile(`(?i)конфиденциально,?\s+не\s+для\s+передачи`), "marked not for release"},
	{regexp.MustCompile(`(?i)взятк|откат`), "references improper payments"},
	{regexp.MustCompile(`(?i)пошел\s+ты|идиот|дебил|кретин`), "abusive language"},
	{regexp.MustCompile(`(?i)\bbribe|kickback\b`), "references improper payments"},
	{regexp.MustCompile(`(?i)\bidiot|moron|stupid\s+(?:client|vendor|contractor)\b`), "abusive language"},
}

const ethicsSystemPrompt = `You review outgoing business correspondence from an engineering company.
Rate the text for professional ethics: courtesy, absence of discrimination, pressure, or disclosure of confidential matter.
Respond with JSON only: {"score": <0-100>, "issues": [{"fragment": "<quote>", "message": "<why>"}]}`

type ethicsModelReply struct {
	Score  float64 `json:"score"`
	Issues []struct {
		Fragment string `json:"fragment"`
		Message  string `json:"message"`
	} `json:"issues"`
}

// EthicsProvider combines a deterministic blocklist pass with a model
// review. Without an API key the provider reports unavailable and the
// orchestrator excludes it from the weighted score.
type EthicsProvider struct {
	client openai.Client
	model  string
	apiKey string
	weight float64
	logger *logger_i.Logger
}

func NewEthicsProvider(apiKey, model string, weight float64) *EthicsProvider {
	return &EthicsProvider{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(&http.Client{Transport: customHttpClient.Transport()}),
		),
		model:  model,
		apiKey: apiKey,
		weight: weight,
		logger: logger_i.NewLogger("EthicsCheck"),
	}
}

func (e *EthicsProvider) Name() string { return "ethics" }

func (e *EthicsProvider) Weight() float64 { return e.weight }

func (e *EthicsProvider) Available() bool { return e.apiKey != "" }

func (e *EthicsProvider) Check(ctx context.Context, text string) ocModel.CheckResult {
	result := ocModel.CheckResult{Name: e.Name(), Score: 100}
	e.patternPass(text, &result)

	modelScore, modelIssues, err := e.modelPass(ctx, text)
	if err != nil {
		// blocklist verdict still stands on its own
		e.logger.Warn("ethics model pass failed, keeping pattern verdict", "error", err)
		if result.Critical {
			result.Score = 0
		}
		return result
	}
	for _, issue := range modelIssues {
		result.ErrorsFound++
		result.Issues = append(result.Issues, issue)
	}
	result.Score = clampScore(modelScore)
	if result.Critical {
		result.Score = 0
	}
	return result
}

func (e *EthicsProvider) patternPass(text string, result *ocModel.CheckResult) {
	for _, p := range blockPatterns {
		loc := p.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		result.Critical = true
		result.ErrorsFound++
		result.Issues = append(result.Issues, ocModel.Issue{
			Check:    e.Name(),
			Fragment: text[loc[0]:loc[1]],
			Position: len([]rune(text[:loc[0]])),
			Message:  p.message,
			Severity: ocModel.SeverityCritical,
		})
	}
}

func (e *EthicsProvider) modelPass(ctx context.Context, text string) (float64, []ocModel.Issue, error) {
	completion, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(ethicsSystemPrompt),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return 0, nil, fmt.Errorf("ethics completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return 0, nil, fmt.Errorf("ethics completion returned no choices")
	}
	var reply ethicsModelReply
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &reply); err != nil {
		return 0, nil, fmt.Errorf("ethics reply parse: %w", err)
	}
	issues := make([]ocModel.Issue, 0, len(reply.Issues))
	for _, i := range reply.Issues {
		issues = append(issues, ocModel.Issue{
			Check:    e.Name(),
			Fragment: i.Fragment,
			Message:  i.Message,
			Severity: ocModel.SeverityWarning,
		})
	}
	return reply.Score, issues, nil
}
