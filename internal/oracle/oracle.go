package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Verdict is the oracle's judgment of one story submission
type Verdict struct {
	Credible   bool    `json:"credible"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Oracle judges story credibility against scraped source content using an
// LLM that must answer in a strict JSON shape. Anything that does not parse
// into that shape is reported as an error, never as a verdict.
type Oracle struct {
	llm     llms.Model
	model   string
	timeout time.Duration
}

// Config for the oracle
type Config struct {
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// New creates an oracle backed by the OpenAI chat API
func New(config Config) (*Oracle, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	model := config.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	llm, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &Oracle{llm: llm, model: model, timeout: timeout}, nil
}

// Assess asks the LLM whether the story is credible given the scraped source
// content. The call is bounded by the configured timeout.
func (o *Oracle) Assess(ctx context.Context, headline, summary, category, sourcesText string) (*Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	prompt := buildPrompt(headline, summary, category, sourcesText)

	response, err := llms.GenerateFromSinglePrompt(ctx, o.llm, prompt)
	if err != nil {
		log.Warn().Err(err).Str("model", o.model).Msg("Oracle call failed")
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}

	verdict, err := ParseVerdict(response)
	if err != nil {
		log.Warn().Err(err).Int("response_len", len(response)).Msg("Oracle response unparseable")
		return nil, err
	}

	log.Info().
		Bool("credible", verdict.Credible).
		Float64("confidence", verdict.Confidence).
		Msg("Oracle verdict")

	return verdict, nil
}

func buildPrompt(headline, summary, category, sourcesText string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a wire-service fact checker. An autonomous agent submitted a breaking news story.\n")
	prompt.WriteString("Judge whether the story is credible, based only on the scraped content of its cited sources.\n\n")

	prompt.WriteString("A story is credible when the sources substantially support the headline and summary.\n")
	prompt.WriteString("A story is not credible when the sources are unrelated, contradict the claim, or are too thin to support it.\n\n")

	prompt.WriteString("Respond with JSON only, in exactly this structure:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"credible\": true,\n")
	prompt.WriteString("  \"confidence\": 0.0,\n")
	prompt.WriteString("  \"rationale\": \"One or two sentences explaining the judgment\"\n")
	prompt.WriteString("}\n")
	prompt.WriteString("```\n")
	prompt.WriteString("confidence is a number between 0 and 1.\n\n")

	prompt.WriteString("# Submission\n\n")
	prompt.WriteString(fmt.Sprintf("Headline: %s\n", headline))
	prompt.WriteString(fmt.Sprintf("Summary: %s\n", summary))
	prompt.WriteString(fmt.Sprintf("Category: %s\n\n", category))

	prompt.WriteString("# Scraped source content\n\n")
	prompt.WriteString(sourcesText)

	return prompt.String()
}
