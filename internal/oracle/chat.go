package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sashabaranov/go-openai"

	"github.com/mlebedev/verifact/internal/logging"
	"github.com/mlebedev/verifact/internal/model"
)

// ChatOracle implements Oracle over an OpenAI-compatible chat-completions
// endpoint. Output diversity across verification passes comes solely from
// the temperature parameter; the service honors no seed.
type ChatOracle struct {
	client   *openai.Client
	model    string
	maxToken int
	timeout  time.Duration
	attempts uint
}

// NewChatOracle creates an oracle from configuration.
func NewChatOracle(cfg model.OracleConfig) (*ChatOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return &ChatOracle{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.Model,
		maxToken: maxTokens,
		timeout:  timeout,
		attempts: uint(attempts),
	}, nil
}

// Judge evaluates one assertion against its evidence. Malformed output
// degrades to the Fallback verdict with the raw text as reasoning.
func (o *ChatOracle) Judge(ctx context.Context, assertion string, docs []model.EvidenceDocument, temperature float64) (Verdict, error) {
	raw, err := o.complete(ctx, buildFactCheckPrompt(assertion, docs), temperature)
	if err != nil {
		return Verdict{}, fmt.Errorf("judge: %w", err)
	}

	verdict, ok := parseVerdict(raw)
	if !ok {
		logging.L().Warnf("oracle returned non-JSON verdict, falling back to Uncertain (%d bytes)", len(raw))
		return Fallback(raw), nil
	}
	return verdict, nil
}

// JudgeBatch evaluates all items in a single call.
func (o *ChatOracle) JudgeBatch(ctx context.Context, items []BatchItem, temperature float64) ([]IndexedVerdict, error) {
	raw, err := o.complete(ctx, buildBatchPrompt(items), temperature)
	if err != nil {
		return nil, fmt.Errorf("judge batch: %w", err)
	}

	verdicts, err := parseVerdictArray(raw)
	if err != nil {
		return nil, fmt.Errorf("judge batch: %w", err)
	}
	if dropped := len(items) - len(verdicts); dropped > 0 {
		logging.L().Warnf("batch response dropped %d corrupt item(s)", dropped)
	}
	return verdicts, nil
}

// Extract pulls factual assertions out of the chapter. The whole
// generate-and-parse step is retried, since a parse failure here means
// re-asking the model, not falling back.
func (o *ChatOracle) Extract(ctx context.Context, chapterName, content string) ([]model.Assertion, error) {
	prompt := buildExtractionPrompt(chapterName, content)

	var assertions []model.Assertion
	err := retry.Do(
		func() error {
			raw, err := o.completeOnce(ctx, prompt, 0.2, 8192)
			if err != nil {
				return err
			}
			assertions, err = parseAssertions(raw)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(o.attempts),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logging.L().Errorf("extraction attempt %d/%d failed: %v", n+1, o.attempts, err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("extract assertions: %w", err)
	}
	return assertions, nil
}

// complete issues one chat completion with bounded immediate retries.
func (o *ChatOracle) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	var content string
	err := retry.Do(
		func() error {
			raw, err := o.completeOnce(ctx, prompt, temperature, o.maxToken)
			if err != nil {
				return err
			}
			content = raw
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(o.attempts),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logging.L().Warnf("oracle call attempt %d/%d failed: %v", n+1, o.attempts, err)
		}),
	)
	return content, err
}

func (o *ChatOracle) completeOnce(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(cctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a fact-checking service that responds with strict JSON only.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: float32(clampTemperature(temperature)),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

func clampTemperature(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
