package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// ChatClient is the part of the go-openai client the analyzer uses
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds the analyzer settings
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float32
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerMinute int
}

// NewClient creates a go-openai client from cfg
func NewClient(cfg Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// rootCauseReply is the JSON object the model is asked to return
type rootCauseReply struct {
	Source        string  `json:"source"`
	Details       string  `json:"details"`
	Confidence    float64 `json:"confidence"`
	SystemicIssue bool    `json:"systemic_issue"`
}

// RootCauseAnalyzer implements port.RootCauseAnalyzer with a chat model.
// Calls are rate limited; when a fallback is set it answers whenever the
// model call or its reply fails.
type RootCauseAnalyzer struct {
	client   ChatClient
	prompts  *PromptConfig
	model    string
	timeout  time.Duration
	limiter  *rate.Limiter
	fallback port.RootCauseAnalyzer
	logger   *zap.Logger
}

// AnalyzerOption configures the analyzer
type AnalyzerOption func(*RootCauseAnalyzer)

// WithFallback answers with analyzer when the model cannot
func WithFallback(analyzer port.RootCauseAnalyzer) AnalyzerOption {
	return func(a *RootCauseAnalyzer) {
		a.fallback = analyzer
	}
}

// WithPrompts overrides the built-in prompts. The analyzer keeps its own copy.
func WithPrompts(prompts *PromptConfig) AnalyzerOption {
	return func(a *RootCauseAnalyzer) {
		if prompts != nil {
			copied := *prompts
			a.prompts = &copied
		}
	}
}

// NewRootCauseAnalyzer creates an LLM-backed analyzer
func NewRootCauseAnalyzer(client ChatClient, cfg Config, logger *zap.Logger, opts ...AnalyzerOption) *RootCauseAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	a := &RootCauseAnalyzer{
		client:  client,
		prompts: DefaultPrompts(),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(a)
	}

	// explicit settings win over the prompt file
	if cfg.Temperature > 0 {
		a.prompts.RootCause.Temperature = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		a.prompts.RootCause.MaxTokens = cfg.MaxTokens
	}

	return a
}

// Analyze asks the model for the claim's root cause; ref may be nil
func (a *RootCauseAnalyzer) Analyze(ctx context.Context, claim *entity.Claim, ref *port.ReferenceData) (*entity.RootCause, error) {
	rc, err := a.analyze(ctx, claim, ref)
	if err == nil {
		return rc, nil
	}

	// a cancelled pipeline must not be masked by the fallback
	if a.fallback == nil || ctx.Err() != nil {
		return nil, err
	}

	a.logger.Error("LLM root cause failed, using fallback",
		zap.String("claim_id", claim.ID),
		zap.Error(err))
	return a.fallback.Analyze(ctx, claim, ref)
}

func (a *RootCauseAnalyzer) analyze(ctx context.Context, claim *entity.Claim, ref *port.ReferenceData) (*entity.RootCause, error) {
	prompt, err := a.buildPrompt(claim, ref)
	if err != nil {
		return nil, err
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.prompts.RootCause.Temperature,
		MaxTokens:   a.prompts.RootCause.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: a.prompts.RootCause.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		a.logger.Error("OpenAI API call failed", zap.String("claim_id", claim.ID), zap.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	reply, err := parseReply(resp.Choices[0].Message.Content)
	if err != nil {
		a.logger.Error("Failed to parse OpenAI response",
			zap.String("claim_id", claim.ID),
			zap.Error(err),
			zap.String("content", resp.Choices[0].Message.Content))
		return nil, err
	}

	rc := &entity.RootCause{
		Source:        entity.RootCauseSource(reply.Source),
		Details:       reply.Details,
		Confidence:    clamp(reply.Confidence),
		RelatedData:   ref.AsMap(),
		SystemicIssue: reply.SystemicIssue,
	}

	a.logger.Info("LLM root cause inferred",
		zap.String("claim_id", claim.ID),
		zap.String("source", string(rc.Source)),
		zap.Float64("confidence", rc.Confidence),
		zap.Bool("systemic", rc.SystemicIssue))

	return rc, nil
}

func (a *RootCauseAnalyzer) buildPrompt(claim *entity.Claim, ref *port.ReferenceData) (string, error) {
	reference := ""
	if ref != nil {
		data, err := json.MarshalIndent(ref, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode reference data: %w", err)
		}
		reference = string(data)
	}

	return renderTemplate(a.prompts.RootCause.UserTemplate, struct {
		Claim     *entity.Claim
		Reference string
	}{
		Claim:     claim,
		Reference: reference,
	})
}

func parseReply(content string) (*rootCauseReply, error) {
	var reply rootCauseReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		jsonStr := extractJSON(content)
		if jsonStr == "" {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if err := json.Unmarshal([]byte(jsonStr), &reply); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	if !entity.RootCauseSource(reply.Source).IsValid() {
		return nil, fmt.Errorf("unknown root cause source %q", reply.Source)
	}
	if reply.Details == "" {
		return nil, errors.New("root cause details are empty")
	}
	return &reply, nil
}

func clamp(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

var _ port.RootCauseAnalyzer = (*RootCauseAnalyzer)(nil)
