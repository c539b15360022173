package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	contractx "github.com/careloop/careline/agent/contract"
)

var _ contractx.Classifier = (*Client)(nil)

// Client implements contract.Classifier on top of the OpenAI chat completions
// API. Decide uses JSON-object response format and decodes the single-field
// route decision; Answer wraps free text in a map with a "summary" field.
type Client struct {
	api         openaisdk.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{
		api:         openaisdk.NewClient(opts...),
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxCompletionToken,
	}, nil
}

func MustNewClient(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

func (c *Client) Decide(ctx context.Context, systemInstruction, userText string) (contractx.RouteDecision, error) {
	content, err := c.complete(ctx, systemInstruction, userText, true)
	if err != nil {
		return contractx.RouteDecision{}, err
	}

	var decision contractx.RouteDecision
	if err := json.Unmarshal([]byte(content), &decision); err != nil {
		return contractx.RouteDecision{}, fmt.Errorf("%w: decode route decision: %v", contractx.ErrSchemaViolation, err)
	}
	if strings.TrimSpace(decision.Route) == "" {
		return contractx.RouteDecision{}, fmt.Errorf("%w: route field is empty", contractx.ErrSchemaViolation)
	}
	return decision, nil
}

func (c *Client) Answer(ctx context.Context, systemInstruction, userText string) (map[string]any, error) {
	content, err := c.complete(ctx, systemInstruction, userText, false)
	if err != nil {
		return nil, err
	}
	return map[string]any{"summary": content}, nil
}

func (c *Client) complete(ctx context.Context, systemInstruction, userText string, jsonMode bool) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(systemInstruction),
			openaisdk.UserMessage(userText),
		},
		Temperature: openaisdk.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(c.maxTokens))
	}
	if jsonMode {
		params.ResponseFormat = openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion has no choices", contractx.ErrSchemaViolation)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
