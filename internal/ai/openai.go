package ai

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Sampling bounds the randomness of one generation call.
type Sampling struct {
	Temperature float32
	TopP        float32
	// TopK is carried for providers that support it; the OpenAI backend ignores it.
	TopK int
}

// Request is one prompt to the text-generation capability.
type Request struct {
	System   string
	Prompt   string
	Sampling Sampling
	// JSON asks the backend for a JSON object response when it supports that.
	JSON bool
	// Model overrides the client default.
	Model string
}

// Result is generated text plus the tokens it cost.
type Result struct {
	Text   string
	Tokens int
}

// Generator is the text-generation capability used by both pipeline stages.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// ErrNoChoices is returned when the backend answered without any completion.
var ErrNoChoices = errors.New("ai: empty completion")

// OpenAIClient implements Generator using OpenAI Chat Completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional
}

func NewOpenAI(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ai: openai api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("ai: openai model must be specified")
	}
	var c *openai.Client
	if cfg.BaseURL != "" {
		cc := openai.DefaultConfig(cfg.APIKey)
		cc.BaseURL = cfg.BaseURL
		c = openai.NewClientWithConfig(cc)
	} else {
		c = openai.NewClient(cfg.APIKey)
	}
	return &OpenAIClient{client: c, model: cfg.Model}, nil
}

func (o *OpenAIClient) Generate(ctx context.Context, req Request) (Result, error) {
	// Default timeout guard, if caller didn't set one
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 120*time.Second)
		defer cancel()
	}
	model := req.Model
	if model == "" {
		model = o.model
	}
	var msgs []openai.ChatCompletionMessage
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})
	ccr := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Sampling.Temperature,
		TopP:        req.Sampling.TopP,
	}
	if req.JSON {
		ccr.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	resp, err := o.client.CreateChatCompletion(ctx, ccr)
	if err != nil {
		return Result{}, err
	}
	if len(resp.Choices) == 0 {
		return Result{Tokens: resp.Usage.TotalTokens}, ErrNoChoices
	}
	return Result{Text: resp.Choices[0].Message.Content, Tokens: resp.Usage.TotalTokens}, nil
}
