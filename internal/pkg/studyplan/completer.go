package studyplan

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
)

// Completion is the raw model answer plus the usage it was billed for.
type Completion struct {
	Text        string
	TotalTokens int
}

// Completer sends one prompt to a hosted language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}

const temperature = 0.2

type OpenAICompleter struct {
	client *openai.Client
	model  string
}

func NewOpenAICompleter(cfg config.LLMConfig) *OpenAICompleter {
	c := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		c.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
	}
	if cfg.Timeout > 0 {
		c.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAICompleter{client: openai.NewClientWithConfig(c), model: cfg.Model}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (Completion, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: temperature,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, invalid("completion has no choices")
	}
	return Completion{
		Text:        resp.Choices[0].Message.Content,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}

// GeminiCompleter talks to Gemini on Vertex AI.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

func NewGeminiCompleter(ctx context.Context, cfg config.LLMConfig) (*GeminiCompleter, error) {
	var opts []option.ClientOption
	if cfg.VertexCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.VertexCredentials))
	}
	client, err := genai.NewClient(ctx, cfg.VertexProject, cfg.VertexLocation, opts...)
	if err != nil {
		return nil, fmt.Errorf("vertex client: %w", err)
	}
	return &GeminiCompleter{client: client, model: cfg.Model}, nil
}

func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (Completion, error) {
	model := c.client.GenerativeModel(c.model)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(temperature)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Completion{}, fmt.Errorf("gemini completion: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Completion{}, invalid("completion has no candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return Completion{Text: text.String(), TotalTokens: tokens}, nil
}

func (c *GeminiCompleter) Close() error {
	return c.client.Close()
}

// NewCompleter picks the completer for the configured provider.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	switch cfg.Provider {
	case config.LLMProviderVertex:
		return NewGeminiCompleter(ctx, cfg)
	case config.LLMProviderOpenAI, "":
		return NewOpenAICompleter(cfg), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}
