package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/genai"
)

// Модели по умолчанию.
const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// ErrNoGenerator — AI-провайдер не настроен.
var ErrNoGenerator = errors.New("ai provider is not configured")

// Generator — одна текстовая генерация по промпту.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator — генерация через Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator создаёт клиента Gemini.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrNoGenerator)
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate отправляет промпт в модель и возвращает текст ответа.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("gemini generate: empty response")
	}
	return text, nil
}

// OpenAIGenerator — генерация через OpenAI Chat Completions.
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

// NewOpenAIGenerator создаёт клиента OpenAI.
func NewOpenAIGenerator(apiKey, model string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrNoGenerator)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIGenerator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Generate отправляет промпт одним user-сообщением.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("openai generate: no choices")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// NewGenerator выбирает провайдера по имени: "gemini" или "openai".
// Пустой ключ — провайдер не настроен, возвращается ErrNoGenerator.
func NewGenerator(ctx context.Context, provider, apiKey, model string) (Generator, error) {
	switch provider {
	case "gemini", "":
		return NewGeminiGenerator(ctx, apiKey, model)
	case "openai":
		return NewOpenAIGenerator(apiKey, model)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", provider)
	}
}
