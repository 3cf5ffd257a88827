package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shaiso/SmartTweet/internal/domain"
)

const defaultContentPrompt = `Rewrite this simple social media post as an engaging, human-sounding tweet.

Rules:
- Conversational and natural
- Natural emoji use
- Keep it under 280 characters
- Remove timestamps
- No hashtags

Original: "{content}"

Improved version:`

const defaultPollPrompt = `Create 2-4 sensible, realistic answer options for this poll question.

Return ONLY a JSON array: ["option1", "option2", "option3", "option4"]

Question: "{question}"

Rules:
- Analyse the topic of the question and fit the options to it
- Options must be realistic and popular
- Return 2-4 options
- JSON array only, no other text

Answer:`

var (
	fencePattern     = regexp.MustCompile("(?i)```(json)?")
	quotePattern     = regexp.MustCompile(`^["']|["']$`)
	timestampPattern = regexp.MustCompile(`\s*—\s*\d{1,2}:\d{2}:\d{2}\s*(AM|PM)?\s*$`)
)

// Enhancer — AI-улучшение текста и генерация вариантов опроса.
type Enhancer struct {
	gen           Generator
	logger        *slog.Logger
	contentPrompt string
	pollPrompt    string
}

// Config — конфигурация Enhancer.
type Config struct {
	// Generator (опционально; если nil — работают только шаблонные варианты)
	Generator Generator

	// ContentPrompt и PollPrompt (опционально). Плейсхолдеры: {content}, {question}.
	ContentPrompt string
	PollPrompt    string

	Logger *slog.Logger
}

// New создаёт Enhancer.
func New(cfg Config) *Enhancer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	contentPrompt := cfg.ContentPrompt
	if contentPrompt == "" {
		contentPrompt = defaultContentPrompt
	}
	pollPrompt := cfg.PollPrompt
	if pollPrompt == "" {
		pollPrompt = defaultPollPrompt
	}
	return &Enhancer{
		gen:           cfg.Generator,
		logger:        logger,
		contentPrompt: contentPrompt,
		pollPrompt:    pollPrompt,
	}
}

// EnhanceContent переписывает текст через AI.
// При ошибке вызывающий использует исходный текст.
func (e *Enhancer) EnhanceContent(ctx context.Context, content string, ownerID int64) (string, error) {
	if e.gen == nil {
		return "", ErrNoGenerator
	}

	prompt := strings.Replace(e.contentPrompt, "{content}", content, 1)
	text, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("enhance content: %w", err)
	}

	text = quotePattern.ReplaceAllString(strings.TrimSpace(text), "")
	if text == "" {
		return "", fmt.Errorf("enhance content: empty result")
	}

	e.logger.Debug("content enhanced", "owner_id", ownerID)
	return text, nil
}

// ExtractOptions возвращает 2-4 варианта для вопроса опроса.
// Никогда не завершается ошибкой: при сбое AI используются шаблонные варианты.
func (e *Enhancer) ExtractOptions(ctx context.Context, question string, ownerID int64) []string {
	logger := e.logger.With("owner_id", ownerID)

	if e.gen == nil {
		return FallbackOptions(question)
	}

	prompt := strings.Replace(e.pollPrompt, "{question}", question, 1)
	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		logger.Warn("poll option generation failed, using fallback", "error", err)
		return FallbackOptions(question)
	}

	options, err := ParseOptions(raw)
	if err != nil {
		logger.Warn("invalid poll options from ai, using fallback", "error", err)
		return FallbackOptions(question)
	}
	return options
}

// ParseOptions разбирает ответ модели: JSON-массив строк,
// возможно внутри markdown-блока. Каждый вариант обрезается до 25 символов,
// лишние варианты сверх четырёх отбрасываются.
func ParseOptions(raw string) ([]string, error) {
	clean := strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))

	var parsed []any
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("parse options json: %w", err)
	}

	options := make([]string, 0, domain.MaxPollOptions)
	for _, v := range parsed {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		options = append(options, domain.TruncateOption(s))
		if len(options) == domain.MaxPollOptions {
			break
		}
	}

	if len(options) < domain.MinPollOptions {
		return nil, fmt.Errorf("expected at least %d options, got %d", domain.MinPollOptions, len(options))
	}
	return options, nil
}

// StripTimestamp убирает хвостовую метку времени вида " — 10:30:00 PM".
func StripTimestamp(content string) string {
	return timestampPattern.ReplaceAllString(content, "")
}
