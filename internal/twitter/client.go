package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL — адрес X API v2.
const DefaultBaseURL = "https://api.twitter.com"

// maxErrorBody — сколько байт тела ответа попадает в текст ошибки.
const maxErrorBody = 512

// maxResponseBody — предел чтения тела ответа X API.
const maxResponseBody = 64 << 10

// ErrNoToken возвращается, если для владельца нет токена.
var ErrNoToken = errors.New("no access token for owner")

// TokenSource выдаёт bearer-токен владельца.
type TokenSource interface {
	Token(ctx context.Context, ownerID int64) (string, error)
}

// StaticToken — один токен для всех владельцев.
type StaticToken string

// Token возвращает токен или ErrNoToken, если он пуст.
func (t StaticToken) Token(context.Context, int64) (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// Client публикует посты и опросы через POST /2/tweets.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// Config — конфигурация Client.
type Config struct {
	// BaseURL (default: DefaultBaseURL)
	BaseURL string

	Tokens TokenSource

	// HTTPClient (опционально; default: таймаут 30s)
	HTTPClient *http.Client

	Logger *slog.Logger
}

// NewClient создаёт новый Client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     cfg.Tokens,
		httpClient: httpClient,
		logger:     logger,
	}
}

// --- Wire types ---

type tweetRequest struct {
	Text string `json:"text"`
	Poll *poll  `json:"poll,omitempty"`
}

type poll struct {
	Options         []string `json:"options"`
	DurationMinutes int      `json:"duration_minutes"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// PublishPost публикует обычный пост и возвращает ID твита.
func (c *Client) PublishPost(ctx context.Context, content string, ownerID int64) (string, error) {
	return c.createTweet(ctx, ownerID, tweetRequest{Text: content})
}

// PublishPoll публикует опрос и возвращает ID твита.
func (c *Client) PublishPoll(ctx context.Context, question string, options []string, durationMinutes int, ownerID int64) (string, error) {
	return c.createTweet(ctx, ownerID, tweetRequest{
		Text: question,
		Poll: &poll{Options: options, DurationMinutes: durationMinutes},
	})
}

func (c *Client) createTweet(ctx context.Context, ownerID int64, body tweetRequest) (string, error) {
	if c.tokens == nil {
		return "", ErrNoToken
	}
	token, err := c.tokens.Token(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("twitter api error (HTTP %d): %s", resp.StatusCode, truncate(respBody, maxErrorBody))
	}

	var tweet tweetResponse
	if err := json.Unmarshal(respBody, &tweet); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if tweet.Data.ID == "" {
		return "", fmt.Errorf("twitter api returned no tweet id")
	}

	c.logger.Debug("tweet created", "owner_id", ownerID, "tweet_id", tweet.Data.ID, "poll", body.Poll != nil)
	return tweet.Data.ID, nil
}

func readBody(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxResponseBody))
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
