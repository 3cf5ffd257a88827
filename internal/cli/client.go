package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// OwnerResponse — владелец из API.
type OwnerResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

// PollResponse — параметры опроса.
type PollResponse struct {
	Options         []string `json:"options,omitempty"`
	PreviewOptions  []string `json:"preview_options,omitempty"`
	DurationMinutes int      `json:"duration_minutes"`
}

// PostResponse — запись из API.
type PostResponse struct {
	ID           int64         `json:"id"`
	OwnerID      int64         `json:"owner_id"`
	Content      string        `json:"content"`
	Kind         string        `json:"kind"`
	Status       string        `json:"status"`
	ScheduledAt  string        `json:"scheduled_at"`
	CreatedAt    string        `json:"created_at"`
	PostedAt     string        `json:"posted_at,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	IsImmediate  bool          `json:"is_immediate"`
	Poll         *PollResponse `json:"poll,omitempty"`
}

// PreviewResponse — результат предпросмотра.
type PreviewResponse struct {
	Content  string   `json:"content"`
	Enhanced bool     `json:"enhanced"`
	Options  []string `json:"options,omitempty"`
}

// StatsResponse — счётчики по статусам.
type StatsResponse struct {
	Pending   int `json:"pending"`
	Posted    int `json:"posted"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

// --- Request types ---

// SchedulePostRequest — создание отложенной записи.
type SchedulePostRequest struct {
	Content         string    `json:"content"`
	Kind            string    `json:"kind,omitempty"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	Options         []string  `json:"options,omitempty"`
	PreviewOptions  []string  `json:"preview_options,omitempty"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Enhance         bool      `json:"enhance,omitempty"`
}

// PostNowRequest — немедленная публикация.
type PostNowRequest struct {
	Content         string   `json:"content"`
	Kind            string   `json:"kind,omitempty"`
	Options         []string `json:"options,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	Enhance         bool     `json:"enhance,omitempty"`
}

// PreviewRequest — предпросмотр улучшения.
type PreviewRequest struct {
	Content string `json:"content"`
	Kind    string `json:"kind,omitempty"`
}

// UpdatePostRequest — редактирование записи.
type UpdatePostRequest struct {
	Content         string    `json:"content"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	Options         []string  `json:"options,omitempty"`
	PreviewOptions  []string  `json:"preview_options,omitempty"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	ResetToPending  bool      `json:"reset_to_pending,omitempty"`
}

// ListPostsOpts — параметры выборки записей.
type ListPostsOpts struct {
	View   string
	Limit  int
	Offset int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError — ошибка, которую вернул сервер.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для SmartTweet API.
type Client struct {
	baseURL    string
	ownerID    int64
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
// ownerID передаётся в X-Owner-ID; 0 — заголовок не ставится.
func NewClient(baseURL string, ownerID int64) *Client {
	return &Client{
		baseURL: baseURL,
		ownerID: ownerID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Owners ---

// CreateOwner регистрирует владельца.
func (c *Client) CreateOwner(username string) (*OwnerResponse, error) {
	body := map[string]string{"username": username}
	var owner OwnerResponse
	err := c.post("/api/v1/owners", body, &owner)
	return &owner, err
}

// --- Posts ---

// ListPosts возвращает записи владельца.
func (c *Client) ListPosts(opts ListPostsOpts) ([]PostResponse, error) {
	params := url.Values{}
	if opts.View != "" {
		params.Set("view", opts.View)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var list []PostResponse
	err := c.list("/api/v1/posts", params, &list)
	return list, err
}

// SchedulePost создаёт отложенную запись.
func (c *Client) SchedulePost(req SchedulePostRequest) (*PostResponse, error) {
	var post PostResponse
	err := c.post("/api/v1/posts", req, &post)
	return &post, err
}

// PostNow публикует запись немедленно.
func (c *Client) PostNow(req PostNowRequest) (*PostResponse, error) {
	var post PostResponse
	err := c.post("/api/v1/posts/now", req, &post)
	return &post, err
}

// Preview возвращает улучшенный текст без сохранения.
func (c *Client) Preview(req PreviewRequest) (*PreviewResponse, error) {
	var preview PreviewResponse
	err := c.post("/api/v1/posts/preview", req, &preview)
	return &preview, err
}

// GetPost возвращает запись по ID.
func (c *Client) GetPost(id int64) (*PostResponse, error) {
	var post PostResponse
	err := c.get(postPath(id), &post)
	return &post, err
}

// UpdatePost редактирует запись.
func (c *Client) UpdatePost(id int64, req UpdatePostRequest) (*PostResponse, error) {
	var post PostResponse
	err := c.put(postPath(id), req, &post)
	return &post, err
}

// CancelPost отменяет запись. Возвращает false, если она уже была отменена.
func (c *Client) CancelPost(id int64) (bool, error) {
	var resp struct {
		Changed bool `json:"changed"`
	}
	err := c.post(postPath(id)+"/cancel", nil, &resp)
	return resp.Changed, err
}

// DeletePost удаляет запись навсегда.
func (c *Client) DeletePost(id int64) error {
	return c.delete(postPath(id))
}

// Stats возвращает количество записей по статусам.
func (c *Client) Stats() (*StatsResponse, error) {
	var stats StatsResponse
	err := c.get("/api/v1/posts/stats", &stats)
	return &stats, err
}

func postPath(id int64) string {
	return "/api/v1/posts/" + strconv.FormatInt(id, 10)
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.ownerID > 0 {
		req.Header.Set("X-Owner-ID", strconv.FormatInt(c.ownerID, 10))
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
		apiErr.Code = er.Error.Code
		apiErr.Message = er.Error.Message
	}

	return apiErr
}
