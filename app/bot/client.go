package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// Message length limits enforced before sending.
const (
	maxMessageLength = 4000
	maxCaptionLength = 1024
)

// Client is a thin wrapper over the Telegram Bot HTTP API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// Option customizes the Telegram client.
type Option func(*Client)

// WithBaseURL overrides the API base (useful for tests).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(token string, opts ...Option) *Client {
	client := &Client{
		token:   token,
		baseURL: defaultAPIBase,
		// Long polling needs headroom over the poll timeout.
		httpClient: &http.Client{Timeout: 65 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// InlineKeyboard is the reply_markup payload for inline buttons.
type InlineKeyboard struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// Message mirrors the subset of the Telegram message object we read.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// CallbackQuery mirrors the subset of callback_query we read.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

// Update is one entry from getUpdates.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func (c *Client) call(ctx context.Context, method string, payload any, result any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapNetworkError(fmt.Errorf("%s request failed: %w", method, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapNetworkError(fmt.Errorf("failed to read %s response: %w", method, err))
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}

	if !parsed.OK {
		apiErr := &APIError{Code: parsed.ErrorCode, Description: parsed.Description}
		if parsed.Parameters != nil {
			apiErr.RetryAfter = parsed.Parameters.RetryAfter
		}
		return apiErr
	}

	if result != nil && len(parsed.Result) > 0 {
		if err := json.Unmarshal(parsed.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

// SendMessage posts an HTML message and returns its message id. Text is
// truncated to the API limit.
func (c *Client) SendMessage(ctx context.Context, chatID any, text string, markup *InlineKeyboard) (int64, error) {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       truncate(text, maxMessageLength),
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}

	var message Message
	if err := c.call(ctx, "sendMessage", payload, &message); err != nil {
		return 0, err
	}
	return message.MessageID, nil
}

// SendPhoto posts a photo by URL with an HTML caption.
func (c *Client) SendPhoto(ctx context.Context, chatID any, photoURL, caption string, markup *InlineKeyboard) (int64, error) {
	payload := map[string]any{
		"chat_id":    chatID,
		"photo":      photoURL,
		"caption":    truncate(caption, maxCaptionLength),
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}

	var message Message
	if err := c.call(ctx, "sendPhoto", payload, &message); err != nil {
		return 0, err
	}
	return message.MessageID, nil
}

// SendVideo posts a video by URL with an HTML caption.
func (c *Client) SendVideo(ctx context.Context, chatID any, videoURL, caption string, markup *InlineKeyboard) (int64, error) {
	payload := map[string]any{
		"chat_id":    chatID,
		"video":      videoURL,
		"caption":    truncate(caption, maxCaptionLength),
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}

	var message Message
	if err := c.call(ctx, "sendVideo", payload, &message); err != nil {
		return 0, err
	}
	return message.MessageID, nil
}

// EditMessageText replaces a previously sent message, dropping its inline
// keyboard unless a new one is given.
func (c *Client) EditMessageText(ctx context.Context, chatID any, messageID int64, text string, markup *InlineKeyboard) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       truncate(text, maxMessageLength),
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// AnswerCallbackQuery acknowledges a button tap, optionally with a toast.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{
		"callback_query_id": callbackID,
	}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// GetUpdates long-polls for updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         timeoutSeconds,
		"allowed_updates": []string{"message", "callback_query"},
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// truncate cuts text at a rune boundary, marking the cut with an ellipsis.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
