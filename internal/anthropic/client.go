package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	messagesPath   = "/v1/messages"
	apiVersion     = "2023-06-01"
	defaultTimeout = 60 * time.Second
)

var (
	// ErrNoText means the reply carried no text blocks.
	ErrNoText = errors.New("reply has no text content")

	// ErrTruncated means the reply hit the token limit. Classification and
	// summary replies cut short are not usable.
	ErrTruncated = errors.New("reply truncated at max_tokens")
)

// APIError is a non-200 reply from the Messages API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("messages api %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("messages api %d: %s: %s", e.StatusCode, e.Type, e.Message)
}

// Client calls the Messages API for call classification and summaries.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// Option adjusts a Client.
type Option func(*Client)

// WithBaseURL sends requests to url instead of the public endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func NewClient(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type messagesReply struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type errorReply struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one exchange and returns the text of the reply, with all
// text blocks joined in order.
func (c *Client) Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
	payload, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("encode messages request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build messages request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("messages request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read messages reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp.StatusCode, raw)
	}
	return replyText(raw)
}

func decodeError(status int, raw []byte) error {
	apiErr := &APIError{StatusCode: status, Message: strings.TrimSpace(string(raw))}
	var er errorReply
	if json.Unmarshal(raw, &er) == nil && er.Error.Type != "" {
		apiErr.Type = er.Error.Type
		apiErr.Message = er.Error.Message
	}
	return apiErr
}

func replyText(raw []byte) (string, error) {
	var reply messagesReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", fmt.Errorf("decode messages reply: %w", err)
	}
	if reply.StopReason == "max_tokens" {
		return "", ErrTruncated
	}

	var b strings.Builder
	for _, block := range reply.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrNoText
	}
	return b.String(), nil
}
