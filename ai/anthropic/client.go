// Package anthropic implements the provider.Invoker contract against the
// Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/basharArif/prompt-architect-demo/ai/provider"
	"github.com/basharArif/prompt-architect-demo/errors"
	"github.com/basharArif/prompt-architect-demo/internal/httpclient"
)

const (
	// BaseURL is the Anthropic API endpoint
	BaseURL = "https://api.anthropic.com/v1"

	// APIVersion is the required Anthropic API version header
	APIVersion = "2023-06-01"

	// DefaultThinkingBudget is the extended reasoning budget applied when a
	// call enables extended thinking without an explicit budget.
	DefaultThinkingBudget = 8192
)

// Client represents an Anthropic API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
	logger     *zap.SugaredLogger
}

// Config holds Anthropic client configuration
type Config struct {
	APIKey      string
	Temperature float64
	MaxTokens   int
	Logger      *zap.SugaredLogger // nil = nop logger
}

// NewClient creates a new Anthropic API client.
//
// Retries are deliberately not handled here: callers wrap each invocation
// with the retry package so backoff behavior stays in one place.
func NewClient(config Config) *Client {
	if config.Temperature == 0 {
		config.Temperature = 0.2 // Deterministic default
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}

	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	blockPrivateIP := true
	saferClient := httpclient.NewWithOptions(120*time.Second, httpclient.Options{
		BlockPrivateIP: &blockPrivateIP,
	})

	return &Client{
		apiKey:     config.APIKey,
		baseURL:    BaseURL,
		httpClient: saferClient.Client,
		config:     config,
		logger:     log,
	}
}

// MessagesRequest represents a request to the Anthropic Messages API
type MessagesRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Messages    []Message       `json:"messages"`
	System      string          `json:"system,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Thinking    *ThinkingConfig `json:"thinking,omitempty"`
}

// ThinkingConfig enables extended reasoning on supported models
type ThinkingConfig struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

// Message represents a message in the conversation
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// MessagesResponse represents the response from the Messages API
type MessagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// ContentBlock represents a content block in the response
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Usage represents token usage information
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Invoke implements provider.Invoker against the Messages API.
func (c *Client) Invoke(ctx context.Context, model, prompt string, cfg *provider.GenConfig) (*provider.Response, error) {
	if c.apiKey == "" {
		return nil, errors.New("Anthropic API key not configured")
	}

	temperature := c.config.Temperature
	maxTokens := c.config.MaxTokens
	var thinking *ThinkingConfig

	if cfg != nil {
		if cfg.Temperature != 0 {
			temperature = cfg.Temperature
		}
		if cfg.MaxTokens != 0 {
			maxTokens = cfg.MaxTokens
		}
		if cfg.ExtendedThinking {
			budget := cfg.ThinkingBudgetTokens
			if budget == 0 {
				budget = DefaultThinkingBudget
			}
			thinking = &ThinkingConfig{Type: "enabled", BudgetTokens: budget}
		}
	}

	req := MessagesRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Thinking:    thinking,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
	}

	c.logger.Debugw("Anthropic request",
		"model", model,
		"max_tokens", maxTokens,
		"extended_thinking", thinking != nil,
	)

	resp, err := c.createMessages(ctx, req)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &provider.Response{
		Text:         strings.TrimSpace(content.String()),
		Model:        resp.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// createMessages sends a request to the Anthropic Messages API.
// Non-200 responses become *provider.APIError with the upstream status and
// body preserved so the retry layer can classify them.
func (c *Client) createMessages(ctx context.Context, req MessagesRequest) (*MessagesResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", APIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &provider.APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &provider.APIError{
			Status:  resp.StatusCode,
			Message: string(respBody),
		}
	}

	var messagesResp MessagesResponse
	if err := json.Unmarshal(respBody, &messagesResp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}

	return &messagesResp, nil
}

// IsConfigured returns true if the client has a valid API key
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// SetHTTPClient allows overriding the HTTP client for testing
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetBaseURL allows overriding the API endpoint for testing
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

var _ provider.Invoker = (*Client)(nil)
