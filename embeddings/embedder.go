// Package embeddings provides the embedding capability used by semantic
// search: a client for an Ollama-compatible local endpoint plus the
// FLOAT32_BLOB storage format.
//
// Embedding generation is best-effort. Callers fall back to keyword-only
// ranking when it is unavailable.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/basharArif/prompt-architect-demo/errors"
	"github.com/basharArif/prompt-architect-demo/internal/httpclient"
)

// Embedder generates a fixed-dimension embedding vector for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Client talks to an Ollama-compatible /api/embeddings endpoint.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.SugaredLogger
}

// ClientConfig configures the embedding client.
type ClientConfig struct {
	BaseURL           string
	Model             string
	TimeoutSeconds    int
	RequestsPerMinute int
	Logger            *zap.SugaredLogger
}

// NewClient creates an embedding client. Requests are throttled to
// RequestsPerMinute so bulk re-embedding stays polite to the local server.
func NewClient(cfg ClientConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	// Local inference endpoints resolve to private addresses
	allowPrivate := false
	saferClient := httpclient.NewWithOptions(timeout, httpclient.Options{
		BlockPrivateIP: &allowPrivate,
	})

	return &Client{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: saferClient.Client,
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		logger:     log,
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed generates an embedding for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("text cannot be empty")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "embedding rate limit wait")
	}

	reqBody, err := json.Marshal(embeddingRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal embedding request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/embeddings", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embedding request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "embedding request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read embedding response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("embedding request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal embedding response")
	}

	if len(embResp.Embedding) == 0 {
		return nil, errors.New("embedding response was empty")
	}

	embedding := make([]float32, len(embResp.Embedding))
	for i, v := range embResp.Embedding {
		embedding[i] = float32(v)
	}

	c.logger.Debugw("Generated embedding",
		"model", c.model,
		"dimensions", len(embedding),
	)

	return embedding, nil
}

// SetHTTPClient allows overriding the HTTP client for testing
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

var _ Embedder = (*Client)(nil)
