package anthropic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basharArif/prompt-architect-demo/ai/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{APIKey: "test-key"})
	client.SetHTTPClient(server.Client())
	client.SetBaseURL(server.URL)
	return client
}

func TestInvokeReturnsText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, APIVersion, r.Header.Get("anthropic-version"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "  hello world  "}],
			"usage": {"input_tokens": 10, "output_tokens": 3}
		}`))
	})

	resp, err := client.Invoke(context.Background(), "claude-3-5-haiku-latest", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.Text)
	assert.Equal(t, 10, resp.InputTokens)
	assert.Equal(t, 3, resp.OutputTokens)
}

func TestInvokePreservesUpstreamStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": {"type": "overloaded_error"}}`))
	})

	_, err := client.Invoke(context.Background(), "claude-3-5-haiku-latest", "hi", nil)
	require.Error(t, err)

	var apiErr *provider.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 503, apiErr.Status)
	assert.Contains(t, apiErr.Message, "overloaded_error")
}

func TestInvokeRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Invoke(context.Background(), "claude-3-5-haiku-latest", "hi", nil)
	assert.Error(t, err)
}
