package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/bobotcho/concierge-server-go/internal/errors"
)

func testRequest() Request {
	return Request{
		Body:           "Hello",
		From:           "+2250700000001",
		ConversationID: "conv-1",
		MessageID:      "msg-1",
	}
}

func TestDispatchBackend(t *testing.T) {
	t.Run("returns the backend response text", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/ai-response", r.URL.Path)
			assert.Equal(t, "api-key", r.Header.Get("X-API-Key"))

			var req Request
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Hello", req.Body)
			assert.Equal(t, "conv-1", req.ConversationID)

			json.NewEncoder(w).Encode(map[string]string{"response": "Bonjour, comment puis-je aider?"})
		}))
		defer server.Close()

		d := NewDispatcher(NewBackendClient(server.URL, "api-key", nil), nil, time.Second)
		result := d.Dispatch(context.Background(), testRequest())

		require.NoError(t, result.Err)
		assert.Equal(t, "Bonjour, comment puis-je aider?", result.Output)
		assert.Equal(t, ProviderBackend, result.Provider)
		assert.False(t, result.Timeout)
		assert.Greater(t, result.Latency, time.Duration(0))
	})

	t.Run("defaults output when response field is empty", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		d := NewDispatcher(NewBackendClient(server.URL, "k", nil), nil, time.Second)
		result := d.Dispatch(context.Background(), testRequest())
		require.NoError(t, result.Err)
		assert.Equal(t, "Message processed", result.Output)
	})

	t.Run("classifies non-2xx as upstream error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		d := NewDispatcher(NewBackendClient(server.URL, "k", nil), nil, time.Second)
		result := d.Dispatch(context.Background(), testRequest())
		require.Error(t, result.Err)
		assert.False(t, result.Timeout)
		assert.Contains(t, result.Err.Error(), "status 503")
	})

	t.Run("classifies deadline expiry as timeout", func(t *testing.T) {
		blocked := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-blocked
		}))
		defer server.Close()
		defer close(blocked)

		d := NewDispatcher(NewBackendClient(server.URL, "k", nil), nil, 50*time.Millisecond)

		start := time.Now()
		result := d.Dispatch(context.Background(), testRequest())
		elapsed := time.Since(start)

		require.Error(t, result.Err)
		assert.True(t, result.Timeout)
		assert.Equal(t, apperrors.ErrCodeUpstreamTimeout, apperrors.GetCode(result.Err))
		// The dispatcher must give up promptly after its own deadline.
		assert.Less(t, elapsed, 2*time.Second)
	})
}

func TestDispatchWorkflow(t *testing.T) {
	t.Run("records a dispatch note instead of reply text", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer workflow-token", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		d := NewDispatcher(nil, NewWorkflowClient(server.URL, "workflow-token", nil), time.Second)
		result := d.Dispatch(context.Background(), testRequest())

		require.NoError(t, result.Err)
		assert.Equal(t, ProviderWorkflow, result.Provider)
		assert.Equal(t, "Message dispatched via workflow", result.Output)
	})

	t.Run("classifies workflow non-2xx as upstream error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		d := NewDispatcher(nil, NewWorkflowClient(server.URL, "bad", nil), time.Second)
		result := d.Dispatch(context.Background(), testRequest())
		require.Error(t, result.Err)
		assert.False(t, result.Timeout)
	})

	t.Run("backend takes precedence over workflow", func(t *testing.T) {
		backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response":"from backend"}`))
		}))
		defer backendSrv.Close()
		workflowSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("workflow should not be called when a backend is configured")
		}))
		defer workflowSrv.Close()

		d := NewDispatcher(
			NewBackendClient(backendSrv.URL, "k", nil),
			NewWorkflowClient(workflowSrv.URL, "t", nil),
			time.Second,
		)
		result := d.Dispatch(context.Background(), testRequest())
		require.NoError(t, result.Err)
		assert.Equal(t, ProviderBackend, result.Provider)
	})
}

func TestDispatchUnconfigured(t *testing.T) {
	d := NewDispatcher(nil, nil, time.Second)
	result := d.Dispatch(context.Background(), testRequest())
	require.Error(t, result.Err)
	assert.Equal(t, apperrors.ErrCodeConfiguration, apperrors.GetCode(result.Err))
}
