package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Request is the payload shape shared by the AI backend and the workflow
// engine.
type Request struct {
	Body           string `json:"Body"`
	From           string `json:"From"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

// BackendClient calls the primary AI backend's response endpoint.
type BackendClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewBackendClient(baseURL, apiKey string, httpClient *http.Client) *BackendClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BackendClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Respond posts the message payload and returns the generated reply text.
// Success is any 2xx response carrying a response field.
func (c *BackendClient) Respond(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai-response", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("backend error: status %d", resp.StatusCode)
	}

	var parsed struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("backend error: invalid response body: %w", err)
	}
	if parsed.Response == "" {
		return "Message processed", nil
	}
	return parsed.Response, nil
}
