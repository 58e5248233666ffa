package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// WorkflowClient triggers the fallback workflow engine. The engine sends
// the reply to the customer itself; this client only reports whether the
// dispatch was accepted.
type WorkflowClient struct {
	webhookURL string
	authToken  string
	httpClient *http.Client
}

func NewWorkflowClient(webhookURL, authToken string, httpClient *http.Client) *WorkflowClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WorkflowClient{
		webhookURL: webhookURL,
		authToken:  authToken,
		httpClient: httpClient,
	}
}

// Trigger posts the message payload to the workflow webhook. Any 2xx
// response counts as success; the response content is not consumed.
func (c *WorkflowClient) Trigger(ctx context.Context, req Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.authToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("workflow error: status %d", resp.StatusCode)
	}
	return nil
}
