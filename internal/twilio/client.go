package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	messagesEndpoint  = "https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json"
	sendTimeout       = 10 * time.Second
	sendRetryAttempts = 3
)

// Sender is the outbound-message interface the dashboard and campaign
// code depend on.
type Sender interface {
	SendWhatsApp(ctx context.Context, to, body string) (sid string, err error)
}

// Client posts freeform WhatsApp messages through the Twilio REST API.
type Client struct {
	accountSID string
	authToken  string
	from       string
	httpClient *http.Client
}

func NewClient(accountSID, authToken, from string) *Client {
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		httpClient: &http.Client{Timeout: sendTimeout},
	}
}

var _ Sender = (*Client)(nil)

// SendWhatsApp dispatches a single message, retrying transient failures.
// Returns the provider-assigned message SID on success.
func (c *Client) SendWhatsApp(ctx context.Context, to, body string) (string, error) {
	if c.accountSID == "" || c.authToken == "" {
		return "", fmt.Errorf("twilio: credentials missing")
	}
	if to == "" {
		return "", fmt.Errorf("twilio: to required")
	}
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("twilio: body required")
	}

	payload := url.Values{}
	payload.Set("To", ensureWhatsAppPrefix(to))
	payload.Set("From", ensureWhatsAppPrefix(c.from))
	payload.Set("Body", body)

	endpoint := fmt.Sprintf(messagesEndpoint, c.accountSID)

	var lastErr error
	for attempt := 1; attempt <= sendRetryAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(c.accountSID, c.authToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var parsed struct {
				SID string `json:"sid"`
			}
			if err := json.Unmarshal(respBody, &parsed); err != nil {
				log.Warn().Err(err).Msg("twilio send: response body not parseable")
			}
			return parsed.SID, nil
		}

		lastErr = fmt.Errorf("twilio: send failed with status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
		// 4xx responses are not retryable; the request itself is wrong.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return "", lastErr
		}
	}
	return "", lastErr
}

func ensureWhatsAppPrefix(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
