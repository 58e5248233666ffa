package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("AC123", "token", "+2250102030405")
	client.httpClient = server.Client()
	// Rewrite the Twilio endpoint to the test server.
	client.httpClient.Transport = rewriteTransport{base: server.URL, inner: server.Client().Transport}
	return client
}

type rewriteTransport struct {
	base  string
	inner http.RoundTripper
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rewritten, err := http.NewRequestWithContext(req.Context(), req.Method, t.base+req.URL.Path, req.Body)
	if err != nil {
		return nil, err
	}
	rewritten.Header = req.Header
	return t.inner.RoundTrip(rewritten)
}

func TestClientSendWhatsApp(t *testing.T) {
	t.Run("sends form payload with whatsapp prefixes", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "whatsapp:+2250700000001", r.PostForm.Get("To"))
			assert.Equal(t, "whatsapp:+2250102030405", r.PostForm.Get("From"))
			assert.Equal(t, "Bonjour", r.PostForm.Get("Body"))

			user, _, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "AC123", user)

			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"sid":"SM900"}`))
		})

		sid, err := client.SendWhatsApp(context.Background(), "+2250700000001", "Bonjour")
		require.NoError(t, err)
		assert.Equal(t, "SM900", sid)
	})

	t.Run("does not retry 4xx responses", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"invalid number"}`))
		})

		_, err := client.SendWhatsApp(context.Background(), "+000", "Hi")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 400")
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("retries 5xx responses", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{"sid":"SM901"}`))
		})

		sid, err := client.SendWhatsApp(context.Background(), "+2250700000001", "Hi")
		require.NoError(t, err)
		assert.Equal(t, "SM901", sid)
		assert.EqualValues(t, 3, calls.Load())
	})

	t.Run("validates inputs before any network call", func(t *testing.T) {
		client := NewClient("", "", "")
		_, err := client.SendWhatsApp(context.Background(), "+2250700000001", "Hi")
		assert.Error(t, err)

		client = NewClient("AC123", "token", "+2250102030405")
		_, err = client.SendWhatsApp(context.Background(), "", "Hi")
		assert.Error(t, err)

		_, err = client.SendWhatsApp(context.Background(), "+2250700000001", "  ")
		assert.Error(t, err)
	})
}
