package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// SignatureHeader carries the HMAC computed by Twilio over the request.
const SignatureHeader = "X-Twilio-Signature"

// Validator verifies webhook request signatures using the shared account
// auth token.
type Validator struct {
	authToken string
}

func NewValidator(authToken string) *Validator {
	return &Validator{authToken: authToken}
}

// Validate checks one candidate URL: HMAC-SHA1 over the full external URL
// followed by the form parameters sorted by key and concatenated as
// key+value, base64 encoded, compared in constant time.
func (v *Validator) Validate(signature, requestURL string, params url.Values) bool {
	expected := v.Compute(requestURL, params)
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
}

// ValidateAny tries each candidate URL in order and accepts on the first
// match. Reverse proxies can present several plausible reconstructions of
// the signed URL; the signature still has to match one of them exactly.
func (v *Validator) ValidateAny(signature string, candidates []string, params url.Values) bool {
	for _, candidate := range candidates {
		if v.Validate(signature, candidate, params) {
			return true
		}
	}
	return false
}

// Compute returns the base64 HMAC-SHA1 signature Twilio would produce for
// the given URL and form parameters.
func (v *Validator) Compute(requestURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(requestURL)
	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}

	h := hmac.New(sha1.New, []byte(v.authToken))
	h.Write([]byte(payload.String()))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// URLCandidates builds the ordered list of plausible external URLs for a
// request. The configured public base URL comes first so deployments with
// trusted proxy configuration get a deterministic match; the forwarding
// headers and the raw request URL are fallbacks. Each base is tried with
// and without a trailing slash since edges disagree on canonical paths.
func URLCandidates(r *http.Request, publicBaseURL string) []string {
	pathAndQuery := r.URL.Path
	if r.URL.RawQuery != "" {
		pathAndQuery += "?" + r.URL.RawQuery
	}

	var bases []string
	if publicBaseURL != "" {
		bases = append(bases, strings.TrimSuffix(publicBaseURL, "/"))
	}

	proto := r.Header.Get("X-Forwarded-Proto")
	host := r.Header.Get("X-Forwarded-Host")
	if proto != "" && host != "" {
		bases = append(bases, proto+"://"+host)
	}

	scheme := "https"
	if r.TLS == nil && proto == "" {
		scheme = "http"
	}
	if r.Host != "" {
		bases = append(bases, scheme+"://"+r.Host)
	}

	seen := make(map[string]bool)
	var candidates []string
	add := func(u string) {
		if !seen[u] {
			seen[u] = true
			candidates = append(candidates, u)
		}
	}
	for _, base := range bases {
		full := base + pathAndQuery
		add(full)
		if strings.HasSuffix(full, "/") {
			add(strings.TrimSuffix(full, "/"))
		} else {
			add(full + "/")
		}
	}
	return candidates
}
