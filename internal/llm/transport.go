package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultAllowedHosts are the vendor API hosts a client may call. A leading
// "*." matches any subdomain.
var DefaultAllowedHosts = []string{
	"api.openai.com",
	"api.anthropic.com",
	"generativelanguage.googleapis.com",
	"*.openai.azure.com",
}

const (
	maxErrorSnippet  = 200
	maxResponseBytes = 4 << 20
	maxRedirects     = 10
)

// HostAllowed reports whether host matches one of the allowed patterns.
func HostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(host)
	for _, pattern := range allowed {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
			if strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == pattern {
			return true
		}
	}
	return false
}

// checkURL enforces HTTPS and the host allow-list.
func checkURL(p Provider, raw string, allowed []string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &ProviderError{Provider: p, Kind: KindDisallowedHost, Message: "invalid endpoint URL", Err: err}
	}
	if u.Scheme != "https" {
		return newError(p, KindDisallowedHost, fmt.Sprintf("endpoint must use https, got %q", u.Scheme))
	}
	if !HostAllowed(u.Hostname(), allowed) {
		return newError(p, KindDisallowedHost, fmt.Sprintf("host %q is not allowed", u.Hostname()))
	}
	return nil
}

// guardRedirects returns a copy of c whose redirects are held to the same
// HTTPS and allow-list rules as the first request. Custom auth headers are
// replayed on redirect, so an unchecked hop would carry the key elsewhere.
func guardRedirects(p Provider, c *http.Client, allowed []string) *http.Client {
	guarded := *c
	next := c.CheckRedirect
	guarded.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if err := checkURL(p, req.URL.String(), allowed); err != nil {
			return err
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return &guarded
}

// httpTransport is the JSON-over-HTTPS plumbing shared by the REST clients.
type httpTransport struct {
	provider Provider
	baseURL  string
	client   *http.Client
	allowed  []string
}

func newTransport(p Provider, ep Endpoint, defaultBase string) httpTransport {
	t := httpTransport{
		provider: p,
		baseURL:  strings.TrimRight(ep.BaseURL, "/"),
		client:   ep.HTTPClient,
		allowed:  ep.AllowedHosts,
	}
	if t.baseURL == "" {
		t.baseURL = defaultBase
	}
	if t.client == nil {
		t.client = &http.Client{}
	}
	if len(t.allowed) == 0 {
		t.allowed = DefaultAllowedHosts
	}
	t.client = guardRedirects(p, t.client, t.allowed)
	return t
}

// postJSON sends in to baseURL+path and decodes a 2xx response into out.
// The API key is only ever placed in headers and is scrubbed from error text.
func (t httpTransport) postJSON(ctx context.Context, path string, headers map[string]string, apiKey string, in, out any) error {
	endpoint := t.baseURL + path
	if err := checkURL(t.provider, endpoint, t.allowed); err != nil {
		return err
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return &ProviderError{Provider: t.provider, Kind: KindMalformed, Message: "marshaling request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &ProviderError{Provider: t.provider, Kind: KindNetwork, Message: "creating request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return t.transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return t.transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{
			Provider:   t.provider,
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    snippet(string(body), apiKey),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{Provider: t.provider, Kind: KindMalformed, StatusCode: resp.StatusCode, Message: "decoding response", Err: err}
	}
	return nil
}

func (t httpTransport) transportError(ctx context.Context, err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &ProviderError{Provider: t.provider, Kind: kind, Err: unwrapURLError(err)}
}

// unwrapURLError drops the *url.Error wrapper, whose text repeats the request URL.
func unwrapURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}

// snippet bounds an error body and strips the API key from it.
func snippet(body, apiKey string) string {
	if apiKey != "" {
		body = strings.ReplaceAll(body, apiKey, "[REDACTED]")
	}
	body = strings.Join(strings.Fields(body), " ")
	if len(body) > maxErrorSnippet {
		body = cutRunes(body, maxErrorSnippet) + "..."
	}
	return body
}

// cutRunes shortens s to at most n bytes without splitting a UTF-8 rune.
func cutRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
