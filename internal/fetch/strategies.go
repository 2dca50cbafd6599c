package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
)

// SessionStrategy fetches with a cookie-carrying resty client and a full
// browser header set. The first request to a host is preceded by one warm-up
// GET against the site origin so cookies and any server-side session exist
// before the real page is asked for.
type SessionStrategy struct {
	client *resty.Client
	ua     string

	mu     sync.Mutex
	warmed map[string]struct{}
}

// NewSessionStrategy creates the session strategy
func NewSessionStrategy(timeout time.Duration) *SessionStrategy {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err == nil {
		client.SetCookieJar(jar)
	}
	client.SetTimeout(timeout)

	ua := randomUserAgent()
	client.SetHeader("User-Agent", ua)
	for k, v := range browserHeaders() {
		client.SetHeader(k, v)
	}

	return &SessionStrategy{
		client: client,
		ua:     ua,
		warmed: make(map[string]struct{}),
	}
}

func (s *SessionStrategy) Name() string { return "session" }

// Fetch performs the warm-up on first contact with a host, then requests the
// page with a same-origin Referer.
func (s *SessionStrategy) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	origin := u.Scheme + "://" + u.Host

	s.warmUp(ctx, origin)

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Referer", origin).
		Get(rawURL)
	if err != nil {
		return nil, err
	}

	return &Response{Body: resp.Body(), StatusCode: resp.StatusCode()}, nil
}

func (s *SessionStrategy) warmUp(ctx context.Context, origin string) {
	s.mu.Lock()
	_, done := s.warmed[origin]
	if !done {
		s.warmed[origin] = struct{}{}
	}
	s.mu.Unlock()
	if done {
		return
	}

	// Warm-up failures are ignored; the real request decides.
	s.client.R().SetContext(ctx).Get(origin)
}

// BypassStrategy fetches through a transport that solves basic Cloudflare
// style JS challenges.
type BypassStrategy struct {
	client *resty.Client
}

// NewBypassStrategy creates the bypass strategy
func NewBypassStrategy(timeout time.Duration) *BypassStrategy {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err == nil {
		client.SetCookieJar(jar)
	}
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", randomUserAgent())

	return &BypassStrategy{client: client}
}

func (s *BypassStrategy) Name() string { return "bypass" }

func (s *BypassStrategy) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	resp, err := s.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, err
	}
	return &Response{Body: resp.Body(), StatusCode: resp.StatusCode()}, nil
}

// PlainStrategy is the last resort: a bare HTTP GET with minimal headers.
// Some sites reject anything that looks too much like a browser automation
// stack but serve plain clients fine.
type PlainStrategy struct {
	client *http.Client
}

// NewPlainStrategy creates the plain strategy
func NewPlainStrategy(timeout time.Duration) *PlainStrategy {
	return &PlainStrategy{
		client: &http.Client{Timeout: timeout},
	}
}

func (s *PlainStrategy) Name() string { return "plain" }

func (s *PlainStrategy) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", randomUserAgent())
	req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		Body:       toUTF8(body, resp.Header.Get("Content-Type")),
		StatusCode: resp.StatusCode,
	}, nil
}

// toUTF8 converts a body to UTF-8 based on the declared and sniffed charset.
func toUTF8(body []byte, contentType string) []byte {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" {
		return body
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return decoded
}
