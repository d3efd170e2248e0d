package httputil

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/dnscache"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/scala-steward/coursier/pkg/errors"
)

// Request describes one transfer. A zero IfModifiedSince and empty ETag
// make the request unconditional.
type Request struct {
	URL             string
	Head            bool
	IfModifiedSince time.Time
	ETag            string
}

// Response is the outcome of a transfer. Body is non-nil only for a 200
// response; the caller must close it.
type Response struct {
	StatusCode    int
	Body          io.ReadCloser
	ContentLength int64 // -1 if unknown
	ETag          string
	LastModified  string
	NotModified   bool // 304 against the conditional headers
	FinalURL      string
}

// Downloader performs GET and HEAD requests with manual redirect
// handling, credential matching, and a per-host circuit breaker. It is
// safe for concurrent use.
type Downloader struct {
	client       *http.Client
	creds        *CredentialStore
	maxRedirects int
	userAgent    string

	mu       sync.Mutex
	breakers map[string]*circuit.Breaker
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithCredentials sets the credential store.
func WithCredentials(s *CredentialStore) Option {
	return func(d *Downloader) { d.creds = s }
}

// WithMaxRedirections bounds how many 3xx responses are followed.
func WithMaxRedirections(n int) Option {
	return func(d *Downloader) { d.maxRedirects = n }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) { d.userAgent = ua }
}

// WithHTTPClient sets a custom HTTP client. The client must not follow
// redirects itself; NewDownloader's default is configured that way.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

// WithTimeouts sets the connect and read timeouts on the default
// transport.
func WithTimeouts(connect, read time.Duration) Option {
	return func(d *Downloader) { d.client = newHTTPClient(connect, read) }
}

// NewDownloader creates a Downloader with the documented defaults:
// 10 s connect timeout, 60 s read timeout, 20 redirects.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		client:       newHTTPClient(10*time.Second, 60*time.Second),
		maxRedirects: 20,
		userAgent:    "coursier/2.1",
		breakers:     make(map[string]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// newHTTPClient builds a client over a DNS-cached transport that does not
// follow redirects, leaving redirect and credential policy to Do.
func newHTTPClient(connect, read time.Duration) *http.Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   connect,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
				}
				return nil, fmt.Errorf("failed to dial any resolved IP for %s", host)
			},
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: read,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

func (d *Downloader) breaker(host string) *circuit.Breaker {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.breakers[host]; ok {
		return b
	}
	b := circuit.NewConsecutiveBreaker(5)
	d.breakers[host] = b
	return b
}

// Do performs the request, following redirects and answering credential
// challenges. Transient failures come back wrapped in [RetryableError]
// so callers can drive [Retry] around the whole transfer, including the
// body copy.
func (d *Downloader) Do(ctx context.Context, req Request) (*Response, error) {
	origin, err := url.Parse(req.URL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid URL %q", req.URL)
	}

	b := d.breaker(origin.Host)
	if !b.Ready() {
		return nil, errors.New(errors.ErrCodeTransport,
			"circuit open for host %s", origin.Host)
	}

	resp, err := d.follow(ctx, req, origin)
	if err != nil && (errors.Is(err, errors.ErrCodeTransport) || isRetryable(err)) {
		b.Fail()
	} else {
		b.Success()
	}
	return resp, err
}

// follow runs the redirect and challenge loop.
func (d *Downloader) follow(ctx context.Context, req Request, origin *url.URL) (*Response, error) {
	cur := origin
	redirects := 0

	// The credential attached to the original host, if any. A non-auto
	// credential is withheld until the server challenges.
	cred, hasCred := d.creds.Find(origin.Host, origin.Scheme, "")
	sendAuth := hasCred && cred.Auto
	challenged := false

	for {
		hreq, err := d.buildRequest(ctx, req, cur)
		if err != nil {
			return nil, err
		}
		if sendAuth && hasCred {
			hreq.SetBasicAuth(cred.Username, cred.Password)
		}

		resp, err := d.client.Do(hreq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(errors.ErrCodeCancelled, ctx.Err(), "fetching %s", req.URL)
			}
			return nil, &RetryableError{Err: errors.Wrap(errors.ErrCodeTransport, err, "fetching %s", cur)}
		}

		switch {
		case resp.StatusCode >= 300 && resp.StatusCode < 400 && resp.Header.Get("Location") != "":
			_ = resp.Body.Close()
			redirects++
			if redirects > d.maxRedirects {
				return nil, errors.New(errors.ErrCodeTransport,
					"too many redirects fetching %s (limit %d)", req.URL, d.maxRedirects)
			}
			next, err := cur.Parse(resp.Header.Get("Location"))
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeTransport, err,
					"invalid redirect from %s", cur)
			}
			if next.Host != cur.Host {
				// Credentials do not cross hosts unless explicitly
				// allowed; a credential for the new host may still
				// match.
				if !hasCred || !cred.PassOnRedirect {
					cred, hasCred = d.creds.Find(next.Host, next.Scheme, "")
					sendAuth = hasCred && cred.Auto
					challenged = false
				}
			}
			cur = next

		case resp.StatusCode == http.StatusUnauthorized:
			realm := challengeRealm(resp.Header.Get("Www-Authenticate"))
			_ = resp.Body.Close()
			if challenged {
				return nil, errors.New(errors.ErrCodeUnauthorized,
					"unauthorized fetching %s (realm %q)", req.URL, realm)
			}
			challenged = true
			c, ok := d.creds.Find(cur.Host, cur.Scheme, realm)
			if !ok {
				return nil, errors.New(errors.ErrCodeUnauthorized,
					"no credential for %s (realm %q)", cur.Host, realm)
			}
			cred, hasCred, sendAuth = c, true, true

		case resp.StatusCode == http.StatusForbidden:
			_ = resp.Body.Close()
			return nil, errors.New(errors.ErrCodeUnauthorized, "forbidden fetching %s", req.URL)

		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
			_ = resp.Body.Close()
			return nil, errors.New(errors.ErrCodeNotFound, "not found: %s", req.URL)

		case resp.StatusCode == http.StatusNotModified:
			_ = resp.Body.Close()
			return &Response{
				StatusCode:  resp.StatusCode,
				NotModified: true,
				ETag:        resp.Header.Get("ETag"),
				FinalURL:    cur.String(),
			}, nil

		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			return nil, &RetryableError{Err: errors.New(errors.ErrCodeTransport,
				"server error %d fetching %s", resp.StatusCode, cur)}

		case resp.StatusCode == http.StatusOK:
			out := &Response{
				StatusCode:    resp.StatusCode,
				ContentLength: resp.ContentLength,
				ETag:          resp.Header.Get("ETag"),
				LastModified:  resp.Header.Get("Last-Modified"),
				FinalURL:      cur.String(),
			}
			if req.Head {
				_ = resp.Body.Close()
			} else {
				out.Body = resp.Body
			}
			return out, nil

		default:
			_ = resp.Body.Close()
			return nil, errors.New(errors.ErrCodeTransport,
				"unexpected status %d fetching %s", resp.StatusCode, cur)
		}
	}
}

func (d *Downloader) buildRequest(ctx context.Context, req Request, cur *url.URL) (*http.Request, error) {
	method := http.MethodGet
	if req.Head {
		method = http.MethodHead
	}
	hreq, err := http.NewRequestWithContext(ctx, method, cur.String(), nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "building request for %s", cur)
	}
	hreq.Header.Set("User-Agent", d.userAgent)
	hreq.Header.Set("Accept", "*/*")
	if !req.IfModifiedSince.IsZero() {
		hreq.Header.Set("If-Modified-Since", req.IfModifiedSince.UTC().Format(http.TimeFormat))
	}
	if req.ETag != "" {
		hreq.Header.Set("If-None-Match", req.ETag)
	}
	return hreq, nil
}

// HostOf returns the host portion of a URL, or "" when unparseable.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
