package codolio

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/proxy"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// DefaultBaseURL is the public Codolio host.
const DefaultBaseURL = "https://codolio.com"

// RenderMode selects how a profile page is turned into markup.
type RenderMode string

const (
	// RenderBrowser loads the page in headless Chrome and waits for the
	// client-side render.
	RenderBrowser RenderMode = "browser"
	// RenderHTTP fetches the raw markup with a plain HTTP GET. Useful for
	// pre-rendered mirrors and local fixtures.
	RenderHTTP RenderMode = "http"
)

// ParseRenderMode validates a render mode name.
func ParseRenderMode(s string) (RenderMode, error) {
	switch m := RenderMode(strings.ToLower(strings.TrimSpace(s))); m {
	case RenderBrowser, RenderHTTP:
		return m, nil
	case "":
		return RenderBrowser, nil
	default:
		return "", fmt.Errorf("unknown render mode %q", s)
	}
}

// Scraper loads Codolio profile pages and extracts their statistics.
// Every FetchProfile call launches and releases its own browser, so a Scraper
// is safe for concurrent use once configured.
type Scraper struct {
	client    *http.Client
	proxy     string // browser --proxy-server value
	userAgent string
	baseURL   string // defaults to DefaultBaseURL
	mode      RenderMode

	navigationTimeout time.Duration
	landmarkTimeout   time.Duration
	settleDelay       time.Duration
	blockResources    bool
	noSandbox         bool

	logger *zap.Logger

	// launchFunc starts a fresh browser session. Replaceable for testing.
	launchFunc func(ctx context.Context) (driver, error)
	// loadFunc turns a profile URL into rendered markup. Replaceable for testing.
	loadFunc func(ctx context.Context, profileURL string) (string, error)
}

// defaultTransport returns the transport used by the http render mode.
func defaultTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
}

// New creates a Scraper with the browser render mode and the timeouts the
// Codolio page needs in practice.
func New() *Scraper {
	s := &Scraper{
		client: &http.Client{
			Timeout:   45 * time.Second,
			Transport: defaultTransport(),
		},
		userAgent:         defaultUserAgent,
		baseURL:           DefaultBaseURL,
		mode:              RenderBrowser,
		navigationTimeout: 30 * time.Second,
		landmarkTimeout:   25 * time.Second,
		settleDelay:       1500 * time.Millisecond,
		blockResources:    true,
		noSandbox:         true,
		logger:            zap.NewNop(),
	}
	s.launchFunc = s.launchBrowser
	s.loadFunc = s.loadPage
	return s
}

// WithBaseURL points the scraper at another Codolio host.
func (s *Scraper) WithBaseURL(base string) *Scraper {
	s.baseURL = strings.TrimRight(base, "/")
	return s
}

// WithRenderMode selects between the headless browser and plain HTTP.
func (s *Scraper) WithRenderMode(m RenderMode) *Scraper {
	s.mode = m
	return s
}

// WithNavigationTimeout bounds the navigation and network-idle wait.
func (s *Scraper) WithNavigationTimeout(d time.Duration) *Scraper {
	s.navigationTimeout = d
	return s
}

// WithLandmarkTimeout bounds the wait for the landmark text.
func (s *Scraper) WithLandmarkTimeout(d time.Duration) *Scraper {
	s.landmarkTimeout = d
	return s
}

// WithSettleDelay sets the pause after the landmark appears.
func (s *Scraper) WithSettleDelay(d time.Duration) *Scraper {
	s.settleDelay = d
	return s
}

// WithResourceBlocking toggles blocking of images, fonts and media.
func (s *Scraper) WithResourceBlocking(on bool) *Scraper {
	s.blockResources = on
	return s
}

// WithNoSandbox toggles Chrome's --no-sandbox flag.
func (s *Scraper) WithNoSandbox(on bool) *Scraper {
	s.noSandbox = on
	return s
}

// WithLogger sets the logger for load timings. nil means no logging.
func (s *Scraper) WithLogger(l *zap.Logger) *Scraper {
	if l == nil {
		l = zap.NewNop()
	}
	s.logger = l
	return s
}

// SetProxy configures an HTTP/HTTPS or SOCKS5 proxy for both the browser and
// the HTTP client. Credentials are only honored by the HTTP client.
func (s *Scraper) SetProxy(proxyAddr string) error {
	if proxyAddr == "" {
		s.client.Transport = defaultTransport()
		s.proxy = ""
		return nil
	}

	u, err := url.Parse(proxyAddr)
	if err != nil {
		return fmt.Errorf("parse proxy url: %w", err)
	}

	base := defaultTransport()

	switch u.Scheme {
	case "http", "https":
		base.Proxy = http.ProxyURL(u)
		s.client.Transport = base
	case "socks5":
		var auth *proxy.Auth
		if u.User != nil {
			pass, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: pass}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return fmt.Errorf("socks5 proxy: %w", err)
		}
		dc, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return fmt.Errorf("socks5: context dialer not supported")
		}
		base.DialContext = dc.DialContext
		s.client.Transport = base
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", u.Scheme)
	}

	s.proxy = u.Scheme + "://" + u.Host
	return nil
}

// ProfileURL returns the problem-solving page of username.
func (s *Scraper) ProfileURL(username string) string {
	return s.baseURL + "/profile/" + url.PathEscape(username) + "/problemSolving"
}

// FetchProfile loads the profile page of username and extracts its snapshot.
// A timeout while loading is reported as ErrTimeout; the browser is always
// released before FetchProfile returns.
func (s *Scraper) FetchProfile(ctx context.Context, username string) (*Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("fetch profile: %w", ErrInvalidUsername)
	}

	totalStart := time.Now()
	profileURL := s.ProfileURL(username)

	markup, err := s.loadFunc(ctx, profileURL)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", username, err)
	}
	loadDur := time.Since(totalStart)

	extractStart := time.Now()
	profile, err := Extract(markup)
	if err != nil {
		return nil, fmt.Errorf("extract profile %q: %w", username, err)
	}

	s.logger.Debug("fetched profile",
		zap.String("username", username),
		zap.String("mode", string(s.mode)),
		zap.Duration("load", loadDur),
		zap.Duration("extract", time.Since(extractStart)),
		zap.Duration("total", time.Since(totalStart)),
		zap.Int("bytes", len(markup)),
	)
	return profile, nil
}

// doRequest builds and executes an HTTP request with browser-like headers.
func (s *Scraper) doRequest(ctx context.Context, method, urlStr string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, ErrRateLimited
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	}

	return resp, nil
}
