package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

// WebSessionConfig describes one authenticated storefront.
type WebSessionConfig struct {
	BaseURL   string `validate:"required,url"`
	LoginPath string `validate:"required"`
	Username  string `validate:"required"`
	Password  string `validate:"required"`

	// NonceSelector locates the login form's CSRF/nonce input.
	NonceSelector string
	// NonceField and credential field names as the form posts them.
	NonceField    string
	UsernameField string
	PasswordField string

	// AuthMarkerSelector is a DOM node only present when logged in. Login
	// success is verified against this or SessionCookie, never against the
	// HTTP status; failed storefront logins still answer 200.
	AuthMarkerSelector string
	// SessionCookie is the cookie name that proves an authenticated session.
	SessionCookie string

	Timeout time.Duration
	Delay   time.Duration
}

// WebSession is an authenticated HTML scrape session over a cookie jar.
type WebSession struct {
	cfg    WebSessionConfig
	client *http.Client
	retry  RetryPolicy
	logger *zap.Logger
}

// NewWebSession creates an unauthenticated session; call Login before
// fetching category pages.
func NewWebSession(cfg WebSessionConfig, retry RetryPolicy, logger *zap.Logger) (*WebSession, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UsernameField == "" {
		cfg.UsernameField = "username"
	}
	if cfg.PasswordField == "" {
		cfg.PasswordField = "password"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSession{
		cfg: cfg,
		client: &http.Client{
			Jar:     jar,
			Timeout: cfg.Timeout,
		},
		retry:  retry,
		logger: logger,
	}, nil
}

// Login extracts the login nonce, posts credentials and verifies the session.
func (s *WebSession) Login(ctx context.Context) error {
	loginURL := s.absoluteURL(s.cfg.LoginPath)

	doc, err := s.fetchDocument(ctx, loginURL)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set(s.cfg.UsernameField, s.cfg.Username)
	form.Set(s.cfg.PasswordField, s.cfg.Password)
	if s.cfg.NonceSelector != "" {
		nonce, ok := doc.Find(s.cfg.NonceSelector).Attr("value")
		if !ok || nonce == "" {
			return syncdomain.AuthenticationError("login nonce not found on login page", nil)
		}
		field := s.cfg.NonceField
		if field == "" {
			field = "nonce"
		}
		form.Set(field, nonce)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return syncdomain.ConnectionError("build login request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return syncdomain.ConnectionError("submit login", err)
	}
	defer resp.Body.Close()

	// A 200 here proves nothing: WooCommerce answers 200 with the login
	// form re-rendered on bad credentials. Verify with the authed marker
	// or the session cookie.
	authedDoc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return syncdomain.ParseError(loginURL, err)
	}
	if s.verifyAuthenticated(authedDoc, resp.Request.URL) {
		s.logger.Info("storefront login verified", zap.String("base_url", s.cfg.BaseURL))
		return nil
	}
	return syncdomain.AuthenticationError("login not verified: no auth marker or session cookie", nil)
}

// TestConnection probes the storefront without logging in.
func (s *WebSession) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL, nil)
	if err != nil {
		return syncdomain.ConnectionError("build probe request", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return syncdomain.ConnectionError("probe storefront", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return syncdomain.ConnectionError("probe storefront", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

// ParseFunc extracts typed records from one category page document.
type ParseFunc[T any] func(doc *goquery.Document) ([]T, error)

// CrawlCategoryOptions tunes one category crawl.
type CrawlCategoryOptions[T any] struct {
	// PagePattern formats page N into a URL path, e.g.
	// "/product-category/speakers/page/%d/".
	PagePattern string
	// NextSelector locates the load-more / next-page control. Pagination
	// for the category is complete when the control is missing, hidden or
	// disabled, or when a page adds no new items.
	NextSelector string
	// IDOf extracts a record's upstream identifier. When set, records
	// already collected on an earlier page are dropped, and a page that
	// contributes nothing new ends the crawl; some storefronts re-serve
	// their last page for every out-of-range page number.
	IDOf     func(T) string
	MaxPages int
	Limit    int
}

// CrawlCategory walks one category's pages through parse, applying the
// load-more completion rules and the hard page ceiling.
func CrawlCategory[T any](ctx context.Context, s *WebSession, opts CrawlCategoryOptions[T], parse ParseFunc[T]) ([]T, error) {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var all []T
	seen := make(map[string]struct{})
	for page := 1; page <= maxPages; page++ {
		pageURL := s.absoluteURL(fmt.Sprintf(opts.PagePattern, page))

		doc, err := s.fetchDocument(ctx, pageURL)
		if err != nil {
			return all, err
		}

		items, err := parse(doc)
		if err != nil {
			return all, syncdomain.ParseError(pageURL, err)
		}
		if len(items) == 0 {
			return all, nil
		}

		added := 0
		for _, item := range items {
			if opts.IDOf != nil {
				if id := opts.IDOf(item); id != "" {
					if _, dup := seen[id]; dup {
						continue
					}
					seen[id] = struct{}{}
				}
			}
			if opts.Limit > 0 && len(all) >= opts.Limit {
				return all, nil
			}
			all = append(all, item)
			added++
		}

		// A load attempt that contributes nothing new means the
		// storefront is repeating itself; the category is exhausted.
		if added == 0 {
			return all, nil
		}

		if opts.NextSelector != "" && !hasUsableControl(doc, opts.NextSelector) {
			return all, nil
		}

		if err := sleep(ctx, s.delay()); err != nil {
			return all, err
		}
	}
	s.logger.Warn("category crawl hit hard page ceiling",
		zap.String("pattern", opts.PagePattern), zap.Int("max_pages", maxPages))
	return all, nil
}

// FetchDocument fetches and parses one page within the session.
func (s *WebSession) FetchDocument(ctx context.Context, path string) (*goquery.Document, error) {
	return s.fetchDocument(ctx, s.absoluteURL(path))
}

func (s *WebSession) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document
	err := s.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return syncdomain.ConnectionError("build request", err)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return syncdomain.ConnectionError("fetch page", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			// Past-the-end category pages 404; treat as an empty page.
			doc = emptyDocument()
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			return syncdomain.ConnectionError("fetch page", fmt.Errorf("status %d", resp.StatusCode))
		}

		parsed, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return syncdomain.ParseError(pageURL, err)
		}
		doc = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *WebSession) verifyAuthenticated(doc *goquery.Document, at *url.URL) bool {
	if s.cfg.AuthMarkerSelector != "" && doc.Find(s.cfg.AuthMarkerSelector).Length() > 0 {
		return true
	}
	if s.cfg.SessionCookie != "" && at != nil {
		for _, c := range s.client.Jar.Cookies(at) {
			if c.Name == s.cfg.SessionCookie && c.Value != "" {
				return true
			}
		}
	}
	return false
}

func (s *WebSession) absoluteURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (s *WebSession) delay() time.Duration {
	if s.cfg.Delay > 0 {
		return s.cfg.Delay
	}
	return DefaultPolitenessDelay
}

// hasUsableControl reports whether the next/load-more control exists and is
// neither hidden nor disabled.
func hasUsableControl(doc *goquery.Document, selector string) bool {
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return false
	}
	usable := false
	sel.EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if _, disabled := node.Attr("disabled"); disabled {
			return true
		}
		if class, _ := node.Attr("class"); strings.Contains(class, "disabled") || strings.Contains(class, "hidden") {
			return true
		}
		if style, _ := node.Attr("style"); strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none") {
			return true
		}
		usable = true
		return false
	})
	return usable
}

func emptyDocument() *goquery.Document {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	return doc
}
