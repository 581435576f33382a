package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

// DOMScraper extracts raw product records from a rendered page.
type DOMScraper interface {
	Scrape(ctx context.Context, pageURL string) ([]json.RawMessage, error)
}

// APIReplayer harvests product identifiers leaked by the page's own
// background API traffic and replays direct API calls for full records.
type APIReplayer interface {
	Replay(ctx context.Context, pageURL string) ([]json.RawMessage, error)
}

// StealthChain is the two-step strategy for bot-hardened storefronts: render
// and scrape the DOM first; only when the DOM is confirmed empty (the
// fingerprinting tier serving a hollow page) fall back to API replay. The
// fallback is never attempted when the ordinary path yields products.
type StealthChain struct {
	dom    DOMScraper
	api    APIReplayer
	logger *zap.Logger
}

// NewStealthChain composes the two steps.
func NewStealthChain(dom DOMScraper, api APIReplayer, logger *zap.Logger) *StealthChain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StealthChain{dom: dom, api: api, logger: logger}
}

// Fetch runs the chain for one storefront page.
func (c *StealthChain) Fetch(ctx context.Context, pageURL string) ([]json.RawMessage, error) {
	records, err := c.dom.Scrape(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		return records, nil
	}

	if c.api == nil {
		return nil, nil
	}
	c.logger.Info("rendered DOM empty, falling back to API replay",
		zap.String("page_url", pageURL))
	return c.api.Replay(ctx, pageURL)
}

// BrowserConfig configures the hardened browser profile. The profile is
// persistent and pinned to one locale and timezone so the storefront sees a
// returning regional visitor, not a fresh headless instance.
type BrowserConfig struct {
	ProfileDir string `validate:"required"`
	Locale     string
	Timezone   string
	Headless   bool
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Browser owns a chromedp allocator over the hardened profile. It is a
// heavyweight resource: Close must run on every exit path.
type Browser struct {
	cfg         BrowserConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewBrowser starts the allocator.
func NewBrowser(cfg BrowserConfig) (*Browser, error) {
	if cfg.ProfileDir == "" {
		return nil, fmt.Errorf("browser profile dir is required")
	}
	if cfg.Locale == "" {
		cfg.Locale = "en-ZA"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Africa/Johannesburg"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(cfg.ProfileDir),
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", cfg.Locale),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Browser{
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close releases the browser process and profile lock.
func (b *Browser) Close() {
	b.allocCancel()
}

// newTab opens a tab context with the run timeout applied. Cancellation of
// the caller's context tears the tab down too; the returned cancel must be
// deferred so the tab is released on every exit path.
func (b *Browser) newTab(parent context.Context) (context.Context, context.CancelFunc) {
	tabCtx, tabCancel := chromedp.NewContext(b.allocCtx)
	timed, timedCancel := context.WithTimeout(tabCtx, b.cfg.Timeout)
	stop := context.AfterFunc(parent, timedCancel)
	return timed, func() {
		stop()
		timedCancel()
		tabCancel()
	}
}

// BrowserDOMScraper renders a storefront page in the hardened profile and
// extracts product records with a page-provided JS snippet that evaluates to
// a JSON array.
type BrowserDOMScraper struct {
	browser *Browser
	// ExtractJS evaluates in the page and returns an array of product
	// objects; an empty array means the page rendered without products.
	ExtractJS string
	// WaitSelector is awaited before extraction, typically the product
	// grid container.
	WaitSelector string
}

// NewBrowserDOMScraper creates the DOM step.
func NewBrowserDOMScraper(browser *Browser, waitSelector, extractJS string) *BrowserDOMScraper {
	return &BrowserDOMScraper{
		browser:      browser,
		WaitSelector: waitSelector,
		ExtractJS:    extractJS,
	}
}

// Scrape implements DOMScraper.
func (s *BrowserDOMScraper) Scrape(ctx context.Context, pageURL string) ([]json.RawMessage, error) {
	tabCtx, cancel := s.browser.newTab(ctx)
	defer cancel()

	var raw string
	tasks := chromedp.Tasks{
		emulation.SetTimezoneOverride(s.browser.cfg.Timezone),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
	}
	if s.WaitSelector != "" {
		// The grid may legitimately never appear on a bot-served empty
		// page; poll briefly rather than waiting out the full timeout.
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			waitCtx, waitCancel := context.WithTimeout(ctx, 10*time.Second)
			defer waitCancel()
			_ = chromedp.WaitVisible(s.WaitSelector).Do(waitCtx)
			return nil
		}))
	}
	tasks = append(tasks, chromedp.Evaluate("JSON.stringify("+s.ExtractJS+")", &raw))

	if err := chromedp.Run(tabCtx, tasks); err != nil {
		return nil, syncdomain.ConnectionError("render storefront page", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, syncdomain.ParseError(pageURL, err)
	}
	return records, nil
}

// NetworkAPIReplayer loads the page once with network interception enabled,
// collects product identifiers from the background API calls the page makes
// for itself (tracking beacons leak them), then replays direct API requests
// for the full records, bypassing DOM rendering entirely.
type NetworkAPIReplayer struct {
	browser *Browser
	client  *http.Client
	logger  *zap.Logger

	// IDPattern matches intercepted request URLs and captures the product
	// identifier in its first group.
	IDPattern *regexp.Regexp
	// APITemplate formats a captured identifier into a direct API URL.
	APITemplate string
	// SettleTime is how long the page is left to fire its background
	// traffic after load.
	SettleTime time.Duration
}

// NewNetworkAPIReplayer creates the API-replay step.
func NewNetworkAPIReplayer(browser *Browser, idPattern *regexp.Regexp, apiTemplate string, logger *zap.Logger) *NetworkAPIReplayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NetworkAPIReplayer{
		browser:     browser,
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		IDPattern:   idPattern,
		APITemplate: apiTemplate,
		SettleTime:  8 * time.Second,
	}
}

// Replay implements APIReplayer.
func (r *NetworkAPIReplayer) Replay(ctx context.Context, pageURL string) ([]json.RawMessage, error) {
	ids, err := r.harvestIDs(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		r.logger.Warn("no product identifiers intercepted", zap.String("page_url", pageURL))
		return nil, nil
	}
	r.logger.Info("intercepted product identifiers",
		zap.Int("count", len(ids)), zap.String("page_url", pageURL))

	records := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		record, err := r.fetchRecord(ctx, id)
		if err != nil {
			return records, err
		}
		records = append(records, record)
		if err := sleep(ctx, DefaultPolitenessDelay); err != nil {
			return records, err
		}
	}
	return records, nil
}

// idCollector accumulates unique identifiers matched out of request URLs.
// ListenTarget invokes its callback from the tab's event-dispatch goroutine,
// which keeps running until the tab context is cancelled, so every access
// goes through the mutex.
type idCollector struct {
	pattern *regexp.Regexp

	mu   sync.Mutex
	seen map[string]bool
	ids  []string
}

func newIDCollector(pattern *regexp.Regexp) *idCollector {
	return &idCollector{pattern: pattern, seen: make(map[string]bool)}
}

func (c *idCollector) Observe(requestURL string) {
	m := c.pattern.FindStringSubmatch(requestURL)
	if len(m) < 2 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seen[m[1]] {
		c.seen[m[1]] = true
		c.ids = append(c.ids, m[1])
	}
}

// Snapshot returns a copy of the identifiers collected so far, in the
// order they were first observed.
func (c *idCollector) Snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ids...)
}

// harvestIDs opens the page with a network listener and collects identifiers
// until the settle window closes.
func (r *NetworkAPIReplayer) harvestIDs(ctx context.Context, pageURL string) ([]string, error) {
	tabCtx, cancel := r.browser.newTab(ctx)
	defer cancel()

	collector := newIDCollector(r.IDPattern)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		req, ok := ev.(*network.EventRequestWillBeSent)
		if !ok {
			return
		}
		collector.Observe(req.Request.URL)
	})

	err := chromedp.Run(tabCtx,
		network.Enable(),
		emulation.SetTimezoneOverride(r.browser.cfg.Timezone),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(r.SettleTime),
	)
	if err != nil {
		return nil, syncdomain.ConnectionError("intercept storefront traffic", err)
	}
	return collector.Snapshot(), nil
}

func (r *NetworkAPIReplayer) fetchRecord(ctx context.Context, id string) (json.RawMessage, error) {
	apiURL := fmt.Sprintf(r.APITemplate, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, syncdomain.ConnectionError("build api request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, syncdomain.ConnectionError("replay api request", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, syncdomain.ConnectionError("replay api request", fmt.Errorf("status %d for id %s", resp.StatusCode, id))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, syncdomain.ConnectionError("read api response", err)
	}
	if !json.Valid(body) || strings.TrimSpace(string(body)) == "" {
		return nil, syncdomain.ParseError(id, fmt.Errorf("invalid json payload"))
	}
	return json.RawMessage(body), nil
}
