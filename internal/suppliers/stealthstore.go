package suppliers

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/AudicoSA/audico-sync/internal/domain/catalog"
	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/classify"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/currency"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/fetch"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/pricing"
)

// StealthStoreConfig describes a storefront that fingerprints automated
// browsers. Pages render in a hardened persistent profile; when the DOM is
// served hollow, product IDs leaked by the page's own tracking calls are
// replayed against the storefront API directly.
type StealthStoreConfig struct {
	BaseURL string `validate:"required,url"`
	// PagePaths are the storefront pages to render, e.g. collection URLs.
	PagePaths []string `validate:"min=1"`
	// ProfileDir is the persistent browser profile. One profile per
	// supplier keeps cookies and fingerprint state stable between runs.
	ProfileDir string `validate:"required"`
	Headless   bool
	Timeout    time.Duration
	Delay      time.Duration
	// IDPattern matches intercepted request URLs with the product ID in
	// its first capture group.
	IDPattern string
	// APITemplate formats a captured ID into a direct product API URL.
	APITemplate string
	// RetailMinusPct derives cost from the rendered retail price.
	RetailMinusPct decimal.Decimal
}

// stealthProduct is the record shape both chain steps produce: the DOM
// extraction script emits it directly and the product API returns a superset
// of it.
type stealthProduct struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	Category  string `json:"category"`
	PriceText string `json:"price"`
	InStock   bool   `json:"in_stock"`
	Image     string `json:"image"`
}

// extractProductsJS evaluates in the rendered page and returns the product
// grid as an array of stealthProduct objects. An empty array is the signal
// that the bot-detection tier served a hollow page.
const extractProductsJS = `
Array.from(document.querySelectorAll('[data-product-sku]')).map(function (el) {
	return {
		sku: el.getAttribute('data-product-sku') || '',
		name: (el.querySelector('.product-name') || {}).textContent || '',
		brand: (el.querySelector('.product-brand') || {}).textContent || '',
		category: el.getAttribute('data-category') || '',
		price: (el.querySelector('.product-price') || {}).textContent || '',
		in_stock: !el.classList.contains('out-of-stock'),
		image: ((el.querySelector('img') || {}).src) || ''
	};
})`

// productGridSelector is awaited before extraction.
const productGridSelector = ".product-grid"

// StealthStoreSource drives the browser chain for each configured page.
type StealthStoreSource struct {
	cfg        StealthStoreConfig
	browser    *fetch.Browser
	chain      *fetch.StealthChain
	classifier *classify.Classifier
	logger     *zap.Logger
}

// NewStealthStoreAdapter builds the stealth-browser supplier adapter. Close
// must be called on the returned source when the process exits; the adapter
// exposes it through the Base's source.
func NewStealthStoreAdapter(code string, cfg StealthStoreConfig, deps Deps) (*Base, *StealthStoreSource, error) {
	source, err := NewStealthStoreSource(cfg, deps.Logger)
	if err != nil {
		return nil, nil, err
	}
	return NewBase(code, source, deps), source, nil
}

// NewStealthStoreSource creates the fetch side alone.
func NewStealthStoreSource(cfg StealthStoreConfig, log *zap.Logger) (*StealthStoreSource, error) {
	if log == nil {
		log = zap.NewNop()
	}

	browser, err := fetch.NewBrowser(fetch.BrowserConfig{
		ProfileDir: cfg.ProfileDir,
		Headless:   cfg.Headless,
		Timeout:    cfg.Timeout,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	dom := fetch.NewBrowserDOMScraper(browser, productGridSelector, extractProductsJS)

	var replayer fetch.APIReplayer
	if cfg.IDPattern != "" && cfg.APITemplate != "" {
		pattern, err := regexp.Compile(cfg.IDPattern)
		if err != nil {
			browser.Close()
			return nil, fmt.Errorf("compile id pattern: %w", err)
		}
		replayer = fetch.NewNetworkAPIReplayer(browser, pattern, cfg.APITemplate, log)
	}

	return &StealthStoreSource{
		cfg:        cfg,
		browser:    browser,
		chain:      fetch.NewStealthChain(dom, replayer, log),
		classifier: classify.New(),
		logger:     log,
	}, nil
}

// Close releases the browser process and profile lock.
func (s *StealthStoreSource) Close() {
	s.browser.Close()
}

// Probe renders the storefront root. Any render proves the profile works;
// an empty product grid is not a probe failure.
func (s *StealthStoreSource) Probe(ctx context.Context) error {
	_, err := s.chain.Fetch(ctx, s.pageURL(s.cfg.PagePaths[0]))
	return err
}

// Fetch implements Source: run the chain per configured page and map records.
func (s *StealthStoreSource) Fetch(ctx context.Context, supplierID uuid.UUID, limit int) ([]Entry, error) {
	var entries []Entry
	seen := make(map[string]bool)
	for _, path := range s.cfg.PagePaths {
		records, err := s.chain.Fetch(ctx, s.pageURL(path))
		if err != nil {
			return entries, err
		}

		for _, record := range records {
			entry := s.transform(supplierID, record)
			if entry.SKU != "" && seen[entry.SKU] {
				continue
			}
			seen[entry.SKU] = true
			entries = append(entries, entry)
			if limit > 0 && len(entries) >= limit {
				return entries, nil
			}
		}

		if err := sleepCtx(ctx, s.delay()); err != nil {
			return entries, err
		}
	}
	return entries, nil
}

func (s *StealthStoreSource) transform(supplierID uuid.UUID, record json.RawMessage) Entry {
	var raw stealthProduct
	if err := json.Unmarshal(record, &raw); err != nil {
		return Entry{Err: syncdomain.ParseError("stealth record", err)}
	}

	raw.SKU = strings.TrimSpace(raw.SKU)
	raw.Name = strings.TrimSpace(raw.Name)
	entry := Entry{SKU: raw.SKU}

	product, err := catalog.NewProduct(supplierID, raw.SKU, raw.Name)
	if err != nil {
		entry.Err = syncdomain.TransformError(raw.SKU, err)
		return entry
	}
	product.Brand = strings.TrimSpace(raw.Brand)
	product.Category = strings.TrimSpace(raw.Category)

	price, err := currency.Parse(raw.PriceText)
	if err != nil {
		entry.Err = syncdomain.ParseError(raw.SKU, fmt.Errorf("price %q: %w", raw.PriceText, err))
		return entry
	}

	stock := 0
	if raw.InStock && !price.Absent {
		stock = 1
	}

	retail := decimal.Zero
	cost := decimal.Zero
	if !price.Absent {
		retail = price.Amount
		cost = pricing.RetailMinus(retail, s.cfg.RetailMinusPct)
	}
	if err := product.SetPricing(cost, retail, retail); err != nil {
		entry.Err = syncdomain.TransformError(raw.SKU, err)
		return entry
	}
	if err := product.SetStock(stock, 0, 0); err != nil {
		entry.Err = syncdomain.TransformError(raw.SKU, err)
		return entry
	}
	if raw.Image != "" {
		if err := product.SetImages([]string{raw.Image}); err != nil {
			entry.Err = syncdomain.TransformError(raw.SKU, err)
			return entry
		}
	}
	if err := product.ApplyClassification(s.classifier.Classify(raw.Name, "", raw.Category)); err != nil {
		entry.Err = syncdomain.TransformError(raw.SKU, err)
		return entry
	}
	product.RefreshContentHash()

	entry.Product = product
	return entry
}

func (s *StealthStoreSource) pageURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (s *StealthStoreSource) delay() time.Duration {
	if s.cfg.Delay > 0 {
		return s.cfg.Delay
	}
	return 2 * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
