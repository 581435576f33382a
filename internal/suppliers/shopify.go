package suppliers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/AudicoSA/audico-sync/internal/domain/catalog"
	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/classify"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/fetch"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/pricing"
)

// ShopifyConfig describes a supplier running a public Shopify storefront.
// The storefront's /products.json endpoint is paginated and needs no
// credentials; collection paths scope the crawl when set.
type ShopifyConfig struct {
	BaseURL string `validate:"required,url"`
	// CollectionPaths scopes fetching to specific collections, e.g.
	// "/collections/speakers". Empty means the whole storefront catalog.
	CollectionPaths []string
	PageSize        int
	MaxPages        int
	Delay           time.Duration
	Timeout         time.Duration
	// RetailMinusPct derives the internal cost from the storefront retail
	// price: cost = retail × (1 − pct). Expressed as a fraction, 0.40 = 40%.
	RetailMinusPct decimal.Decimal
}

// shopifyProduct is the storefront JSON record shape.
type shopifyProduct struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Handle      string           `json:"handle"`
	Vendor      string           `json:"vendor"`
	ProductType string           `json:"product_type"`
	BodyHTML    string           `json:"body_html"`
	Variants    []shopifyVariant `json:"variants"`
	Images      []shopifyImage   `json:"images"`
}

type shopifyVariant struct {
	ID                int64       `json:"id"`
	SKU               string      `json:"sku"`
	Title             string      `json:"title"`
	Price             json.Number `json:"price"`
	CompareAtPrice    json.Number `json:"compare_at_price"`
	InventoryQuantity int         `json:"inventory_quantity"`
	Available         bool        `json:"available"`
}

type shopifyImage struct {
	Src string `json:"src"`
}

type shopifyPage struct {
	Products []shopifyProduct `json:"products"`
}

// ShopifySource crawls the storefront products.json endpoint.
type ShopifySource struct {
	cfg        ShopifyConfig
	client     *http.Client
	retry      fetch.RetryPolicy
	classifier *classify.Classifier
	logger     *zap.Logger
}

// NewShopifyAdapter builds the Shopify storefront supplier adapter.
func NewShopifyAdapter(code string, cfg ShopifyConfig, deps Deps) *Base {
	return NewBase(code, NewShopifySource(cfg, deps.Logger), deps)
}

// NewShopifySource creates the fetch side alone, used directly in tests.
func NewShopifySource(cfg ShopifyConfig, log *zap.Logger) *ShopifySource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 250 {
		// Shopify caps limit at 250 per request.
		cfg.PageSize = 250
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ShopifySource{
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.Timeout},
		retry:      fetch.DefaultRetryPolicy(),
		classifier: classify.New(),
		logger:     log,
	}
}

// Probe fetches a single product from the storefront catalog.
func (s *ShopifySource) Probe(ctx context.Context) error {
	_, err := s.requestPath(ctx, s.productsPath(""), url.Values{"limit": {"1"}})
	return err
}

// Fetch implements Source. Each configured collection is paginated
// independently; products appearing in several collections dedupe on SKU.
func (s *ShopifySource) Fetch(ctx context.Context, supplierID uuid.UUID, limit int) ([]Entry, error) {
	paths := s.cfg.CollectionPaths
	if len(paths) == 0 {
		paths = []string{""}
	}

	var entries []Entry
	seen := make(map[string]bool)
	for _, collection := range paths {
		raws, err := s.fetchCollection(ctx, collection, limit-len(entries))
		if err != nil {
			return entries, err
		}
		for _, raw := range raws {
			for _, entry := range s.transform(supplierID, raw) {
				if entry.SKU != "" && seen[entry.SKU] {
					continue
				}
				seen[entry.SKU] = true
				entries = append(entries, entry)
				if limit > 0 && len(entries) >= limit {
					return entries, nil
				}
			}
		}
	}
	return entries, nil
}

func (s *ShopifySource) fetchCollection(ctx context.Context, collection string, limit int) ([]shopifyProduct, error) {
	if limit < 0 {
		limit = 0
	}
	paginator := &fetch.Paginator[shopifyProduct]{
		PageSize: s.cfg.PageSize,
		MaxPages: s.cfg.MaxPages,
		Limit:    limit,
		Delay:    s.cfg.Delay,
		IDOf:     func(p shopifyProduct) string { return strconv.FormatInt(p.ID, 10) },
		Logger:   s.logger,
	}

	path := s.productsPath(collection)
	fetchPage := func(ctx context.Context, page, pageSize int) ([]shopifyProduct, error) {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(pageSize))
		return s.requestPath(ctx, path, q)
	}
	// Some storefront tiers stop advancing the page parameter; since_id
	// keeps the crawl moving using the last seen product ID.
	fetchSince := func(ctx context.Context, sinceID string, pageSize int) ([]shopifyProduct, error) {
		q := url.Values{}
		q.Set("since_id", sinceID)
		q.Set("limit", strconv.Itoa(pageSize))
		return s.requestPath(ctx, path, q)
	}

	return paginator.FetchAll(ctx, fetchPage, fetchSince)
}

func (s *ShopifySource) productsPath(collection string) string {
	if collection == "" {
		return "/products.json"
	}
	return "/" + strings.Trim(collection, "/") + "/products.json"
}

func (s *ShopifySource) requestPath(ctx context.Context, path string, q url.Values) ([]shopifyProduct, error) {
	var products []shopifyProduct
	err := s.retry.Do(ctx, func() error {
		reqURL := strings.TrimRight(s.cfg.BaseURL, "/") + path + "?" + q.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return syncdomain.ConnectionError("build request", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return syncdomain.ConnectionError("fetch storefront page", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusBadRequest:
			return fetch.ErrEndOfPages
		case resp.StatusCode == http.StatusNotFound:
			return syncdomain.ConnectionError("fetch storefront page", fmt.Errorf("collection not found: %s", path))
		case resp.StatusCode != http.StatusOK:
			return syncdomain.ConnectionError("fetch storefront page", fmt.Errorf("status %d", resp.StatusCode))
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 32*1024*1024))
		if err != nil {
			return syncdomain.ConnectionError("read storefront page", err)
		}

		var page shopifyPage
		if err := json.Unmarshal(body, &page); err != nil {
			return syncdomain.ParseError(reqURL, err)
		}
		products = page.Products
		return nil
	})
	return products, err
}

// transform maps one storefront product into unified entries, one per
// variant carrying a SKU. Variant-less or SKU-less products fall back to the
// product handle as the supplier SKU.
func (s *ShopifySource) transform(supplierID uuid.UUID, raw shopifyProduct) []Entry {
	if len(raw.Variants) == 0 {
		return []Entry{{
			SKU: raw.Handle,
			Err: syncdomain.ParseError(raw.Handle, fmt.Errorf("product %d has no variants", raw.ID)),
		}}
	}

	entries := make([]Entry, 0, len(raw.Variants))
	for _, variant := range raw.Variants {
		sku := strings.TrimSpace(variant.SKU)
		if sku == "" {
			sku = fmt.Sprintf("%s-%d", raw.Handle, variant.ID)
		}
		entries = append(entries, s.transformVariant(supplierID, raw, variant, sku))
	}
	return entries
}

func (s *ShopifySource) transformVariant(supplierID uuid.UUID, raw shopifyProduct, variant shopifyVariant, sku string) Entry {
	entry := Entry{SKU: sku}

	name := raw.Title
	if variant.Title != "" && variant.Title != "Default Title" {
		name = raw.Title + " - " + variant.Title
	}

	product, err := catalog.NewProduct(supplierID, sku, name)
	if err != nil {
		entry.Err = syncdomain.TransformError(sku, err)
		return entry
	}
	product.Brand = raw.Vendor
	product.Category = raw.ProductType
	product.Description = stripHTML(raw.BodyHTML)

	retail, err := decimalFromNumber(variant.Price)
	if err != nil {
		entry.Err = syncdomain.ParseError(sku, fmt.Errorf("variant price: %w", err))
		return entry
	}
	// The storefront only exposes retail; derive the internal cost from it.
	cost := pricing.RetailMinus(retail, s.cfg.RetailMinusPct)
	if err := product.SetPricing(cost, retail, retail); err != nil {
		entry.Err = syncdomain.TransformError(sku, err)
		return entry
	}

	stock := variant.InventoryQuantity
	if stock < 0 || !variant.Available {
		stock = 0
	}
	if err := product.SetStock(stock, 0, 0); err != nil {
		entry.Err = syncdomain.TransformError(sku, err)
		return entry
	}

	urls := make([]string, 0, len(raw.Images))
	for _, img := range raw.Images {
		if img.Src != "" {
			urls = append(urls, img.Src)
		}
	}
	if err := product.SetImages(urls); err != nil {
		entry.Err = syncdomain.TransformError(sku, err)
		return entry
	}

	if err := product.ApplyClassification(s.classifier.Classify(name, product.Description, raw.ProductType)); err != nil {
		entry.Err = syncdomain.TransformError(sku, err)
		return entry
	}
	product.RefreshContentHash()

	entry.Product = product
	return entry
}

// stripHTML reduces storefront body HTML to plain text for classification
// and the description column.
func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteByte(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
