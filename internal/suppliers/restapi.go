package suppliers

import (
	"context"
	"encoding/json"
	"errors"
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

// RESTAPIConfig describes a supplier exposing a paginated JSON catalog API.
type RESTAPIConfig struct {
	BaseURL  string `validate:"required,url"`
	APIKey   string
	PageSize int
	MaxPages int
	Delay    time.Duration
	Timeout  time.Duration
	// Formula selects the pricing rule applied to the upstream cost price.
	Formula pricing.Formula
	// MarkupPercent feeds the standard-markup formula when selected.
	MarkupPercent decimal.Decimal
}

// restProduct is the upstream record shape of the dealer API. Regional stock
// columns map to the three warehouse fields; missing columns decode to zero.
type restProduct struct {
	SKU         string            `json:"sku"`
	Name        string            `json:"name"`
	Model       string            `json:"model"`
	Brand       string            `json:"brand"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	CostPrice   json.Number       `json:"cost_price"`
	RetailPrice json.Number       `json:"retail_price"`
	StockCPT    int               `json:"stock_cpt"`
	StockJHB    int               `json:"stock_jhb"`
	StockDBN    int               `json:"stock_dbn"`
	Images      []string          `json:"images"`
	Specs       map[string]string `json:"specifications"`
}

type restPage struct {
	Products []restProduct `json:"products"`
}

// RESTAPISource fetches the dealer API page by page with the since_id cursor
// fallback and maps records into unified products.
type RESTAPISource struct {
	cfg        RESTAPIConfig
	client     *http.Client
	retry      fetch.RetryPolicy
	classifier *classify.Classifier
	logger     *zap.Logger
}

// NewRESTAPIAdapter builds the paginated-REST supplier adapter.
func NewRESTAPIAdapter(code string, cfg RESTAPIConfig, deps Deps) *Base {
	return NewBase(code, NewRESTAPISource(cfg, deps.Logger), deps)
}

// NewRESTAPISource creates the fetch side alone, used directly in tests.
func NewRESTAPISource(cfg RESTAPIConfig, log *zap.Logger) *RESTAPISource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RESTAPISource{
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.Timeout},
		retry:      fetch.DefaultRetryPolicy(),
		classifier: classify.New(),
		logger:     log,
	}
}

// Probe checks the API answers with the configured key.
func (s *RESTAPISource) Probe(ctx context.Context) error {
	_, err := s.fetchPage(ctx, 1, 1)
	if err != nil && !errors.Is(err, fetch.ErrEndOfPages) {
		return err
	}
	return nil
}

// Fetch implements Source.
func (s *RESTAPISource) Fetch(ctx context.Context, supplierID uuid.UUID, limit int) ([]Entry, error) {
	paginator := &fetch.Paginator[restProduct]{
		PageSize: s.cfg.PageSize,
		MaxPages: s.cfg.MaxPages,
		Limit:    limit,
		Delay:    s.cfg.Delay,
		IDOf:     func(p restProduct) string { return p.SKU },
		Logger:   s.logger,
	}

	raws, err := paginator.FetchAll(ctx, s.fetchPage, s.fetchSince)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		entries = append(entries, s.transform(supplierID, raw))
	}
	return entries, nil
}

func (s *RESTAPISource) fetchPage(ctx context.Context, page, pageSize int) ([]restProduct, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(pageSize))
	return s.request(ctx, q)
}

func (s *RESTAPISource) fetchSince(ctx context.Context, sinceID string, pageSize int) ([]restProduct, error) {
	q := url.Values{}
	q.Set("since_id", sinceID)
	q.Set("limit", strconv.Itoa(pageSize))
	return s.request(ctx, q)
}

func (s *RESTAPISource) request(ctx context.Context, q url.Values) ([]restProduct, error) {
	var products []restProduct
	err := s.retry.Do(ctx, func() error {
		reqURL := strings.TrimRight(s.cfg.BaseURL, "/") + "/products?" + q.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return syncdomain.ConnectionError("build request", err)
		}
		req.Header.Set("Accept", "application/json")
		if s.cfg.APIKey != "" {
			req.Header.Set("X-API-Key", s.cfg.APIKey)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return syncdomain.ConnectionError("fetch catalog page", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusBadRequest:
			// The dealer API answers 400 past the last page.
			return fetch.ErrEndOfPages
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return syncdomain.AuthenticationError("api key rejected", fmt.Errorf("status %d", resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return syncdomain.ConnectionError("fetch catalog page", fmt.Errorf("status %d", resp.StatusCode))
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
		if err != nil {
			return syncdomain.ConnectionError("read catalog page", err)
		}

		var page restPage
		if err := json.Unmarshal(body, &page); err != nil {
			return syncdomain.ParseError(reqURL, err)
		}
		products = page.Products
		return nil
	})
	return products, err
}

// transform maps one raw record into a unified product entry.
func (s *RESTAPISource) transform(supplierID uuid.UUID, raw restProduct) Entry {
	entry := Entry{SKU: raw.SKU}

	product, err := catalog.NewProduct(supplierID, raw.SKU, raw.Name)
	if err != nil {
		entry.Err = syncdomain.TransformError(raw.SKU, err)
		return entry
	}
	product.Model = raw.Model
	product.Brand = raw.Brand
	product.Category = raw.Category
	product.Description = raw.Description

	cost, err := decimalFromNumber(raw.CostPrice)
	if err != nil {
		entry.Err = syncdomain.ParseError(raw.SKU, fmt.Errorf("cost price: %w", err))
		return entry
	}
	retail, err := decimalFromNumber(raw.RetailPrice)
	if err != nil {
		entry.Err = syncdomain.ParseError(raw.SKU, fmt.Errorf("retail price: %w", err))
		return entry
	}

	selling := s.sellingPrice(cost)
	if err := product.SetPricing(cost, retail, selling); err != nil {
		entry.Err = syncdomain.TransformError(raw.SKU, err)
		return entry
	}
	if err := product.SetStock(raw.StockCPT, raw.StockJHB, raw.StockDBN); err != nil {
		entry.Err = syncdomain.TransformError(raw.SKU, err)
		return entry
	}
	if err := product.SetImages(raw.Images); err != nil {
		entry.Err = syncdomain.TransformError(raw.SKU, err)
		return entry
	}
	if err := product.SetSpecifications(raw.Specs); err != nil {
		entry.Err = syncdomain.TransformError(raw.SKU, err)
		return entry
	}
	if err := product.ApplyClassification(s.classifier.Classify(raw.Name, raw.Description, raw.Category)); err != nil {
		entry.Err = syncdomain.TransformError(raw.SKU, err)
		return entry
	}
	product.RefreshContentHash()

	entry.Product = product
	return entry
}

func (s *RESTAPISource) sellingPrice(cost decimal.Decimal) decimal.Decimal {
	switch s.cfg.Formula {
	case pricing.FormulaVATMarginB:
		return pricing.VATMarginB(cost)
	case pricing.FormulaStandardMarkup:
		return pricing.StandardMarkup(cost, s.cfg.MarkupPercent)
	default:
		return pricing.VATMarginA(cost)
	}
}

func decimalFromNumber(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}
