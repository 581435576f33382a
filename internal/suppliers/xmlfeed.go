package suppliers

import (
	"context"
	"encoding/xml"
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

// XMLFeedConfig describes a supplier publishing its full catalog as one XML
// document. There is no pagination; the document is the catalog.
type XMLFeedConfig struct {
	FeedURL string `validate:"required,url"`
	Timeout time.Duration
	// Formula selects the pricing rule applied to the feed's cost column.
	Formula       pricing.Formula
	MarkupPercent decimal.Decimal
}

// feedDocument is the feed's envelope.
type feedDocument struct {
	XMLName xml.Name   `xml:"products"`
	Items   []feedItem `xml:"product"`
}

// feedItem is one feed row. The three warehouse columns are optional in the
// feed; absent elements decode to zero and total stock is always their sum.
type feedItem struct {
	SKU         string `xml:"sku"`
	Name        string `xml:"name"`
	Model       string `xml:"model"`
	Brand       string `xml:"brand"`
	Category    string `xml:"category"`
	Description string `xml:"description"`
	CostPrice   string `xml:"cost_price"`
	RetailPrice string `xml:"retail_price"`
	StockCPT    int    `xml:"stock_cpt"`
	StockJHB    int    `xml:"stock_jhb"`
	StockDBN    int    `xml:"stock_dbn"`
	Images      struct {
		URLs []string `xml:"url"`
	} `xml:"images"`
	Specs []feedSpec `xml:"specifications>spec"`
}

type feedSpec struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// XMLFeedSource downloads and maps the feed.
type XMLFeedSource struct {
	cfg        XMLFeedConfig
	fetcher    *fetch.FeedFetcher
	classifier *classify.Classifier
	logger     *zap.Logger
}

// NewXMLFeedAdapter builds the XML-feed supplier adapter.
func NewXMLFeedAdapter(code string, cfg XMLFeedConfig, deps Deps) *Base {
	return NewBase(code, NewXMLFeedSource(cfg, deps.Logger), deps)
}

// NewXMLFeedSource creates the fetch side alone, used directly in tests.
func NewXMLFeedSource(cfg XMLFeedConfig, log *zap.Logger) *XMLFeedSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &XMLFeedSource{
		cfg:        cfg,
		fetcher:    fetch.NewFeedFetcher(cfg.Timeout, fetch.DefaultRetryPolicy(), log),
		classifier: classify.New(),
		logger:     log,
	}
}

// Probe checks the feed URL answers without downloading the document.
func (s *XMLFeedSource) Probe(ctx context.Context) error {
	return s.fetcher.Probe(ctx, s.cfg.FeedURL)
}

// Fetch implements Source.
func (s *XMLFeedSource) Fetch(ctx context.Context, supplierID uuid.UUID, limit int) ([]Entry, error) {
	var doc feedDocument
	if err := s.fetcher.FetchXML(ctx, s.cfg.FeedURL, &doc); err != nil {
		return nil, err
	}

	items := doc.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, s.transform(supplierID, item))
	}
	return entries, nil
}

func (s *XMLFeedSource) transform(supplierID uuid.UUID, item feedItem) Entry {
	entry := Entry{SKU: strings.TrimSpace(item.SKU)}

	product, err := catalog.NewProduct(supplierID, item.SKU, item.Name)
	if err != nil {
		entry.Err = syncdomain.TransformError(item.SKU, err)
		return entry
	}
	product.Model = strings.TrimSpace(item.Model)
	product.Brand = strings.TrimSpace(item.Brand)
	product.Category = strings.TrimSpace(item.Category)
	product.Description = strings.TrimSpace(item.Description)

	cost, err := parseFeedDecimal(item.CostPrice)
	if err != nil {
		entry.Err = syncdomain.ParseError(item.SKU, err)
		return entry
	}
	retail, err := parseFeedDecimal(item.RetailPrice)
	if err != nil {
		entry.Err = syncdomain.ParseError(item.SKU, err)
		return entry
	}

	if err := product.SetPricing(cost, retail, s.sellingPrice(cost)); err != nil {
		entry.Err = syncdomain.TransformError(item.SKU, err)
		return entry
	}
	if err := product.SetStock(item.StockCPT, item.StockJHB, item.StockDBN); err != nil {
		entry.Err = syncdomain.TransformError(item.SKU, err)
		return entry
	}
	if err := product.SetImages(item.Images.URLs); err != nil {
		entry.Err = syncdomain.TransformError(item.SKU, err)
		return entry
	}

	specs := make(map[string]string, len(item.Specs))
	for _, spec := range item.Specs {
		if spec.Key != "" {
			specs[spec.Key] = strings.TrimSpace(spec.Value)
		}
	}
	if err := product.SetSpecifications(specs); err != nil {
		entry.Err = syncdomain.TransformError(item.SKU, err)
		return entry
	}

	if err := product.ApplyClassification(s.classifier.Classify(item.Name, item.Description, item.Category)); err != nil {
		entry.Err = syncdomain.TransformError(item.SKU, err)
		return entry
	}
	product.RefreshContentHash()

	entry.Product = product
	return entry
}

func (s *XMLFeedSource) sellingPrice(cost decimal.Decimal) decimal.Decimal {
	switch s.cfg.Formula {
	case pricing.FormulaVATMarginA:
		return pricing.VATMarginA(cost)
	case pricing.FormulaStandardMarkup:
		return pricing.StandardMarkup(cost, s.cfg.MarkupPercent)
	default:
		return pricing.VATMarginB(cost)
	}
}

func parseFeedDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
