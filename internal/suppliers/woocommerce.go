package suppliers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
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

// WooCommerceConfig describes a dealer portal running WooCommerce behind a
// login. Dealer pricing only renders for an authenticated session.
type WooCommerceConfig struct {
	BaseURL   string `validate:"required,url"`
	LoginPath string
	Username  string `validate:"required"`
	Password  string `validate:"required"`
	// Categories are the product category slugs to crawl.
	Categories []string `validate:"min=1"`
	MaxPages   int
	Delay      time.Duration
	Timeout    time.Duration
	// DiscountPct is the dealer discount applied to the listed price to
	// derive cost, fed through the discount-and-round formula for selling.
	DiscountPct decimal.Decimal
}

// wooCard is the raw record scraped from one product card in the category
// grid: everything the portal renders without opening the product page.
type wooCard struct {
	SKU       string
	Name      string
	Category  string
	PriceText string
	ImageURL  string
	Link      string
}

// WooCommerceSource logs into the portal and crawls category pages.
type WooCommerceSource struct {
	cfg        WooCommerceConfig
	session    *fetch.WebSession
	products   catalog.ProductRepository
	classifier *classify.Classifier
	logger     *zap.Logger
}

// NewWooCommerceAdapter builds the authenticated-scrape supplier adapter.
func NewWooCommerceAdapter(code string, cfg WooCommerceConfig, deps Deps) (*Base, error) {
	source, err := NewWooCommerceSource(cfg, deps.Products, deps.Logger)
	if err != nil {
		return nil, err
	}
	return NewBase(code, source, deps), nil
}

// NewWooCommerceSource creates the fetch side alone, used directly in tests.
// The product repository is consulted to retain the last known price for
// listings that have gone ask-for-price.
func NewWooCommerceSource(cfg WooCommerceConfig, products catalog.ProductRepository, log *zap.Logger) (*WooCommerceSource, error) {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/my-account/"
	}
	if log == nil {
		log = zap.NewNop()
	}

	session, err := fetch.NewWebSession(fetch.WebSessionConfig{
		BaseURL:            cfg.BaseURL,
		LoginPath:          cfg.LoginPath,
		Username:           cfg.Username,
		Password:           cfg.Password,
		NonceSelector:      `input[name="woocommerce-login-nonce"]`,
		NonceField:         "woocommerce-login-nonce",
		UsernameField:      "username",
		PasswordField:      "password",
		AuthMarkerSelector: ".woocommerce-MyAccount-navigation",
		SessionCookie:      "wordpress_logged_in",
		Timeout:            cfg.Timeout,
		Delay:              cfg.Delay,
	}, fetch.DefaultRetryPolicy(), log)
	if err != nil {
		return nil, err
	}

	return &WooCommerceSource{
		cfg:        cfg,
		session:    session,
		products:   products,
		classifier: classify.New(),
		logger:     log,
	}, nil
}

// Probe checks the storefront answers; it does not log in.
func (s *WooCommerceSource) Probe(ctx context.Context) error {
	return s.session.TestConnection(ctx)
}

// Fetch implements Source: login first, then crawl each category's pages.
func (s *WooCommerceSource) Fetch(ctx context.Context, supplierID uuid.UUID, limit int) ([]Entry, error) {
	if err := s.session.Login(ctx); err != nil {
		return nil, err
	}

	var entries []Entry
	seen := make(map[string]bool)
	for _, category := range s.cfg.Categories {
		remaining := 0
		if limit > 0 {
			remaining = limit - len(entries)
			if remaining <= 0 {
				break
			}
		}

		cards, err := fetch.CrawlCategory(ctx, s.session, fetch.CrawlCategoryOptions[wooCard]{
			PagePattern:  "/product-category/" + strings.Trim(category, "/") + "/page/%d/",
			NextSelector: ".woocommerce-pagination .next, .load-more",
			IDOf: func(c wooCard) string {
				if c.SKU != "" {
					return c.SKU
				}
				return c.Link
			},
			MaxPages: s.cfg.MaxPages,
			Limit:    remaining,
		}, s.parseCards(category))
		if err != nil {
			return entries, err
		}

		for _, card := range cards {
			if card.SKU == "" || seen[card.SKU] {
				continue
			}
			seen[card.SKU] = true
			entries = append(entries, s.transform(ctx, supplierID, card))
		}
	}
	return entries, nil
}

// parseCards extracts product cards from one category page document.
func (s *WooCommerceSource) parseCards(category string) fetch.ParseFunc[wooCard] {
	return func(doc *goquery.Document) ([]wooCard, error) {
		var cards []wooCard
		doc.Find("ul.products li.product").Each(func(_ int, node *goquery.Selection) {
			card := wooCard{Category: category}
			card.Name = strings.TrimSpace(node.Find(".woocommerce-loop-product__title").Text())
			card.PriceText = strings.TrimSpace(node.Find(".price").First().Text())
			if sku, ok := node.Attr("data-sku"); ok {
				card.SKU = strings.TrimSpace(sku)
			} else {
				card.SKU = strings.TrimSpace(node.Find(".sku").First().Text())
			}
			if href, ok := node.Find("a.woocommerce-LoopProduct-link").Attr("href"); ok {
				card.Link = href
				if card.SKU == "" {
					card.SKU = skuFromLink(href)
				}
			}
			if src, ok := node.Find("img").First().Attr("src"); ok {
				card.ImageURL = src
			}
			cards = append(cards, card)
		})
		return cards, nil
	}
}

// transform maps one scraped card into a unified product entry. An
// ask-for-price listing keeps the last known price but forces stock to zero.
func (s *WooCommerceSource) transform(ctx context.Context, supplierID uuid.UUID, card wooCard) Entry {
	entry := Entry{SKU: card.SKU}

	if card.Name == "" {
		entry.Err = syncdomain.ParseError(card.SKU, fmt.Errorf("card has no product title"))
		return entry
	}

	product, err := catalog.NewProduct(supplierID, card.SKU, card.Name)
	if err != nil {
		entry.Err = syncdomain.TransformError(card.SKU, err)
		return entry
	}
	product.Category = card.Category

	price, err := currency.Parse(card.PriceText)
	if err != nil {
		entry.Err = syncdomain.ParseError(card.SKU, fmt.Errorf("price %q: %w", card.PriceText, err))
		return entry
	}

	if price.Absent {
		// No price on the portal: keep the previously known price for
		// alignment tooling, but the product cannot be sold, so stock is
		// forced to zero.
		retail, cost, selling := s.lastKnownPrices(ctx, supplierID, card.SKU)
		if err := product.SetPricing(cost, retail, selling); err != nil {
			entry.Err = syncdomain.TransformError(card.SKU, err)
			return entry
		}
		if err := product.SetStock(0, 0, 0); err != nil {
			entry.Err = syncdomain.TransformError(card.SKU, err)
			return entry
		}
	} else {
		retail := price.Amount
		cost := retail.Mul(decimal.NewFromInt(1).Sub(s.cfg.DiscountPct.Div(decimal.NewFromInt(100))))
		selling := pricing.DiscountAndRound(retail, s.cfg.DiscountPct)
		if err := product.SetPricing(cost, retail, selling); err != nil {
			entry.Err = syncdomain.TransformError(card.SKU, err)
			return entry
		}
		// The portal renders no stock figure; a priced listing is treated
		// as available at a single unit until the feed says otherwise.
		if err := product.SetStock(1, 0, 0); err != nil {
			entry.Err = syncdomain.TransformError(card.SKU, err)
			return entry
		}
	}

	if card.ImageURL != "" {
		if err := product.SetImages([]string{card.ImageURL}); err != nil {
			entry.Err = syncdomain.TransformError(card.SKU, err)
			return entry
		}
	}

	if err := product.ApplyClassification(s.classifier.Classify(card.Name, "", card.Category)); err != nil {
		entry.Err = syncdomain.TransformError(card.SKU, err)
		return entry
	}
	product.RefreshContentHash()

	entry.Product = product
	return entry
}

func (s *WooCommerceSource) lastKnownPrices(ctx context.Context, supplierID uuid.UUID, sku string) (retail, cost, selling decimal.Decimal) {
	if s.products == nil {
		return decimal.Zero, decimal.Zero, decimal.Zero
	}
	previous, err := s.products.FindBySupplierSKU(ctx, supplierID, sku)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero
	}
	return previous.RetailPrice, previous.CostPrice, previous.SellingPrice
}

// skuFromLink derives a stable SKU from the product permalink when the card
// carries no explicit SKU.
func skuFromLink(href string) string {
	trimmed := strings.Trim(href, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return trimmed
}
