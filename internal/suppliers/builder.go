package suppliers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/AudicoSA/audico-sync/internal/domain/shared"
	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/config"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/pricing"
)

// Built is one configured supplier adapter ready for registration. Close
// releases any resources the source holds; for most kinds it is a no-op,
// for the browser-backed kind it shuts the browser down.
type Built struct {
	Code       string
	Name       string
	SourceType syncdomain.SourceType
	Adapter    *Base
	closer     func()
}

// Close releases the adapter's source resources.
func (b Built) Close() {
	if b.closer != nil {
		b.closer()
	}
}

// BuildFromConfig constructs an adapter for every enabled supplier in the
// configuration, in code order. Global sync settings fill any per-supplier
// knob the block leaves unset.
func BuildFromConfig(cfg *config.Config, deps Deps) ([]Built, error) {
	codes := make([]string, 0, len(cfg.Suppliers))
	for code := range cfg.Suppliers {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var built []Built
	for _, code := range codes {
		sc := cfg.Suppliers[code]
		if !sc.Enabled {
			continue
		}
		b, err := buildOne(code, sc, cfg, deps)
		if err != nil {
			for _, prev := range built {
				prev.Close()
			}
			return nil, fmt.Errorf("supplier %s: %w", code, err)
		}
		built = append(built, b)
	}
	return built, nil
}

func buildOne(code string, sc config.SupplierConfig, cfg *config.Config, deps Deps) (Built, error) {
	pageSize := sc.PageSize
	if pageSize <= 0 {
		pageSize = cfg.Sync.PageSize
	}

	switch sc.Kind {
	case "restapi":
		adapter := NewRESTAPIAdapter(code, RESTAPIConfig{
			BaseURL:       sc.BaseURL,
			APIKey:        sc.APIKey,
			PageSize:      pageSize,
			MaxPages:      cfg.Sync.MaxPages,
			Delay:         cfg.Sync.PolitenessDelay,
			Timeout:       cfg.Sync.RequestTimeout,
			Formula:       pricing.Formula(sc.Formula),
			MarkupPercent: decimal.NewFromFloat(sc.MarkupPercent),
		}, deps)
		return Built{Code: code, Name: sc.Name, SourceType: syncdomain.SourceTypeFeed, Adapter: adapter}, nil

	case "xmlfeed":
		adapter := NewXMLFeedAdapter(code, XMLFeedConfig{
			FeedURL:       sc.FeedURL,
			Timeout:       cfg.Sync.RequestTimeout,
			Formula:       pricing.Formula(sc.Formula),
			MarkupPercent: decimal.NewFromFloat(sc.MarkupPercent),
		}, deps)
		return Built{Code: code, Name: sc.Name, SourceType: syncdomain.SourceTypeFeed, Adapter: adapter}, nil

	case "shopify":
		pct := sc.RetailMinusPct
		if pct <= 0 {
			// Storefront listings typically carry a 40% dealer margin.
			pct = 0.40
		}
		adapter := NewShopifyAdapter(code, ShopifyConfig{
			BaseURL:         sc.BaseURL,
			CollectionPaths: sc.Paths,
			PageSize:        pageSize,
			MaxPages:        cfg.Sync.MaxPages,
			Delay:           cfg.Sync.PolitenessDelay,
			Timeout:         cfg.Sync.RequestTimeout,
			RetailMinusPct:  decimal.NewFromFloat(pct),
		}, deps)
		return Built{Code: code, Name: sc.Name, SourceType: syncdomain.SourceTypeFeed, Adapter: adapter}, nil

	case "woocommerce":
		pct := sc.DiscountPct
		if pct <= 0 {
			pct = 30
		}
		adapter, err := NewWooCommerceAdapter(code, WooCommerceConfig{
			BaseURL:     sc.BaseURL,
			LoginPath:   sc.LoginPath,
			Username:    sc.Username,
			Password:    sc.Password,
			Categories:  sc.Categories,
			MaxPages:    cfg.Sync.MaxPages,
			Delay:       cfg.Sync.PolitenessDelay,
			Timeout:     cfg.Sync.RequestTimeout,
			DiscountPct: decimal.NewFromFloat(pct),
		}, deps)
		if err != nil {
			return Built{}, err
		}
		return Built{Code: code, Name: sc.Name, SourceType: syncdomain.SourceTypeScrape, Adapter: adapter}, nil

	case "stealth":
		pct := sc.RetailMinusPct
		if pct <= 0 {
			pct = 0.35
		}
		adapter, source, err := NewStealthStoreAdapter(code, StealthStoreConfig{
			BaseURL:        sc.BaseURL,
			PagePaths:      sc.Paths,
			ProfileDir:     filepath.Join(cfg.Browser.UserDataDir, code),
			Headless:       cfg.Browser.Headless,
			Timeout:        cfg.Browser.NavTimeout,
			Delay:          cfg.Sync.PolitenessDelay,
			IDPattern:      sc.IDPattern,
			APITemplate:    sc.APITemplate,
			RetailMinusPct: decimal.NewFromFloat(pct),
		}, deps)
		if err != nil {
			return Built{}, err
		}
		return Built{Code: code, Name: sc.Name, SourceType: syncdomain.SourceTypeScrape, Adapter: adapter, closer: source.Close}, nil

	default:
		return Built{}, fmt.Errorf("unknown adapter kind %q", sc.Kind)
	}
}

// EnsureSupplier makes sure a supplier row exists for the code, creating it
// on first start. An existing row is left untouched so operator edits to the
// display name survive restarts.
func EnsureSupplier(ctx context.Context, repo syncdomain.SupplierRepository, code, name string, sourceType syncdomain.SourceType) (*syncdomain.Supplier, error) {
	existing, err := repo.FindByCode(ctx, code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	supplier, err := syncdomain.NewSupplier(code, name, sourceType)
	if err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}
