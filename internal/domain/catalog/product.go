package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AudicoSA/audico-sync/internal/domain/shared"
)

// Product is the unified product record every supplier adapter writes into.
// It is the aggregate root for catalog operations. Identity is the
// (SupplierID, SupplierSKU) pair; no other field may be used to deduplicate.
type Product struct {
	shared.BaseEntity
	Name        string `gorm:"type:varchar(300);not null"`
	SKU         string `gorm:"type:varchar(100);not null;index"`
	Model       string `gorm:"type:varchar(100)"`
	Brand       string `gorm:"type:varchar(100);index"`
	Category    string `gorm:"type:varchar(150);index"`
	Description string `gorm:"type:text"`

	CostPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RetailPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MarginPercent decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`

	StockTotal int `gorm:"not null;default:0"`
	StockCPT   int `gorm:"not null;default:0"`
	StockJHB   int `gorm:"not null;default:0"`
	StockDBN   int `gorm:"not null;default:0"`

	Images         string `gorm:"type:jsonb;default:'[]'"`
	Specifications string `gorm:"type:jsonb;default:'{}'"`

	UseCase                 UseCase      `gorm:"type:varchar(30)"`
	ScenarioTags            string       `gorm:"type:jsonb;default:'[]'"`
	MountingType            MountingType `gorm:"type:varchar(20)"`
	ExcludeFromConsultation bool         `gorm:"not null;default:false"`

	SupplierID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_supplier_sku,priority:1"`
	SupplierSKU string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_product_supplier_sku,priority:2"`

	Active      bool   `gorm:"not null;default:true;index"`
	ContentHash string `gorm:"type:varchar(64);not null;default:''"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a unified product for a supplier-native SKU.
func NewProduct(supplierID uuid.UUID, supplierSKU, name string) (*Product, error) {
	supplierSKU = strings.TrimSpace(supplierSKU)
	name = strings.TrimSpace(name)
	if supplierID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUPPLIER", "Supplier ID is required")
	}
	if supplierSKU == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "Supplier SKU cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}

	return &Product{
		BaseEntity:     shared.NewBaseEntity(),
		Name:           name,
		SKU:            supplierSKU,
		SupplierID:     supplierID,
		SupplierSKU:    supplierSKU,
		CostPrice:      decimal.Zero,
		RetailPrice:    decimal.Zero,
		SellingPrice:   decimal.Zero,
		MarginPercent:  decimal.Zero,
		Images:         "[]",
		Specifications: "{}",
		ScenarioTags:   "[]",
		Active:         true,
	}, nil
}

// SetPricing sets cost and selling price and derives the margin percentage.
// Margin is always (selling-cost)/cost*100, never hand-entered, so it stays
// consistent with whichever pricing formula produced the selling price.
func (p *Product) SetPricing(cost, retail, selling decimal.Decimal) error {
	if cost.IsNegative() || retail.IsNegative() || selling.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Prices cannot be negative")
	}
	p.CostPrice = cost
	p.RetailPrice = retail
	p.SellingPrice = selling
	if cost.IsPositive() {
		p.MarginPercent = selling.Sub(cost).Div(cost).Mul(decimal.NewFromInt(100)).Round(4)
	} else {
		p.MarginPercent = decimal.Zero
	}
	p.Touch()
	return nil
}

// SetStock sets the regional stock counts. Total stock is always the sum of
// the regional counts; it is never accepted from the caller.
func (p *Product) SetStock(cpt, jhb, dbn int) error {
	if cpt < 0 || jhb < 0 || dbn < 0 {
		return shared.NewDomainError("INVALID_STOCK", "Stock counts cannot be negative")
	}
	p.StockCPT = cpt
	p.StockJHB = jhb
	p.StockDBN = dbn
	p.StockTotal = cpt + jhb + dbn
	p.Active = p.StockTotal > 0
	p.Touch()
	return nil
}

// StockSum returns the sum of the regional stock counts.
func (p *Product) StockSum() int {
	return p.StockCPT + p.StockJHB + p.StockDBN
}

// SetImages stores the image URL list as JSON.
func (p *Product) SetImages(urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	p.Images = string(data)
	p.Touch()
	return nil
}

// ImageList decodes the stored image URL list.
func (p *Product) ImageList() []string {
	var urls []string
	if err := json.Unmarshal([]byte(p.Images), &urls); err != nil {
		return nil
	}
	return urls
}

// SetSpecifications stores the free-form specification map as JSON.
func (p *Product) SetSpecifications(specs map[string]string) error {
	if specs == nil {
		specs = map[string]string{}
	}
	data, err := json.Marshal(specs)
	if err != nil {
		return fmt.Errorf("encode specifications: %w", err)
	}
	p.Specifications = string(data)
	p.Touch()
	return nil
}

// SpecificationMap decodes the stored specification map.
func (p *Product) SpecificationMap() map[string]string {
	specs := map[string]string{}
	if err := json.Unmarshal([]byte(p.Specifications), &specs); err != nil {
		return map[string]string{}
	}
	return specs
}

// ApplyClassification records the classifier outputs.
func (p *Product) ApplyClassification(c Classification) error {
	tags := c.ScenarioTags
	if tags == nil {
		tags = []ScenarioTag{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode scenario tags: %w", err)
	}
	p.UseCase = c.UseCase
	p.ScenarioTags = string(data)
	p.MountingType = c.MountingType
	p.ExcludeFromConsultation = c.Exclude
	p.Touch()
	return nil
}

// ScenarioTagList decodes the stored scenario tags.
func (p *Product) ScenarioTagList() []ScenarioTag {
	var tags []ScenarioTag
	if err := json.Unmarshal([]byte(p.ScenarioTags), &tags); err != nil {
		return nil
	}
	return tags
}

// Deactivate soft-deactivates the product. Products are never hard-deleted;
// this is how end-of-life upstream listings are recorded.
func (p *Product) Deactivate() {
	p.Active = false
	p.Touch()
}

// RefreshContentHash recomputes the change-detection hash over every field a
// supplier feed can influence. Two syncs of identical upstream content
// produce identical hashes, which is how unchanged records are counted
// without a field-by-field comparison in SQL.
func (p *Product) RefreshContentHash() {
	specs := p.SpecificationMap()
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteByte(0)
	b.WriteString(p.Model)
	b.WriteByte(0)
	b.WriteString(p.Brand)
	b.WriteByte(0)
	b.WriteString(p.Category)
	b.WriteByte(0)
	b.WriteString(p.Description)
	b.WriteByte(0)
	b.WriteString(p.CostPrice.String())
	b.WriteByte(0)
	b.WriteString(p.RetailPrice.String())
	b.WriteByte(0)
	b.WriteString(p.SellingPrice.String())
	b.WriteByte(0)
	fmt.Fprintf(&b, "%d|%d|%d|%d", p.StockTotal, p.StockCPT, p.StockJHB, p.StockDBN)
	b.WriteByte(0)
	b.WriteString(p.Images)
	b.WriteByte(0)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(1)
		b.WriteString(specs[k])
	}
	b.WriteByte(0)
	b.WriteString(string(p.UseCase))
	b.WriteByte(0)
	b.WriteString(p.ScenarioTags)
	b.WriteByte(0)
	b.WriteString(string(p.MountingType))
	fmt.Fprintf(&b, "|%t|%t", p.ExcludeFromConsultation, p.Active)

	sum := sha256.Sum256([]byte(b.String()))
	p.ContentHash = hex.EncodeToString(sum[:])
}

// LastUpdatedWithin reports whether the record changed within d of now.
func (p *Product) LastUpdatedWithin(d time.Duration) bool {
	return time.Since(p.UpdatedAt) <= d
}
