package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SourceTypeSupplier = "supplier"
	PriceTypeSupplier  = "supplier"
)

// Product: товар внутреннего каталога (core.products).
// Внутри компании товар однозначно определяется external_id, а при его отсутствии - sku.
type Product struct {
	ID          int64           `json:"id"`
	CompanyID   int64           `json:"company_id"`
	SupplierID  *int64          `json:"supplier_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	SKU         string          `json:"sku"`
	Barcode     string          `json:"barcode"`
	BrandID     *int64          `json:"brand_id,omitempty"`
	ExternalID  *string         `json:"external_id,omitempty"`
	SourceType  string          `json:"source_type"`
	Attributes  json.RawMessage `json:"attributes"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ProductImage struct {
	ProductID int64  `json:"product_id"`
	URL       string `json:"url"`
	Position  int    `json:"position"`
	IsMain    bool   `json:"is_main"`
}

type Price struct {
	ProductID int64           `json:"product_id"`
	PriceType string          `json:"price_type"`
	Value     decimal.Decimal `json:"value"`
	Currency  string          `json:"currency"`
}
