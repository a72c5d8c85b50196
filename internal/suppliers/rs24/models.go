package rs24

import (
	"github.com/shopspring/decimal"
	"gomarketplace_hub/internal/core/adapters"
)

// Config: учётные данные RS24 после расшифровки.
type Config struct {
	Login       string `json:"login" validate:"required"`
	Password    string `json:"password" validate:"required"`
	BaseURL     string `json:"base_url" validate:"omitempty,url"`
	WarehouseID string `json:"warehouse_id"`
	Rows        int    `json:"rows" validate:"gte=0,lte=1000"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

type warehousesResponse struct {
	Stocks []struct {
		ID   string `json:"ORGANIZATION_ID"`
		Name string `json:"NAME"`
	} `json:"Stocks"`
}

type Pager struct {
	Page  int `json:"page"`
	Rows  int `json:"rows"`
	Total int `json:"total"`
}

type priceInfo struct {
	Personal *decimal.Decimal `json:"Personal"`
	Retail   *decimal.Decimal `json:"Retail"`
}

func (p *priceInfo) value() *decimal.Decimal {
	if p == nil {
		return nil
	}
	if p.Personal != nil {
		return p.Personal
	}
	return p.Retail
}

// Item: позиция каталога RS24 в том виде, в котором её отдаёт API.
type Item struct {
	Code        string         `json:"CODE"`
	VendorCode  string         `json:"VENDOR_CODE"`
	Name        string         `json:"NAME"`
	Brand       string         `json:"BRAND"`
	Barcode     string         `json:"EAN"`
	Description string         `json:"DESCRIPTION"`
	Category    string         `json:"CATEGORY"`
	Images      []string       `json:"IMAGES"`
	Price       *priceInfo     `json:"PRICE"`
	Specs       map[string]any `json:"SPECS"`
}

func (i Item) toExternal() adapters.ExternalProduct {
	sku := i.VendorCode
	if sku == "" {
		sku = i.Code
	}
	return adapters.ExternalProduct{
		ExternalID:  i.Code,
		SKU:         sku,
		Name:        i.Name,
		Description: i.Description,
		Brand:       i.Brand,
		Barcode:     i.Barcode,
		Category:    i.Category,
		Attributes:  i.Specs,
		Images:      i.Images,
		Price:       i.Price.value(),
	}
}

type itemsResponse struct {
	Items []Item `json:"items"`
	Pager Pager  `json:"pager"`
}

// ProductsQuery: параметры постраничного обхода каталога склада.
type ProductsQuery struct {
	WarehouseID string
	Category    string
	Page        int
	Rows        int
}

type ProductsPage struct {
	Items []adapters.ExternalProduct
	Pager Pager
}

// StocksQuery: параметры выгрузки остатков склада целиком.
type StocksQuery struct {
	Page         int
	Rows         int
	Category     string
	PartnerStock bool
}

type StockRow struct {
	Code      string `json:"CODE"`
	Residue   int    `json:"RESIDUE"`
	UOM       string `json:"UOM,omitempty"`
	Warehouse string `json:"WAREHOUSE,omitempty"`
}

type StocksPage struct {
	Items []StockRow `json:"items"`
	Pager Pager      `json:"pager"`
}

type codesRequest struct {
	Codes []string `json:"codes"`
}

type pricesResponse struct {
	Items []struct {
		Code  string     `json:"CODE"`
		Price *priceInfo `json:"PRICE"`
	} `json:"items"`
}

type residueResponse struct {
	Items []StockRow `json:"items"`
}
