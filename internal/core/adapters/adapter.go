package adapters

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ExternalProduct: нормализованная запись товара от адаптера. Не сохраняется как есть,
// а сводится с внутренним каталогом движком импорта.
type ExternalProduct struct {
	ExternalID  string           `json:"externalId"`
	SKU         string           `json:"sku"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Brand       string           `json:"brand"`
	Barcode     string           `json:"barcode"`
	Category    string           `json:"category,omitempty"`
	Attributes  map[string]any   `json:"attributes,omitempty"`
	Images      []string         `json:"images,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
}

type ConnectionResult struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	ResponseTime time.Duration `json:"responseTime,omitempty"`
}

type SearchOptions struct {
	WarehouseID string
	Limit       int
}

type SyncFilters struct {
	Brands         []string
	Categories     []string
	WarehouseIDs   []string
	UpdateExisting bool
}

type SyncResult struct {
	Success  bool              `json:"success"`
	Products []ExternalProduct `json:"products"`
}

type PriceQuote struct {
	ProductID string          `json:"productId"`
	Price     decimal.Decimal `json:"price"`
}

type StockLevel struct {
	ProductID   string `json:"productId"`
	WarehouseID string `json:"warehouseId,omitempty"`
	Available   int    `json:"available"`
}

type Warehouse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Adapter: минимальный контракт любого поставщика или маркетплейса.
// Остальные возможности описаны отдельными интерфейсами и проверяются через хелперы ниже.
type Adapter interface {
	Type() Type
	TestConnection(ctx context.Context) (ConnectionResult, error)
}

type ProductSearcher interface {
	SearchProducts(ctx context.Context, query string, opts SearchOptions) ([]ExternalProduct, error)
}

type ProductSyncer interface {
	SyncProducts(ctx context.Context, filters SyncFilters) (*SyncResult, error)
}

type PriceFetcher interface {
	GetPrices(ctx context.Context, identifiers []string) ([]PriceQuote, error)
}

type StockFetcher interface {
	GetStockLevels(ctx context.Context, identifiers []string, warehouseID string) ([]StockLevel, error)
}

type WarehouseLister interface {
	GetWarehouses(ctx context.Context) ([]Warehouse, error)
}

type ProductDetailer interface {
	GetProductDetails(ctx context.Context, identifier string) (*ExternalProduct, error)
}

const (
	CapabilitySearch    = "searchProducts"
	CapabilitySync      = "syncProducts"
	CapabilityPrices    = "getPrices"
	CapabilityStocks    = "getStockLevels"
	CapabilityWarehouse = "getWarehouses"
	CapabilityDetails   = "getProductDetails"
)

func Searcher(a Adapter) (ProductSearcher, error) {
	if s, ok := a.(ProductSearcher); ok {
		return s, nil
	}
	return nil, &UnsupportedOperationError{Capability: CapabilitySearch, Adapter: a.Type()}
}

func Syncer(a Adapter) (ProductSyncer, error) {
	if s, ok := a.(ProductSyncer); ok {
		return s, nil
	}
	return nil, &UnsupportedOperationError{Capability: CapabilitySync, Adapter: a.Type()}
}

func Prices(a Adapter) (PriceFetcher, error) {
	if s, ok := a.(PriceFetcher); ok {
		return s, nil
	}
	return nil, &UnsupportedOperationError{Capability: CapabilityPrices, Adapter: a.Type()}
}

func Stocks(a Adapter) (StockFetcher, error) {
	if s, ok := a.(StockFetcher); ok {
		return s, nil
	}
	return nil, &UnsupportedOperationError{Capability: CapabilityStocks, Adapter: a.Type()}
}

func Warehouses(a Adapter) (WarehouseLister, error) {
	if s, ok := a.(WarehouseLister); ok {
		return s, nil
	}
	return nil, &UnsupportedOperationError{Capability: CapabilityWarehouse, Adapter: a.Type()}
}

func Details(a Adapter) (ProductDetailer, error) {
	if s, ok := a.(ProductDetailer); ok {
		return s, nil
	}
	return nil, &UnsupportedOperationError{Capability: CapabilityDetails, Adapter: a.Type()}
}
