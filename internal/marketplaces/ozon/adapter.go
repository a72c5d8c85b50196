package ozon

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"gomarketplace_hub/internal/core/adapters"
)

const (
	pageLimit     = 1000
	infoChunkSize = 1000
	maxPages      = 1000
	visibilityAll = "ALL"
)

// Adapter: Seller API Ozon. Идентификатор товара для цен и остатков - offer_id (артикул продавца).
type Adapter struct {
	client *adapters.BaseClient
}

func NewConstructor(opts adapters.ClientOptions) adapters.Constructor {
	return func(creds adapters.Credentials) (adapters.Adapter, error) {
		var cfg Config
		if err := adapters.DecodeConfig(creds, &cfg); err != nil {
			return nil, err
		}
		return New(cfg, opts), nil
	}
}

func New(cfg Config, opts adapters.ClientOptions) *Adapter {
	switch {
	case cfg.BaseURL != "":
		opts.BaseURL = cfg.BaseURL
	case opts.BaseURL == "":
		opts.BaseURL = defaultBaseURL
	}

	client := adapters.NewBaseClient(adapters.TypeOzon, opts).
		SetHeader("Client-Id", cfg.ClientID).
		SetHeader("Api-Key", cfg.APIKey)
	return &Adapter{client: client}
}

func (a *Adapter) Type() adapters.Type {
	return adapters.TypeOzon
}

func (a *Adapter) TestConnection(ctx context.Context) (adapters.ConnectionResult, error) {
	return a.client.Ping(ctx, func(ctx context.Context) error {
		_, err := a.GetWarehouses(ctx)
		return err
	})
}

func (a *Adapter) SearchProducts(ctx context.Context, query string, _ adapters.SearchOptions) ([]adapters.ExternalProduct, error) {
	return a.info(ctx, "searchProducts", infoRequest{OfferID: []string{query}})
}

func (a *Adapter) GetProductDetails(ctx context.Context, identifier string) (*adapters.ExternalProduct, error) {
	items, err := a.info(ctx, "getProductDetails", infoRequest{OfferID: []string{identifier}})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &adapters.ConnectionError{Adapter: adapters.TypeOzon, Op: "getProductDetails",
			StatusCode: http.StatusNotFound, Message: fmt.Sprintf("product %s not found", identifier)}
	}
	return &items[0], nil
}

// SyncProducts перебирает список товаров по last_id и догружает карточки пачками.
// Бренда в карточке нет, поэтому фильтр по брендам здесь не применяется.
func (a *Adapter) SyncProducts(ctx context.Context, _ adapters.SyncFilters) (*adapters.SyncResult, error) {
	req := listRequest{Filter: visibilityFilter{Visibility: visibilityAll}, Limit: pageLimit}

	var ids []int64
	for page := 0; page < maxPages; page++ {
		var resp listResponse
		if err := a.client.Do(ctx, "listProducts", http.MethodPost, "/v3/product/list", req, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Result.Items {
			ids = append(ids, item.ProductID)
		}
		if len(resp.Result.Items) < pageLimit || resp.Result.LastID == "" {
			break
		}
		req.LastID = resp.Result.LastID
	}

	result := &adapters.SyncResult{Success: true}
	for start := 0; start < len(ids); start += infoChunkSize {
		end := min(start+infoChunkSize, len(ids))
		items, err := a.info(ctx, "syncProducts", infoRequest{ProductID: ids[start:end]})
		if err != nil {
			return nil, err
		}
		result.Products = append(result.Products, items...)
	}
	return result, nil
}

// GetPrices возвращает цену с учётом акций Ozon, если она есть.
func (a *Adapter) GetPrices(ctx context.Context, identifiers []string) ([]adapters.PriceQuote, error) {
	var out []adapters.PriceQuote
	for _, chunk := range adapters.Chunk(identifiers, pageLimit) {
		req := pricesRequest{Filter: visibilityFilter{OfferID: chunk, Visibility: visibilityAll}, Limit: pageLimit}
		var resp pricesResponse
		if err := a.client.Do(ctx, "getPrices", http.MethodPost, "/v5/product/info/prices", req, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			price := item.Price.MarketingPrice
			if price.IsZero() {
				price = item.Price.Price
			}
			out = append(out, adapters.PriceQuote{ProductID: item.OfferID, Price: price})
		}
	}
	return out, nil
}

// GetStockLevels: warehouseID - тип остатка ("fbo", "fbs"); пустое значение суммирует все типы.
func (a *Adapter) GetStockLevels(ctx context.Context, identifiers []string, warehouseID string) ([]adapters.StockLevel, error) {
	var out []adapters.StockLevel
	for _, chunk := range adapters.Chunk(identifiers, pageLimit) {
		req := stocksRequest{Filter: visibilityFilter{OfferID: chunk, Visibility: visibilityAll}, Limit: pageLimit}
		var resp stocksResponse
		if err := a.client.Do(ctx, "getStockLevels", http.MethodPost, "/v4/product/info/stocks", req, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			available := 0
			for _, s := range item.Stocks {
				if warehouseID == "" || s.Type == warehouseID {
					available += s.Present - s.Reserved
				}
			}
			out = append(out, adapters.StockLevel{ProductID: item.OfferID, WarehouseID: warehouseID, Available: available})
		}
	}
	return out, nil
}

func (a *Adapter) GetWarehouses(ctx context.Context) ([]adapters.Warehouse, error) {
	var resp warehousesResponse
	if err := a.client.Do(ctx, "getWarehouses", http.MethodPost, "/v1/warehouse/list", struct{}{}, &resp); err != nil {
		return nil, err
	}

	out := make([]adapters.Warehouse, 0, len(resp.Result))
	for _, w := range resp.Result {
		out = append(out, adapters.Warehouse{ID: strconv.FormatInt(w.WarehouseID, 10), Name: w.Name})
	}
	return out, nil
}

func (a *Adapter) info(ctx context.Context, op string, req infoRequest) ([]adapters.ExternalProduct, error) {
	var resp infoResponse
	if err := a.client.Do(ctx, op, http.MethodPost, "/v3/product/info/list", req, &resp); err != nil {
		return nil, err
	}

	out := make([]adapters.ExternalProduct, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, item.toExternal())
	}
	return out, nil
}
