package yandex

import (
	"context"
	"net/http"
	"strconv"

	"gomarketplace_hub/internal/core/adapters"
)

const (
	pageLimit      = 200
	priceChunkSize = 200
	maxPages       = 1000
)

// Adapter: Partner API Яндекс Маркета. Остатки через этот адаптер не читаются:
// StockFetcher не реализован намеренно.
type Adapter struct {
	client *adapters.BaseClient
	cfg    Config
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
	return &Adapter{
		client: adapters.NewBaseClient(adapters.TypeYandex, opts).SetHeader("Api-Key", cfg.APIKey),
		cfg:    cfg,
	}
}

func (a *Adapter) Type() adapters.Type {
	return adapters.TypeYandex
}

func (a *Adapter) TestConnection(ctx context.Context) (adapters.ConnectionResult, error) {
	return a.client.Ping(ctx, func(ctx context.Context) error {
		return a.client.Do(ctx, "getCampaigns", http.MethodGet, "/campaigns", nil, nil)
	})
}

func (a *Adapter) SearchProducts(ctx context.Context, query string, _ adapters.SearchOptions) ([]adapters.ExternalProduct, error) {
	return a.mappings(ctx, "searchProducts", mappingsRequest{OfferIDs: []string{query}}, 1)
}

// SyncProducts фильтрует по брендам на стороне Маркета (vendorNames).
func (a *Adapter) SyncProducts(ctx context.Context, filters adapters.SyncFilters) (*adapters.SyncResult, error) {
	products, err := a.mappings(ctx, "syncProducts", mappingsRequest{VendorNames: filters.Brands}, maxPages)
	if err != nil {
		return nil, err
	}
	return &adapters.SyncResult{Success: true, Products: products}, nil
}

func (a *Adapter) GetPrices(ctx context.Context, identifiers []string) ([]adapters.PriceQuote, error) {
	var out []adapters.PriceQuote
	for _, chunk := range adapters.Chunk(identifiers, priceChunkSize) {
		var resp pricesResponse
		if err := a.client.Do(ctx, "getPrices", http.MethodPost, a.businessPath("/offer-prices"),
			pricesRequest{OfferIDs: chunk}, &resp); err != nil {
			return nil, err
		}
		for _, o := range resp.Result.Offers {
			if o.Price == nil {
				continue
			}
			out = append(out, adapters.PriceQuote{ProductID: o.OfferID, Price: o.Price.Value})
		}
	}
	return out, nil
}

func (a *Adapter) GetWarehouses(ctx context.Context) ([]adapters.Warehouse, error) {
	var resp warehousesResponse
	if err := a.client.Do(ctx, "getWarehouses", http.MethodGet, a.businessPath("/warehouses"), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]adapters.Warehouse, 0, len(resp.Result.Warehouses))
	for _, w := range resp.Result.Warehouses {
		out = append(out, adapters.Warehouse{ID: strconv.FormatInt(w.ID, 10), Name: w.Name})
	}
	return out, nil
}

func (a *Adapter) mappings(ctx context.Context, op string, req mappingsRequest, pages int) ([]adapters.ExternalProduct, error) {
	var (
		out   []adapters.ExternalProduct
		token string
	)
	for page := 0; page < pages; page++ {
		params := map[string]string{"limit": strconv.Itoa(pageLimit), "page_token": token}

		var resp mappingsResponse
		if err := a.client.Do(ctx, op, http.MethodPost, a.businessPath("/offer-mappings"), req, &resp,
			adapters.WithQuery(params)); err != nil {
			return nil, err
		}
		for _, m := range resp.Result.OfferMappings {
			out = append(out, m.Offer.toExternal())
		}

		token = resp.Result.Paging.NextPageToken
		if token == "" {
			break
		}
	}
	return out, nil
}

func (a *Adapter) businessPath(suffix string) string {
	return "/businesses/" + strconv.FormatInt(a.cfg.BusinessID, 10) + suffix
}
