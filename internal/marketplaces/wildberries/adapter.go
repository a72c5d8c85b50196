package wildberries

import (
	"context"
	"net/http"
	"slices"
	"strconv"

	"gomarketplace_hub/internal/core/adapters"
)

const (
	cardsPageLimit = 100
	goodsChunkSize = 1000
	skusChunkSize  = 1000
	maxCardPages   = 10000
)

// Adapter: кабинет продавца Wildberries. У WB несколько API на разных хостах,
// поэтому клиентов тоже несколько; лимиты у каждого хоста свои.
type Adapter struct {
	content     *adapters.BaseClient
	prices      *adapters.BaseClient
	marketplace *adapters.BaseClient
	common      *adapters.BaseClient
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
	client := func(defaultURL string) *adapters.BaseClient {
		o := opts
		// BaseURL из настроек сервиса относится только к content API,
		// BaseURL из учётных данных подменяет все хосты сразу.
		switch {
		case cfg.BaseURL != "":
			o.BaseURL = cfg.BaseURL
		case o.BaseURL == "" || defaultURL != defaultContentURL:
			o.BaseURL = defaultURL
		}
		return adapters.NewBaseClient(adapters.TypeWildberries, o).SetHeader("Authorization", "Bearer "+cfg.Token)
	}

	return &Adapter{
		content:     client(defaultContentURL),
		prices:      client(defaultPricesURL),
		marketplace: client(defaultMarketplaceURL),
		common:      client(defaultCommonURL),
	}
}

func (a *Adapter) Type() adapters.Type {
	return adapters.TypeWildberries
}

func (a *Adapter) TestConnection(ctx context.Context) (adapters.ConnectionResult, error) {
	return a.common.Ping(ctx, func(ctx context.Context) error {
		return a.common.Do(ctx, "ping", http.MethodGet, "/ping", nil, nil)
	})
}

// SearchProducts ищет по артикулу продавца, артикулу WB или баркоду.
func (a *Adapter) SearchProducts(ctx context.Context, query string, opts adapters.SearchOptions) ([]adapters.ExternalProduct, error) {
	limit := opts.Limit
	if limit <= 0 || limit > cardsPageLimit {
		limit = cardsPageLimit
	}

	var req cardsRequest
	req.Settings.Cursor = Cursor{Limit: limit}
	req.Settings.Filter = filter{WithPhoto: -1, TextSearch: query}

	var resp cardsResponse
	if err := a.content.Do(ctx, "searchProducts", http.MethodPost, "/content/v2/get/cards/list", req, &resp); err != nil {
		return nil, err
	}

	out := make([]adapters.ExternalProduct, 0, len(resp.Cards))
	for _, c := range resp.Cards {
		out = append(out, c.toExternal())
	}
	return out, nil
}

// SyncProducts выгружает все карточки по курсору.
func (a *Adapter) SyncProducts(ctx context.Context, filters adapters.SyncFilters) (*adapters.SyncResult, error) {
	result := &adapters.SyncResult{Success: true}
	err := a.walkCards(ctx, "syncProducts", filter{WithPhoto: -1, Brands: filters.Brands}, func(c Card) bool {
		result.Products = append(result.Products, c.toExternal())
		return true
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// walkCards листает карточки по курсору, пока fn возвращает true.
// Последняя страница - та, где total меньше лимита.
func (a *Adapter) walkCards(ctx context.Context, op string, f filter, fn func(Card) bool) error {
	var req cardsRequest
	req.Settings.Cursor = Cursor{Limit: cardsPageLimit}
	req.Settings.Filter = f

	for page := 0; page < maxCardPages; page++ {
		var resp cardsResponse
		if err := a.content.Do(ctx, op, http.MethodPost, "/content/v2/get/cards/list", req, &resp); err != nil {
			return err
		}
		for _, c := range resp.Cards {
			if !fn(c) {
				return nil
			}
		}
		if resp.Cursor.Total < cardsPageLimit || len(resp.Cards) == 0 {
			return nil
		}
		req.Settings.Cursor.UpdatedAt = resp.Cursor.UpdatedAt
		req.Settings.Cursor.NmID = resp.Cursor.NmID
	}
	return nil
}

// GetPrices принимает nmID; цена - со скидкой продавца, если она задана.
func (a *Adapter) GetPrices(ctx context.Context, identifiers []string) ([]adapters.PriceQuote, error) {
	nmIDs, err := parseNmIDs(identifiers)
	if err != nil {
		return nil, err
	}

	var out []adapters.PriceQuote
	for start := 0; start < len(nmIDs); start += goodsChunkSize {
		end := min(start+goodsChunkSize, len(nmIDs))

		var resp goodsResponse
		err := a.prices.Do(ctx, "getPrices", http.MethodPost, "/api/v2/list/goods/filter",
			goodsRequest{NmList: nmIDs[start:end]}, &resp)
		if err != nil {
			return nil, err
		}
		for _, g := range resp.Data.ListGoods {
			if len(g.Sizes) == 0 {
				continue
			}
			price := g.Sizes[0].DiscountedPrice
			if price.IsZero() {
				price = g.Sizes[0].Price
			}
			out = append(out, adapters.PriceQuote{ProductID: strconv.Itoa(g.NmID), Price: price})
		}
	}
	return out, nil
}

// GetStockLevels принимает nmID. Остатки WB ведутся по баркодам размеров, поэтому
// баркоды берутся из карточек, а остатки всех размеров суммируются на nmID.
func (a *Adapter) GetStockLevels(ctx context.Context, identifiers []string, warehouseID string) ([]adapters.StockLevel, error) {
	nmIDs, err := parseNmIDs(identifiers)
	if err != nil {
		return nil, err
	}
	owners, err := a.barcodeOwners(ctx, nmIDs)
	if err != nil {
		return nil, err
	}
	if len(owners) == 0 {
		return nil, nil
	}

	barcodes := make([]string, 0, len(owners))
	for b := range owners {
		barcodes = append(barcodes, b)
	}
	slices.Sort(barcodes)

	totals := make(map[int]int)
	for _, chunk := range adapters.Chunk(barcodes, skusChunkSize) {
		var resp stocksResponse
		err := a.marketplace.Do(ctx, "getStockLevels", http.MethodPost, "/api/v3/stocks/"+warehouseID,
			stocksRequest{Skus: chunk}, &resp)
		if err != nil {
			return nil, err
		}
		for _, s := range resp.Stocks {
			if nm, ok := owners[s.Sku]; ok {
				totals[nm] += s.Amount
			}
		}
	}

	out := make([]adapters.StockLevel, 0, len(totals))
	for _, nm := range nmIDs {
		n, ok := totals[nm]
		if !ok {
			continue
		}
		delete(totals, nm)
		out = append(out, adapters.StockLevel{ProductID: strconv.Itoa(nm), WarehouseID: warehouseID, Available: n})
	}
	return out, nil
}

// barcodeOwners: баркод -> nmID для запрошенных карточек. Обход останавливается,
// как только найдены все.
func (a *Adapter) barcodeOwners(ctx context.Context, nmIDs []int) (map[string]int, error) {
	pending := make(map[int]struct{}, len(nmIDs))
	for _, nm := range nmIDs {
		pending[nm] = struct{}{}
	}
	owners := make(map[string]int)
	if len(pending) == 0 {
		return owners, nil
	}

	err := a.walkCards(ctx, "getBarcodes", filter{WithPhoto: -1}, func(c Card) bool {
		if _, ok := pending[c.NmID]; !ok {
			return true
		}
		delete(pending, c.NmID)
		for _, sz := range c.Sizes {
			for _, sku := range sz.Skus {
				owners[sku] = c.NmID
			}
		}
		return len(pending) > 0
	})
	if err != nil {
		return nil, err
	}
	return owners, nil
}

func (a *Adapter) GetWarehouses(ctx context.Context) ([]adapters.Warehouse, error) {
	var resp []warehouse
	if err := a.marketplace.Do(ctx, "getWarehouses", http.MethodGet, "/api/v3/warehouses", nil, &resp); err != nil {
		return nil, err
	}

	out := make([]adapters.Warehouse, 0, len(resp))
	for _, w := range resp {
		out = append(out, adapters.Warehouse{ID: strconv.FormatInt(w.ID, 10), Name: w.Name})
	}
	return out, nil
}
