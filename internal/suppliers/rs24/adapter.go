package rs24

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gomarketplace_hub/internal/core/adapters"
	"gomarketplace_hub/internal/core/brands"
)

const (
	defaultRows     = 200
	priceChunkSize  = 100
	stockChunkSize  = 50
	maxPages        = 1000
	defaultTokenTTL = time.Hour
)

// Adapter реализует доступ к API RS24: склады, каталог, цены и остатки.
// Сессия (логин/пароль → токен) скрыта внутри и поднимается по требованию.
type Adapter struct {
	client *adapters.BaseClient
	cfg    Config

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewConstructor возвращает конструктор для реестра. opts - значения по умолчанию из конфигурации
// приложения; base_url из учётных данных имеет приоритет.
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
	if cfg.BaseURL != "" {
		opts.BaseURL = cfg.BaseURL
	}
	if cfg.Rows == 0 {
		cfg.Rows = defaultRows
	}
	return &Adapter{
		client: adapters.NewBaseClient(adapters.TypeRS24, opts),
		cfg:    cfg,
		now:    time.Now,
	}
}

func (a *Adapter) Type() adapters.Type {
	return adapters.TypeRS24
}

func (a *Adapter) TestConnection(ctx context.Context) (adapters.ConnectionResult, error) {
	return a.client.Ping(ctx, func(ctx context.Context) error {
		_, err := a.GetWarehouses(ctx)
		return err
	})
}

func (a *Adapter) GetWarehouses(ctx context.Context) ([]adapters.Warehouse, error) {
	var resp warehousesResponse
	if err := a.call(ctx, "getWarehouses", http.MethodGet, "/stocks", nil, &resp); err != nil {
		return nil, err
	}

	out := make([]adapters.Warehouse, 0, len(resp.Stocks))
	for _, s := range resp.Stocks {
		out = append(out, adapters.Warehouse{ID: s.ID, Name: s.Name})
	}
	return out, nil
}

// GetProducts: одна страница каталога склада. Пустая страница означает конец выборки.
func (a *Adapter) GetProducts(ctx context.Context, q ProductsQuery) (*ProductsPage, error) {
	warehouseID, err := a.warehouse(q.WarehouseID)
	if err != nil {
		return nil, err
	}

	path := "/position/" + url.PathEscape(warehouseID)
	if q.Category != "" {
		path += "/" + url.PathEscape(q.Category)
	}

	var resp itemsResponse
	err = a.call(ctx, "getProducts", http.MethodGet, path, nil, &resp,
		adapters.WithQuery(pageParams(q.Page, a.rows(q.Rows))))
	if err != nil {
		return nil, err
	}

	page := &ProductsPage{Pager: resp.Pager, Items: make([]adapters.ExternalProduct, 0, len(resp.Items))}
	for _, item := range resp.Items {
		page.Items = append(page.Items, item.toExternal())
	}
	return page, nil
}

// SearchProducts ищет по артикулу производителя; одному артикулу может соответствовать
// несколько позиций (размеры, цвета).
func (a *Adapter) SearchProducts(ctx context.Context, vendorCode string, _ adapters.SearchOptions) ([]adapters.ExternalProduct, error) {
	var resp itemsResponse
	err := a.call(ctx, "searchProducts", http.MethodGet, "/search", nil, &resp,
		adapters.WithQuery(map[string]string{"vendorCode": vendorCode}))
	if err != nil {
		return nil, err
	}

	out := make([]adapters.ExternalProduct, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, item.toExternal())
	}
	return out, nil
}

func (a *Adapter) GetProductDetails(ctx context.Context, code string) (*adapters.ExternalProduct, error) {
	var item Item
	if err := a.call(ctx, "getProductDetails", http.MethodGet, "/specs/"+url.PathEscape(code), nil, &item); err != nil {
		return nil, err
	}
	p := item.toExternal()
	return &p, nil
}

// GetPrices принимает любое количество кодов; лимит API на размер пачки соблюдается здесь.
func (a *Adapter) GetPrices(ctx context.Context, codes []string) ([]adapters.PriceQuote, error) {
	out := make([]adapters.PriceQuote, 0, len(codes))
	for _, chunk := range adapters.Chunk(codes, priceChunkSize) {
		var resp pricesResponse
		if err := a.call(ctx, "getPrices", http.MethodPost, "/price", codesRequest{Codes: chunk}, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			if v := item.Price.value(); v != nil {
				out = append(out, adapters.PriceQuote{ProductID: item.Code, Price: *v})
			}
		}
	}
	return out, nil
}

func (a *Adapter) GetStockLevels(ctx context.Context, codes []string, warehouseID string) ([]adapters.StockLevel, error) {
	warehouseID, err := a.warehouse(warehouseID)
	if err != nil {
		return nil, err
	}

	out := make([]adapters.StockLevel, 0, len(codes))
	for _, chunk := range adapters.Chunk(codes, stockChunkSize) {
		var resp residueResponse
		path := "/residue/" + url.PathEscape(warehouseID)
		if err := a.call(ctx, "getStockLevels", http.MethodPost, path, codesRequest{Codes: chunk}, &resp); err != nil {
			return nil, err
		}
		for _, row := range resp.Items {
			out = append(out, adapters.StockLevel{ProductID: row.Code, WarehouseID: warehouseID, Available: row.Residue})
		}
	}
	return out, nil
}

// GetAllStocks: постраничная выгрузка остатков всего склада.
func (a *Adapter) GetAllStocks(ctx context.Context, warehouseID string, q StocksQuery) (*StocksPage, error) {
	return a.stocksDump(ctx, "getAllStocks", "/residue/all/", warehouseID, q)
}

// GetAllPartnerWarehouseStock: то же для складов партнёров.
func (a *Adapter) GetAllPartnerWarehouseStock(ctx context.Context, warehouseID string, q StocksQuery) (*StocksPage, error) {
	q.PartnerStock = true
	return a.stocksDump(ctx, "getAllPartnerWarehouseStock", "/residue/partner/", warehouseID, q)
}

func (a *Adapter) stocksDump(ctx context.Context, op, prefix, warehouseID string, q StocksQuery) (*StocksPage, error) {
	warehouseID, err := a.warehouse(warehouseID)
	if err != nil {
		return nil, err
	}

	params := pageParams(q.Page, a.rows(q.Rows))
	params["category"] = q.Category
	if q.PartnerStock {
		params["partnerstock"] = "Y"
	}

	var page StocksPage
	if err := a.call(ctx, op, http.MethodGet, prefix+url.PathEscape(warehouseID), nil, &page, adapters.WithQuery(params)); err != nil {
		return nil, err
	}
	return &page, nil
}

// SyncProducts обходит каталог по страницам до первой пустой и отбирает позиции
// по брендам. Ошибка любого запроса прерывает синхронизацию целиком.
func (a *Adapter) SyncProducts(ctx context.Context, filters adapters.SyncFilters) (*adapters.SyncResult, error) {
	warehouses := filters.WarehouseIDs
	if len(warehouses) == 0 {
		id, err := a.warehouse("")
		if err != nil {
			return nil, err
		}
		warehouses = []string{id}
	}

	categories := filters.Categories
	if len(categories) == 0 {
		categories = []string{""}
	}

	wanted := make(map[string]struct{}, len(filters.Brands))
	for _, b := range filters.Brands {
		wanted[brands.Normalize(b)] = struct{}{}
	}

	seen := make(map[string]struct{})
	result := &adapters.SyncResult{Success: true}

	for _, warehouseID := range warehouses {
		for _, category := range categories {
			for page := 1; page <= maxPages; page++ {
				p, err := a.GetProducts(ctx, ProductsQuery{WarehouseID: warehouseID, Category: category, Page: page})
				if err != nil {
					return nil, err
				}
				if len(p.Items) == 0 {
					break
				}
				for _, item := range p.Items {
					if len(wanted) > 0 {
						if _, ok := wanted[brands.Normalize(item.Brand)]; !ok {
							continue
						}
					}
					if _, dup := seen[item.ExternalID]; dup {
						continue
					}
					seen[item.ExternalID] = struct{}{}
					result.Products = append(result.Products, item)
				}
			}
		}
	}

	a.client.Log().Info("RS24 sync finished",
		zap.Int("products", len(result.Products)), zap.Strings("warehouses", warehouses))
	return result, nil
}

// call выполняет запрос с токеном сессии; на 401 сессия поднимается заново один раз.
func (a *Adapter) call(ctx context.Context, op, method, path string, body, result any, opts ...adapters.RequestOption) error {
	token, err := a.session(ctx, false)
	if err != nil {
		return err
	}

	err = a.client.Do(ctx, op, method, path, body, result, append(opts, bearer(token))...)
	if adapters.StatusCode(err) != http.StatusUnauthorized {
		return err
	}

	token, err = a.session(ctx, true)
	if err != nil {
		return err
	}
	return a.client.Do(ctx, op, method, path, body, result, append(opts, bearer(token))...)
}

func (a *Adapter) session(ctx context.Context, force bool) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !force && a.token != "" && a.now().Before(a.expiresAt) {
		return a.token, nil
	}

	var resp loginResponse
	err := a.client.Do(ctx, "login", http.MethodPost, "/auth/login",
		loginRequest{Login: a.cfg.Login, Password: a.cfg.Password}, &resp)
	if err != nil {
		a.token = ""
		return "", err
	}
	if resp.Token == "" {
		return "", &adapters.ConnectionError{Adapter: adapters.TypeRS24, Op: "login", Message: "empty session token"}
	}

	ttl := time.Duration(resp.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	a.token = resp.Token
	// небольшой запас, чтобы не отправить запрос с истекающим токеном
	a.expiresAt = a.now().Add(ttl - ttl/10)
	return a.token, nil
}

func (a *Adapter) warehouse(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	if a.cfg.WarehouseID != "" {
		return a.cfg.WarehouseID, nil
	}
	return "", fmt.Errorf("rs24: warehouse id is required")
}

func (a *Adapter) rows(rows int) int {
	if rows > 0 {
		return rows
	}
	return a.cfg.Rows
}

func pageParams(page, rows int) map[string]string {
	if page <= 0 {
		page = 1
	}
	return map[string]string{
		"page": strconv.Itoa(page),
		"rows": strconv.Itoa(rows),
	}
}

func bearer(token string) adapters.RequestOption {
	return adapters.WithHeader("Authorization", "Bearer "+token)
}
