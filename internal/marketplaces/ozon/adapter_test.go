package ozon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gomarketplace_hub/internal/core/adapters"
)

func newTestAdapter(t *testing.T, mux *http.ServeMux) *Adapter {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "123", r.Header.Get("Client-Id"))
		assert.Equal(t, "key", r.Header.Get("Api-Key"))
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(Config{ClientID: "123", APIKey: "key", BaseURL: srv.URL}, adapters.ClientOptions{})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestAdapter_SyncProductsListsThenLoadsInfo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/product/list", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"result": map[string]any{
			"items":   []map[string]any{{"product_id": 10, "offer_id": "A-1"}, {"product_id": 11, "offer_id": "A-2"}},
			"total":   2,
			"last_id": "",
		}})
	})
	mux.HandleFunc("/v3/product/info/list", func(w http.ResponseWriter, r *http.Request) {
		var req infoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []int64{10, 11}, req.ProductID)
		writeJSON(w, map[string]any{"items": []map[string]any{
			{"id": 10, "offer_id": "A-1", "name": "Дрель", "barcodes": []string{"460"}, "primary_image": []string{"https://ozon/1.jpg"}, "price": "1500.00"},
			{"id": 11, "offer_id": "A-2", "name": "Пила", "price": ""},
		}})
	})

	res, err := newTestAdapter(t, mux).SyncProducts(context.Background(), adapters.SyncFilters{})
	require.NoError(t, err)
	require.Len(t, res.Products, 2)

	first := res.Products[0]
	assert.Equal(t, "10", first.ExternalID)
	assert.Equal(t, "A-1", first.SKU)
	assert.Equal(t, "460", first.Barcode)
	assert.Equal(t, []string{"https://ozon/1.jpg"}, first.Images)
	require.NotNil(t, first.Price)
	assert.Equal(t, "1500", first.Price.String())
	assert.Nil(t, res.Products[1].Price)
}

func TestAdapter_GetProductDetailsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/product/info/list", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": []any{}})
	})

	_, err := newTestAdapter(t, mux).GetProductDetails(context.Background(), "missing")
	assert.Equal(t, http.StatusNotFound, adapters.StatusCode(err))
}

func TestAdapter_PricesAndStocks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v5/product/info/prices", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": []map[string]any{
			{"offer_id": "A-1", "price": map[string]any{"price": "1500", "marketing_price": "1390"}},
			{"offer_id": "A-2", "price": map[string]any{"price": "700", "marketing_price": "0"}},
		}})
	})
	mux.HandleFunc("/v4/product/info/stocks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": []map[string]any{
			{"offer_id": "A-1", "stocks": []map[string]any{
				{"type": "fbo", "present": 10, "reserved": 2},
				{"type": "fbs", "present": 4, "reserved": 1},
			}},
		}})
	})

	a := newTestAdapter(t, mux)
	quotes, err := a.GetPrices(context.Background(), []string{"A-1", "A-2"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "1390", quotes[0].Price.String())
	assert.Equal(t, "700", quotes[1].Price.String())

	all, err := a.GetStockLevels(context.Background(), []string{"A-1"}, "")
	require.NoError(t, err)
	assert.Equal(t, 11, all[0].Available)

	fbs, err := a.GetStockLevels(context.Background(), []string{"A-1"}, "fbs")
	require.NoError(t, err)
	assert.Equal(t, 3, fbs[0].Available)
}

func TestAdapter_TestConnectionListsWarehouses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/warehouse/list", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"result": []map[string]any{{"warehouse_id": 1020, "name": "FBS Москва"}}})
	})

	a := newTestAdapter(t, mux)
	res, err := a.TestConnection(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)

	wh, err := a.GetWarehouses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []adapters.Warehouse{{ID: "1020", Name: "FBS Москва"}}, wh)
}
