package yandex

import (
	"context"
	"encoding/json"
	"errors"
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
		assert.Equal(t, "ya-key", r.Header.Get("Api-Key"))
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "ya-key", BusinessID: 77, BaseURL: srv.URL}, adapters.ClientOptions{})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestAdapter_SyncProductsPagesByToken(t *testing.T) {
	mux := http.NewServeMux()
	var tokens []string
	mux.HandleFunc("/businesses/77/offer-mappings", func(w http.ResponseWriter, r *http.Request) {
		var req mappingsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"Acme"}, req.VendorNames)

		token := r.URL.Query().Get("page_token")
		tokens = append(tokens, token)
		next := ""
		offerID := "SKU-2"
		if token == "" {
			next = "p2"
			offerID = "SKU-1"
		}
		writeJSON(w, map[string]any{"result": map[string]any{
			"paging": map[string]string{"nextPageToken": next},
			"offerMappings": []map[string]any{{"offer": map[string]any{
				"offerId": offerID, "name": "Дрель", "vendor": "Acme",
				"barcodes":   []string{"460"},
				"pictures":   []string{"https://ya/1.jpg"},
				"basicPrice": map[string]any{"value": 990, "currencyId": "RUR"},
			}}},
		}})
	})

	res, err := newTestAdapter(t, mux).SyncProducts(context.Background(), adapters.SyncFilters{Brands: []string{"Acme"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "p2"}, tokens)
	require.Len(t, res.Products, 2)
	assert.Equal(t, "SKU-1", res.Products[0].SKU)
	assert.Equal(t, "Acme", res.Products[0].Brand)
	assert.Equal(t, "990", res.Products[0].Price.String())
}

func TestAdapter_GetPricesAndWarehouses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/businesses/77/offer-prices", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"result": map[string]any{"offers": []map[string]any{
			{"offerId": "SKU-1", "price": map[string]any{"value": 120, "currencyId": "RUR"}},
			{"offerId": "SKU-2"},
		}}})
	})
	mux.HandleFunc("/businesses/77/warehouses", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"result": map[string]any{"warehouses": []map[string]any{{"id": 5, "name": "Склад"}}}})
	})

	a := newTestAdapter(t, mux)
	quotes, err := a.GetPrices(context.Background(), []string{"SKU-1", "SKU-2"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "120", quotes[0].Price.String())

	wh, err := a.GetWarehouses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []adapters.Warehouse{{ID: "5", Name: "Склад"}}, wh)
}

func TestAdapter_StocksUnsupported(t *testing.T) {
	a := New(Config{APIKey: "k", BusinessID: 1}, adapters.ClientOptions{})

	_, err := adapters.Stocks(a)
	var unsupported *adapters.UnsupportedOperationError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, adapters.CapabilityStocks, unsupported.Capability)
	assert.Equal(t, adapters.TypeYandex, unsupported.Adapter)
}

func TestAdapter_TestConnection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/campaigns", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors":[{"code":"FORBIDDEN"}]}`))
	})

	res, err := newTestAdapter(t, mux).TestConnection(context.Background())
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusForbidden, adapters.StatusCode(err))
}
