package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gomarketplace_hub/internal/core/adapters"
	"gomarketplace_hub/internal/core/brands"
	"gomarketplace_hub/internal/core/jobs"
	"gomarketplace_hub/internal/core/models"
	"gomarketplace_hub/internal/core/suppliers"
)

type fakeJobs struct {
	started   []jobs.ImportRequest
	jobs      map[string]*jobs.Job
	cancelled []string
}

func (f *fakeJobs) Start(req jobs.ImportRequest) (string, error) {
	f.started = append(f.started, req)
	return "job-1", nil
}

func (f *fakeJobs) Status(_ context.Context, id string) (*jobs.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, jobs.ErrNotFound
	}
	return job, nil
}

func (f *fakeJobs) Cancel(id string) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

type fakeBrands struct {
	err error
}

func (f *fakeBrands) Suggest(_ context.Context, companyID, supplierID int64, name string) (*brands.Suggestions, error) {
	return &brands.Suggestions{Query: name, Normalized: brands.Normalize(name), Via: brands.ViaBrand,
		Items: []brands.Suggestion{{BrandID: 5, Name: "Schneider Electric", Via: brands.ViaBrand, Exact: true}}}, nil
}

func (f *fakeBrands) AddSynonym(_ context.Context, companyID, supplierID, brandID int64, name string, opts brands.SynonymOptions) (*models.BrandSynonym, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.BrandSynonym{CompanyID: companyID, SupplierID: supplierID, BrandID: brandID,
		ExternalBrandName: name, NormalizedName: brands.Normalize(name), IsActive: true}, nil
}

type fakeSuppliers struct {
	err error
	res adapters.ConnectionResult
}

func (f *fakeSuppliers) TestConnection(context.Context, int64, int64) (adapters.ConnectionResult, error) {
	if f.err != nil {
		return f.res, f.err
	}
	return adapters.ConnectionResult{Success: true, Message: "ok"}, nil
}

func (f *fakeSuppliers) Warehouses(context.Context, int64, int64) ([]adapters.Warehouse, error) {
	return []adapters.Warehouse{{ID: "1", Name: "Main"}}, f.err
}

func (f *fakeSuppliers) SearchProducts(_ context.Context, _, _ int64, query string, _ adapters.SearchOptions) ([]adapters.ExternalProduct, error) {
	return []adapters.ExternalProduct{{ExternalID: "1", SKU: query}}, f.err
}

type fakeProducer struct {
	queue, jobType string
	payload        any
}

func (f *fakeProducer) Enqueue(_ context.Context, queue, jobType string, payload any) (string, error) {
	f.queue, f.jobType, f.payload = queue, jobType, payload
	return "corr-1", nil
}

func newTestServer(deps Dependencies) http.Handler {
	if deps.Images == nil {
		deps.Images = http.NotFoundHandler()
	}
	return NewServer(":0", deps, zap.NewNop()).Handler()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(companyHeader, "1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStartImport(t *testing.T) {
	fj := &fakeJobs{}
	h := newTestServer(Dependencies{Imports: fj})

	rec := do(h, http.MethodPost, "/api/imports", `{"company_id":99,"supplier_id":2,"brand_ids":[7]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"job_id":"job-1"}`, rec.Body.String())
	require.Len(t, fj.started, 1)
	assert.Equal(t, int64(1), fj.started[0].CompanyID)
	assert.Equal(t, []int64{7}, fj.started[0].BrandIDs)

	rec = do(h, http.MethodPost, "/api/imports", `{"brand_ids":[7]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/imports", strings.NewReader(`{"supplier_id":2}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportStatusAndCancel(t *testing.T) {
	fj := &fakeJobs{jobs: map[string]*jobs.Job{
		"mine":  {ID: "mine", CompanyID: 1, State: jobs.StateRunning},
		"other": {ID: "other", CompanyID: 2, State: jobs.StateRunning},
	}}
	h := newTestServer(Dependencies{Imports: fj})

	rec := do(h, http.MethodGet, "/api/imports/mine", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var job jobs.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, jobs.StateRunning, job.State)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/imports/other", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/imports/missing", "").Code)

	assert.Equal(t, http.StatusNoContent, do(h, http.MethodDelete, "/api/imports/mine", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/api/imports/other", "").Code)
	assert.Equal(t, []string{"mine"}, fj.cancelled)
}

func TestBrands(t *testing.T) {
	h := newTestServer(Dependencies{Brands: &fakeBrands{}})

	rec := do(h, http.MethodGet, "/api/brands/suggest?supplier_id=2&name=Schneider-Electric", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var s brands.Suggestions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "schneider electric", s.Normalized)
	assert.Equal(t, brands.ViaBrand, s.Via)
	assert.Contains(t, rec.Body.String(),
		`"suggestions":[{"brand_id":5,"brand_name":"Schneider Electric","via":"brand","exact":true}]`)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/api/brands/suggest?name=x", "").Code)

	rec = do(h, http.MethodPost, "/api/brands/synonyms", `{"supplier_id":2,"brand_id":5,"name":"SE"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"brand_id":5`)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/brands/synonyms", `{"supplier_id":2}`).Code)

	h = newTestServer(Dependencies{Brands: &fakeBrands{err: brands.ErrBrandNotFound}})
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/api/brands/synonyms", `{"supplier_id":2,"brand_id":5,"name":"SE"}`).Code)
}

func TestSupplierErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{suppliers.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("decrypt: %w", suppliers.ErrCredentialsUnusable), http.StatusConflict},
		{&adapters.UnknownAdapterTypeError{TypeCode: "acme"}, http.StatusBadRequest},
		{&adapters.UnsupportedOperationError{Capability: "warehouses", Adapter: adapters.TypeYandex}, http.StatusBadRequest},
		{&adapters.ConnectionError{Adapter: adapters.TypeRS24, Op: "getWarehouses", StatusCode: 500, Message: "secret vendor trace"}, http.StatusBadGateway},
		{errors.New("db is down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := newTestServer(Dependencies{Suppliers: &fakeSuppliers{err: tc.err}})
		rec := do(h, http.MethodGet, "/api/suppliers/3/warehouses", "")
		assert.Equal(t, tc.status, rec.Code, "%v", tc.err)
		assert.NotContains(t, rec.Body.String(), "secret vendor trace")
	}
}

// Отказ API поставщика при проверке подключения - штатный результат с success=false.
// Отсутствующий поставщик и нечитаемые учётные данные остаются ошибками запроса.
func TestSupplierTestConnectionFailureIsResult(t *testing.T) {
	f := &fakeSuppliers{
		err: &adapters.ConnectionError{Adapter: adapters.TypeRS24, Op: "login", StatusCode: 403, Message: "secret vendor trace"},
		res: adapters.ConnectionResult{Success: false, Message: "secret vendor trace", ResponseTime: 1500 * time.Millisecond},
	}
	h := newTestServer(Dependencies{Suppliers: f})

	rec := do(h, http.MethodPost, "/api/suppliers/3/test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret vendor trace")

	var res adapters.ConnectionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Equal(t, "supplier API request failed", res.Message)
	assert.Equal(t, 1500*time.Millisecond, res.ResponseTime)

	f.err = suppliers.ErrNotFound
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/api/suppliers/3/test", "").Code)

	f.err = fmt.Errorf("decrypt: %w", suppliers.ErrCredentialsUnusable)
	assert.Equal(t, http.StatusConflict, do(h, http.MethodPost, "/api/suppliers/3/test", "").Code)

	f.err = nil
	rec = do(h, http.MethodPost, "/api/suppliers/3/test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestSupplierPassThrough(t *testing.T) {
	h := newTestServer(Dependencies{Suppliers: &fakeSuppliers{}})

	rec := do(h, http.MethodGet, "/api/suppliers/3/warehouses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"1","name":"Main"}]`, rec.Body.String())

	rec = do(h, http.MethodGet, "/api/suppliers/3/search?q=A9F", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "A9F")

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/api/suppliers/3/search", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/api/suppliers/abc/warehouses", "").Code)
}

func TestRefreshEnqueue(t *testing.T) {
	p := &fakeProducer{}
	h := newTestServer(Dependencies{Producer: p, JobQueue: "catalog:jobs"})

	rec := do(h, http.MethodPost, "/api/suppliers/3/refresh/stocks?warehouse_id=7", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"correlation_id":"corr-1"}`, rec.Body.String())
	assert.Equal(t, "catalog:jobs", p.queue)
	assert.Equal(t, jobs.TypeRefreshStocks, p.jobType)
	assert.Equal(t, jobs.RefreshPayload{CompanyID: 1, SupplierID: 3, WarehouseID: "7"}, p.payload)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/suppliers/3/refresh/images", "").Code)

	h = newTestServer(Dependencies{})
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodPost, "/api/suppliers/3/refresh/prices", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(Dependencies{})
	rec := do(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
