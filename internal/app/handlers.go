package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"gomarketplace_hub/internal/core/adapters"
	"gomarketplace_hub/internal/core/brands"
	"gomarketplace_hub/internal/core/jobs"
)

// Компанию проставляет шлюз перед сервисом.
const companyHeader = "X-Company-ID"

var errBadCompany = errors.New("missing or invalid " + companyHeader + " header")

func companyID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.Header.Get(companyHeader), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadCompany
	}
	return id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func queryID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return s.validate.Struct(dst)
}

func (s *Server) startImport(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	var req jobs.ImportRequest
	req.CompanyID = company
	if err := s.decode(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	// тело не может подменить компанию
	req.CompanyID = company

	id, err := s.deps.Imports.Start(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id})
}

func (s *Server) importStatus(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	job, err := s.deps.Imports.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if job.CompanyID != company {
		writeMessage(w, http.StatusNotFound, jobs.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) cancelImport(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	id := r.PathValue("id")
	job, err := s.deps.Imports.Status(r.Context(), id)
	if err == nil && job.CompanyID != company {
		err = jobs.ErrNotFound
	}
	if err == nil {
		err = s.deps.Imports.Cancel(id)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) suggestBrands(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	supplier, err := queryID(r, "supplier_id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}

	res, err := s.deps.Brands.Suggest(r.Context(), company, supplier, name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type synonymRequest struct {
	SupplierID  int64          `json:"supplier_id" validate:"required,gt=0"`
	BrandID     int64          `json:"brand_id" validate:"required,gt=0"`
	Name        string         `json:"name" validate:"required"`
	SyncEnabled *bool          `json:"sync_enabled"`
	Settings    map[string]any `json:"settings"`
}

func (s *Server) addSynonym(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	var req synonymRequest
	if err := s.decode(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	syn, err := s.deps.Brands.AddSynonym(r.Context(), company, req.SupplierID, req.BrandID, req.Name,
		brands.SynonymOptions{SyncEnabled: req.SyncEnabled, Settings: req.Settings})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syn)
}

func (s *Server) testSupplier(w http.ResponseWriter, r *http.Request) {
	company, supplier, ok := s.supplierScope(w, r)
	if !ok {
		return
	}
	res, err := s.deps.Suppliers.TestConnection(r.Context(), company, supplier)
	// недоступный или отказавший API поставщика - это результат проверки, а не ошибка запроса
	var conn *adapters.ConnectionError
	if errors.As(err, &conn) {
		s.log.Warn("Supplier connection test failed", zap.Int64("supplier_id", supplier),
			zap.String("adapter", conn.Adapter.String()), zap.String("op", conn.Op),
			zap.Int("status", conn.StatusCode), zap.String("message", conn.Message))
		writeJSON(w, http.StatusOK, adapters.ConnectionResult{
			Success:      false,
			Message:      "supplier API request failed",
			ResponseTime: res.ResponseTime,
		})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) supplierWarehouses(w http.ResponseWriter, r *http.Request) {
	company, supplier, ok := s.supplierScope(w, r)
	if !ok {
		return
	}
	res, err := s.deps.Suppliers.Warehouses(r.Context(), company, supplier)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) searchSupplier(w http.ResponseWriter, r *http.Request) {
	company, supplier, ok := s.supplierScope(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeMessage(w, http.StatusBadRequest, "q is required")
		return
	}
	opts := adapters.SearchOptions{WarehouseID: q.Get("warehouse_id")}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}

	res, err := s.deps.Suppliers.SearchProducts(r.Context(), company, supplier, query, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) refreshSupplier(w http.ResponseWriter, r *http.Request) {
	company, supplier, ok := s.supplierScope(w, r)
	if !ok {
		return
	}
	if s.deps.Producer == nil {
		writeMessage(w, http.StatusServiceUnavailable, "job queue is not configured")
		return
	}

	var jobType string
	switch r.PathValue("kind") {
	case "prices":
		jobType = jobs.TypeRefreshPrices
	case "stocks":
		jobType = jobs.TypeRefreshStocks
	default:
		writeMessage(w, http.StatusBadRequest, "kind must be prices or stocks")
		return
	}

	payload := jobs.RefreshPayload{CompanyID: company, SupplierID: supplier, WarehouseID: r.URL.Query().Get("warehouse_id")}
	id, err := s.deps.Producer.Enqueue(r.Context(), s.deps.JobQueue, jobType, payload)
	if err != nil {
		s.log.Error("Failed to enqueue refresh", zap.Error(err))
		writeMessage(w, http.StatusServiceUnavailable, "failed to enqueue job")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"correlation_id": id})
}

func (s *Server) supplierScope(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	company, err := companyID(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	supplier, err := pathID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return company, supplier, true
}
