package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gomarketplace_hub/internal/core/adapters"
	"gomarketplace_hub/internal/core/brands"
	"gomarketplace_hub/internal/core/jobs"
	"gomarketplace_hub/internal/core/models"
	"gomarketplace_hub/metrics"
	"gomarketplace_hub/pkg/middleware"
)

type ImportJobs interface {
	Start(req jobs.ImportRequest) (string, error)
	Status(ctx context.Context, id string) (*jobs.Job, error)
	Cancel(id string) error
}

type BrandService interface {
	Suggest(ctx context.Context, companyID, supplierID int64, name string) (*brands.Suggestions, error)
	AddSynonym(ctx context.Context, companyID, supplierID, brandID int64, name string, opts brands.SynonymOptions) (*models.BrandSynonym, error)
}

type SupplierService interface {
	TestConnection(ctx context.Context, companyID, supplierID int64) (adapters.ConnectionResult, error)
	Warehouses(ctx context.Context, companyID, supplierID int64) ([]adapters.Warehouse, error)
	SearchProducts(ctx context.Context, companyID, supplierID int64, query string, opts adapters.SearchOptions) ([]adapters.ExternalProduct, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, queue, jobType string, payload any) (string, error)
}

// Dependencies: всё, что нужно HTTP-слою. Producer может быть nil, если Redis выключен.
type Dependencies struct {
	Images    http.Handler
	Imports   ImportJobs
	Brands    BrandService
	Suppliers SupplierService
	Producer  Enqueuer
	JobQueue  string
}

type Server struct {
	deps     Dependencies
	validate *validator.Validate
	log      *zap.Logger
	srv      *http.Server
}

func NewServer(addr string, deps Dependencies, log *zap.Logger) *Server {
	s := &Server{
		deps:     deps,
		validate: validator.New(),
		log:      log.Named("http"),
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /img/{token}", s.deps.Images)
	mux.HandleFunc("POST /api/imports", s.startImport)
	mux.HandleFunc("GET /api/imports/{id}", s.importStatus)
	mux.HandleFunc("DELETE /api/imports/{id}", s.cancelImport)
	mux.HandleFunc("GET /api/brands/suggest", s.suggestBrands)
	mux.HandleFunc("POST /api/brands/synonyms", s.addSynonym)
	mux.HandleFunc("POST /api/suppliers/{id}/test", s.testSupplier)
	mux.HandleFunc("GET /api/suppliers/{id}/warehouses", s.supplierWarehouses)
	mux.HandleFunc("GET /api/suppliers/{id}/search", s.searchSupplier)
	mux.HandleFunc("POST /api/suppliers/{id}/refresh/{kind}", s.refreshSupplier)
	mux.Handle("GET /metrics", metrics.MetricsHandler())

	return middleware.PrometheusMiddleware(middleware.Logging(s.log)(mux))
}

// Run блокируется до отмены ctx, затем останавливает сервер.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", zap.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.log.Info("HTTP server shutting down")
	return s.srv.Shutdown(shutdownCtx)
}
