package importer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gomarketplace_hub/internal/core/adapters"
	"gomarketplace_hub/internal/core/brands"
	"gomarketplace_hub/internal/core/models"
	"gomarketplace_hub/metrics"
)

var tracer = otel.Tracer("gomarketplace_hub/importer")

const (
	defaultStockChunkSize = 50
	defaultLockTTL        = 30 * time.Minute
)

// SupplierSource отдаёт поставщика вместе со свежим адаптером.
type SupplierSource interface {
	Adapter(ctx context.Context, companyID, supplierID int64) (*models.Supplier, adapters.Adapter, error)
}

type BrandResolver interface {
	ResolveTx(ctx context.Context, q brands.Querier, companyID, supplierID int64, name string) (*int64, error)
}

type BrandLookup interface {
	BrandsByIDs(ctx context.Context, companyID int64, ids []int64) ([]models.Brand, error)
	SynonymNames(ctx context.Context, companyID, supplierID int64, brandIDs []int64) ([]string, error)
}

type ImportOptions struct {
	// UpdateExisting=false оставляет уже существующие товары как есть (считаются пропущенными).
	UpdateExisting bool
	Categories     []string
	WarehouseIDs   []string
	// Progress, если задан, обновляется по ходу прогона.
	Progress *metrics.ImportProgress
}

func DefaultImportOptions() ImportOptions {
	return ImportOptions{UpdateExisting: true}
}

type ImportResult struct {
	RunID    string        `json:"run_id"`
	Received int           `json:"received"`
	Imported int           `json:"imported"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Errors   []RecordError `json:"errors"`
}

type RefreshResult struct {
	Received int   `json:"received"`
	Synced   int64 `json:"synced"`
}

type EngineConfig struct {
	StockChunkSize int
	LockTTL        time.Duration
}

// Engine сводит товары поставщика с внутренним каталогом.
type Engine struct {
	db        *sql.DB
	suppliers SupplierSource
	resolver  BrandResolver
	brands    BrandLookup
	locker    Locker
	cfg       EngineConfig
	log       *zap.Logger
}

// NewEngine: locker может быть nil, тогда прогоны одного поставщика не сериализуются
// (одна строка на external_id всё равно гарантируется уникальным индексом).
func NewEngine(db *sql.DB, src SupplierSource, resolver BrandResolver, lookup BrandLookup, locker Locker, cfg EngineConfig, log *zap.Logger) *Engine {
	if cfg.StockChunkSize <= 0 {
		cfg.StockChunkSize = defaultStockChunkSize
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	return &Engine{
		db:        db,
		suppliers: src,
		resolver:  resolver,
		brands:    lookup,
		locker:    locker,
		cfg:       cfg,
		log:       log.Named("importer"),
	}
}

// ImportProductsByBrands загружает товары выбранных брендов от поставщика и сводит их
// с каталогом компании в одной транзакции. Ошибка записи не прерывает прогон;
// ошибка адаптера или базы - прерывает целиком, ничего не сохраняется.
func (e *Engine) ImportProductsByBrands(ctx context.Context, companyID, supplierID int64, brandIDs []int64, opts ImportOptions) (res *ImportResult, err error) {
	res = &ImportResult{RunID: uuid.NewString(), Errors: []RecordError{}}
	log := e.log.With(zap.String("run_id", res.RunID), zap.Int64("company_id", companyID), zap.Int64("supplier_id", supplierID))

	ctx, span := tracer.Start(ctx, "importer.ImportProductsByBrands")
	span.SetAttributes(attribute.String("run_id", res.RunID), attribute.Int64("company_id", companyID),
		attribute.Int64("supplier_id", supplierID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	release, err := e.lock(ctx, companyID, supplierID)
	if err != nil {
		return nil, err
	}
	defer release()

	_, adapter, err := e.suppliers.Adapter(ctx, companyID, supplierID)
	if err != nil {
		return nil, err
	}
	syncer, err := adapters.Syncer(adapter)
	if err != nil {
		return nil, err
	}

	names, err := e.brandNames(ctx, companyID, supplierID, brandIDs)
	if err != nil {
		return nil, err
	}
	if len(brandIDs) > 0 && len(names) == 0 {
		log.Info("No active brands to import")
		return res, nil
	}

	synced, err := syncer.SyncProducts(ctx, adapters.SyncFilters{
		Brands:         names,
		Categories:     opts.Categories,
		WarehouseIDs:   opts.WarehouseIDs,
		UpdateExisting: opts.UpdateExisting,
	})
	if err != nil {
		return nil, err
	}
	if synced == nil || len(synced.Products) == 0 {
		log.Info("Supplier returned no products")
		return res, nil
	}

	res.Received = len(synced.Products)
	if opts.Progress != nil {
		opts.Progress.Received.Store(int32(res.Received))
	}
	log.Info("Reconciling supplier products", zap.Int("received", res.Received), zap.Strings("brands", names))

	if err := e.reconcile(ctx, companyID, supplierID, synced.Products, opts, res); err != nil {
		return nil, err
	}

	metrics.RecordImport(res.Imported, res.Updated, res.Skipped, len(res.Errors))
	log.Info("Import finished",
		zap.Int("imported", res.Imported), zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped), zap.Int("errors", len(res.Errors)))
	return res, nil
}

func (e *Engine) reconcile(ctx context.Context, companyID, supplierID int64, products []adapters.ExternalProduct, opts ImportOptions, res *ImportResult) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback()

	r := &reconciler{
		tx:         tx,
		resolver:   e.resolver,
		companyID:  companyID,
		supplierID: supplierID,
		update:     opts.UpdateExisting,
		brandCache: make(map[string]*int64),
	}

	for _, rec := range products {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := r.apply(ctx, rec)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, RecordError{Identifier: identifier(rec), Message: err.Error()})
			e.log.Debug("Record failed", zap.String("record", identifier(rec)), zap.Error(err))
		case out == outcomeInserted:
			res.Imported++
		case out == outcomeUpdated:
			res.Updated++
		default:
			res.Skipped++
		}
		track(opts.Progress, out, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

func track(p *metrics.ImportProgress, out outcome, err error) {
	if p == nil {
		return
	}
	p.Processed.Add(1)
	switch {
	case err != nil:
		p.Errored.Add(1)
	case out == outcomeInserted:
		p.Imported.Add(1)
	case out == outcomeUpdated:
		p.Updated.Add(1)
	default:
		p.Skipped.Add(1)
	}
}

// brandNames: канонические имена брендов плюс имена, под которыми их отдаёт поставщик
// (активные синонимы). Дубли по нормализованной форме отбрасываются.
func (e *Engine) brandNames(ctx context.Context, companyID, supplierID int64, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	list, err := e.brands.BrandsByIDs(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	active := make([]int64, 0, len(list))
	names := make([]string, 0, len(list))
	for _, b := range list {
		active = append(active, b.ID)
		names = append(names, b.Name)
	}
	synonyms, err := e.brands.SynonymNames(ctx, companyID, supplierID, active)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(names)+len(synonyms))
	out := make([]string, 0, len(names)+len(synonyms))
	for _, n := range append(names, synonyms...) {
		key := brands.Normalize(n)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

func (e *Engine) lock(ctx context.Context, companyID, supplierID int64) (func(), error) {
	if e.locker == nil {
		return func() {}, nil
	}
	release, err := e.locker.Obtain(ctx, lockKey(companyID, supplierID), e.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	return func() {
		// контекст прогона может быть уже отменён, а блокировку надо снять
		if err := release(context.Background()); err != nil {
			e.log.Warn("Failed to release import lock", zap.Error(err))
		}
	}, nil
}
