package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gomarketplace_hub/internal/core/importer"
)

const (
	TypeRefreshPrices = "refresh_prices"
	TypeRefreshStocks = "refresh_stocks"
)

// RefreshPayload: тело задачи обновления цен или остатков.
type RefreshPayload struct {
	CompanyID   int64  `json:"company_id"`
	SupplierID  int64  `json:"supplier_id"`
	WarehouseID string `json:"warehouse_id,omitempty"`
}

type Refresher interface {
	SyncPricesFromSupplier(ctx context.Context, companyID, supplierID int64) (*importer.RefreshResult, error)
	SyncStocksFromSupplier(ctx context.Context, companyID, supplierID int64, warehouseID string) (*importer.RefreshResult, error)
}

type listPopper interface {
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Worker разбирает очередь задач обновления, пока не отменён контекст.
type Worker struct {
	rdb       listPopper
	queue     string
	refresher Refresher
	log       *zap.Logger
	poll      time.Duration
}

func NewWorker(rdb redis.UniversalClient, queue string, refresher Refresher, log *zap.Logger) *Worker {
	return &Worker{rdb: rdb, queue: queue, refresher: refresher, log: log.Named("worker"), poll: 5 * time.Second}
}

func (w *Worker) Run(ctx context.Context) {
	w.log.Info("Queue worker started", zap.String("queue", w.queue))
	for {
		if ctx.Err() != nil {
			w.log.Info("Queue worker stopped")
			return
		}
		res, err := w.rdb.BRPop(ctx, w.poll, w.queue).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Warn("Failed to read queue", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		// BRPOP отдаёт пару [ключ, значение]
		if len(res) != 2 {
			continue
		}
		if err := w.Handle(ctx, []byte(res[1])); err != nil {
			w.log.Warn("Job failed", zap.Error(err))
		}
	}
}

// Handle выполняет одну задачу из очереди.
func (w *Worker) Handle(ctx context.Context, raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("malformed job envelope: %w", err)
	}
	var p RefreshPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("job %s: malformed payload: %w", env.ID, err)
	}

	var (
		res *importer.RefreshResult
		err error
	)
	switch env.Type {
	case TypeRefreshPrices:
		res, err = w.refresher.SyncPricesFromSupplier(ctx, p.CompanyID, p.SupplierID)
	case TypeRefreshStocks:
		res, err = w.refresher.SyncStocksFromSupplier(ctx, p.CompanyID, p.SupplierID, p.WarehouseID)
	default:
		return fmt.Errorf("job %s: unknown type %q", env.ID, env.Type)
	}
	if err != nil {
		return fmt.Errorf("job %s: %w", env.ID, err)
	}

	w.log.Info("Job done", zap.String("job_id", env.ID), zap.String("type", env.Type),
		zap.Int("received", res.Received), zap.Int64("synced", res.Synced))
	return nil
}
