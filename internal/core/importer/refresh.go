package importer

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"gomarketplace_hub/internal/core/adapters"
	"gomarketplace_hub/internal/core/models"
	"gomarketplace_hub/metrics"
)

// SyncPricesFromSupplier обновляет закупочные цены товаров, у которых есть external_id.
// Synced: число реально обновлённых строк, Received - сколько цен отдал поставщик.
func (e *Engine) SyncPricesFromSupplier(ctx context.Context, companyID, supplierID int64) (*RefreshResult, error) {
	ctx, span := tracer.Start(ctx, "importer.SyncPricesFromSupplier")
	defer span.End()

	_, adapter, err := e.suppliers.Adapter(ctx, companyID, supplierID)
	if err != nil {
		return nil, err
	}
	fetcher, err := adapters.Prices(adapter)
	if err != nil {
		return nil, err
	}

	ids, err := e.externalIDs(ctx, companyID, supplierID)
	if err != nil {
		return nil, err
	}
	res := &RefreshResult{}
	if len(ids) == 0 {
		return res, nil
	}

	quotes, err := fetcher.GetPrices(ctx, ids)
	if err != nil {
		return nil, err
	}
	res.Received = len(quotes)

	err = e.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range quotes {
			r, err := tx.ExecContext(ctx, `
				INSERT INTO core.prices (product_id, price_type, value, currency, updated_at)
				SELECT id, $4, $5, 'RUB', NOW() FROM core.products
				WHERE company_id = $1 AND supplier_id = $2 AND external_id = $3
				ON CONFLICT (product_id, price_type) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
				companyID, supplierID, q.ProductID, models.PriceTypeSupplier, q.Price)
			if err != nil {
				return fmt.Errorf("failed to update price of %s: %w", q.ProductID, err)
			}
			n, _ := r.RowsAffected()
			res.Synced += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordRefresh("price", res.Synced)
	e.log.Info("Prices refreshed", zap.Int64("supplier_id", supplierID),
		zap.Int("received", res.Received), zap.Int64("synced", res.Synced))
	return res, nil
}

// SyncStocksFromSupplier обновляет остатки склада. Запросы к поставщику идут пачками.
func (e *Engine) SyncStocksFromSupplier(ctx context.Context, companyID, supplierID int64, warehouseID string) (*RefreshResult, error) {
	ctx, span := tracer.Start(ctx, "importer.SyncStocksFromSupplier")
	defer span.End()

	_, adapter, err := e.suppliers.Adapter(ctx, companyID, supplierID)
	if err != nil {
		return nil, err
	}
	fetcher, err := adapters.Stocks(adapter)
	if err != nil {
		return nil, err
	}

	ids, err := e.externalIDs(ctx, companyID, supplierID)
	if err != nil {
		return nil, err
	}

	var levels []adapters.StockLevel
	for _, chunk := range adapters.Chunk(ids, e.cfg.StockChunkSize) {
		part, err := fetcher.GetStockLevels(ctx, chunk, warehouseID)
		if err != nil {
			return nil, err
		}
		levels = append(levels, part...)
	}

	res := &RefreshResult{Received: len(levels)}
	err = e.inTx(ctx, func(tx *sql.Tx) error {
		for _, l := range levels {
			wh := l.WarehouseID
			if wh == "" {
				wh = warehouseID
			}
			r, err := tx.ExecContext(ctx, `
				INSERT INTO core.stocks (product_id, warehouse_id, available, updated_at)
				SELECT id, $4, $5, NOW() FROM core.products
				WHERE company_id = $1 AND supplier_id = $2 AND external_id = $3
				ON CONFLICT (product_id, warehouse_id) DO UPDATE SET available = EXCLUDED.available, updated_at = NOW()`,
				companyID, supplierID, l.ProductID, wh, l.Available)
			if err != nil {
				return fmt.Errorf("failed to update stock of %s: %w", l.ProductID, err)
			}
			n, _ := r.RowsAffected()
			res.Synced += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordRefresh("stock", res.Synced)
	e.log.Info("Stocks refreshed", zap.Int64("supplier_id", supplierID), zap.String("warehouse_id", warehouseID),
		zap.Int("received", res.Received), zap.Int64("synced", res.Synced))
	return res, nil
}

func (e *Engine) externalIDs(ctx context.Context, companyID, supplierID int64) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT external_id FROM core.products
		WHERE company_id = $1 AND supplier_id = $2 AND external_id IS NOT NULL AND is_active
		ORDER BY id`, companyID, supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to load external ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan external id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (e *Engine) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
