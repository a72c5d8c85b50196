package brands

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gomarketplace_hub/internal/core/models"
)

// Querier: общее у *sql.DB и *sql.Tx; резолвер работает внутри транзакции импорта.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *sql.DB {
	return r.db
}

// SynonymBrands возвращает активные бренды, на которые указывают активные синонимы
// нормализованного имени. Свежие соответствия идут первыми.
func (r *Repository) SynonymBrands(ctx context.Context, q Querier, companyID, supplierID int64, normalized string) ([]models.Brand, error) {
	query := `
		SELECT b.id, b.company_id, b.name, b.is_active
		FROM core.brand_synonyms s
		JOIN core.brands b ON b.id = s.brand_id
		WHERE s.company_id = $1 AND s.supplier_id = $2 AND s.normalized_name = $3
		  AND s.is_active AND b.is_active
		ORDER BY s.updated_at DESC, b.name`

	return r.queryBrands(ctx, q, query, companyID, supplierID, normalized)
}

// ActiveBrands: каталог брендов компании.
func (r *Repository) ActiveBrands(ctx context.Context, q Querier, companyID int64) ([]models.Brand, error) {
	query := `SELECT id, company_id, name, is_active FROM core.brands WHERE company_id = $1 AND is_active ORDER BY name`
	return r.queryBrands(ctx, q, query, companyID)
}

// BrandsByIDs загружает бренды компании по id; чужие и неактивные не возвращаются.
func (r *Repository) BrandsByIDs(ctx context.Context, companyID int64, ids []int64) ([]models.Brand, error) {
	query := `SELECT id, company_id, name, is_active FROM core.brands WHERE company_id = $1 AND id = ANY($2) AND is_active ORDER BY name`
	return r.queryBrands(ctx, r.db, query, companyID, pq.Array(ids))
}

// SynonymNames: внешние имена активных синонимов указанных брендов у поставщика.
func (r *Repository) SynonymNames(ctx context.Context, companyID, supplierID int64, brandIDs []int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT external_brand_name
		FROM core.brand_synonyms
		WHERE company_id = $1 AND supplier_id = $2 AND brand_id = ANY($3) AND is_active
		ORDER BY external_brand_name`, companyID, supplierID, pq.Array(brandIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load brand synonyms: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan brand synonym: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *Repository) queryBrands(ctx context.Context, q Querier, query string, args ...any) ([]models.Brand, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var out []models.Brand
	for rows.Next() {
		var b models.Brand
		if err := rows.Scan(&b.ID, &b.CompanyID, &b.Name, &b.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred during row iteration: %w", err)
	}
	return out, nil
}

func (r *Repository) brandExists(ctx context.Context, q Querier, companyID, brandID int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM core.brands WHERE id = $1 AND company_id = $2)`, brandID, companyID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check brand: %w", err)
	}
	return exists, nil
}

// deactivateCompeting гасит другие активные соответствия того же нормализованного имени.
func (r *Repository) deactivateCompeting(ctx context.Context, q Querier, s *models.BrandSynonym) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE core.brand_synonyms
		SET is_active = FALSE, updated_at = NOW()
		WHERE company_id = $1 AND supplier_id = $2 AND normalized_name = $3 AND is_active
		  AND NOT (brand_id = $4 AND external_brand_name = $5)`,
		s.CompanyID, s.SupplierID, s.NormalizedName, s.BrandID, s.ExternalBrandName)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate competing synonyms: %w", err)
	}
	return res.RowsAffected()
}

// upsertSynonym вставляет или оживляет синоним. Настройки сливаются: новые не-null значения
// перекрывают старые, sync_enabled меняется только если передан.
func (r *Repository) upsertSynonym(ctx context.Context, q Querier, s *models.BrandSynonym, syncEnabled *bool, settings map[string]any) error {
	var settingsJSON []byte
	if settings != nil {
		b, err := json.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to encode synonym settings: %w", err)
		}
		settingsJSON = b
	}

	var syncArg sql.NullBool
	if syncEnabled != nil {
		syncArg = sql.NullBool{Bool: *syncEnabled, Valid: true}
	}

	query := `
		INSERT INTO core.brand_synonyms
			(company_id, supplier_id, brand_id, external_brand_name, normalized_name, is_active, sync_enabled, settings, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, COALESCE($6, TRUE), jsonb_strip_nulls(COALESCE($7::jsonb, '{}'::jsonb)), NOW())
		ON CONFLICT (company_id, supplier_id, brand_id, external_brand_name) DO UPDATE SET
			normalized_name = EXCLUDED.normalized_name,
			is_active       = TRUE,
			sync_enabled    = COALESCE($6, core.brand_synonyms.sync_enabled),
			settings        = core.brand_synonyms.settings || jsonb_strip_nulls(COALESCE($7::jsonb, '{}'::jsonb)),
			updated_at      = NOW()
		RETURNING id, is_active, sync_enabled, settings, updated_at`

	var rawSettings []byte
	err := q.QueryRowContext(ctx, query,
		s.CompanyID, s.SupplierID, s.BrandID, s.ExternalBrandName, s.NormalizedName, syncArg, nullableJSON(settingsJSON),
	).Scan(&s.ID, &s.IsActive, &s.SyncEnabled, &rawSettings, &s.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return ErrBrandNotFound
		}
		return fmt.Errorf("failed to upsert brand synonym: %w", err)
	}
	s.Settings = rawSettings
	return nil
}

func nullableJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
