package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gomarketplace_hub/internal/core/adapters"
	"gomarketplace_hub/internal/core/brands"
	"gomarketplace_hub/internal/core/models"
)

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeInserted
	outcomeUpdated
)

const savepoint = "import_record"

const upsertSet = `
	supplier_id = EXCLUDED.supplier_id,
	name        = EXCLUDED.name,
	description = EXCLUDED.description,
	sku         = EXCLUDED.sku,
	barcode     = EXCLUDED.barcode,
	brand_id    = COALESCE(EXCLUDED.brand_id, core.products.brand_id),
	attributes  = EXCLUDED.attributes,
	is_active   = TRUE,
	updated_at  = NOW()`

const insertProduct = `
	INSERT INTO core.products
		(company_id, supplier_id, name, description, sku, barcode, brand_id, external_id, source_type, attributes, is_active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, NOW(), NOW())`

var (
	upsertByExternalID = insertProduct + `
	ON CONFLICT (company_id, external_id) DO UPDATE SET` + upsertSet + `
	RETURNING id, (xmax = 0)`

	upsertBySKU = insertProduct + `
	ON CONFLICT (company_id, sku) WHERE external_id IS NULL DO UPDATE SET` + upsertSet + `
	RETURNING id, (xmax = 0)`

	insertByExternalID = insertProduct + `
	ON CONFLICT (company_id, external_id) DO NOTHING
	RETURNING id, TRUE`

	insertBySKU = insertProduct + `
	ON CONFLICT (company_id, sku) WHERE external_id IS NULL DO NOTHING
	RETURNING id, TRUE`
)

// reconciler: состояние одного прогона внутри транзакции.
type reconciler struct {
	tx         *sql.Tx
	resolver   BrandResolver
	companyID  int64
	supplierID int64
	update     bool
	brandCache map[string]*int64
}

// apply сводит одну запись под собственной точкой сохранения: её ошибка откатывает
// только её изменения.
func (r *reconciler) apply(ctx context.Context, rec adapters.ExternalProduct) (outcome, error) {
	externalID := strings.TrimSpace(rec.ExternalID)
	sku := strings.TrimSpace(rec.SKU)
	if externalID == "" && sku == "" {
		return outcomeSkipped, errMissingKeys
	}

	if _, err := r.tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return outcomeSkipped, fmt.Errorf("failed to create savepoint: %w", err)
	}

	out, err := r.write(ctx, rec, externalID, sku)
	if err != nil {
		if _, rbErr := r.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			return outcomeSkipped, errors.Join(err, rbErr)
		}
		return outcomeSkipped, err
	}

	if _, err := r.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		return outcomeSkipped, fmt.Errorf("failed to release savepoint: %w", err)
	}
	return out, nil
}

func (r *reconciler) write(ctx context.Context, rec adapters.ExternalProduct, externalID, sku string) (outcome, error) {
	brandID, err := r.brand(ctx, rec.Brand)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("failed to resolve brand: %w", err)
	}

	attributes := []byte("{}")
	if len(rec.Attributes) > 0 {
		if attributes, err = json.Marshal(rec.Attributes); err != nil {
			return outcomeSkipped, fmt.Errorf("failed to encode attributes: %w", err)
		}
	}

	query := upsertByExternalID
	var extArg any = externalID
	switch {
	case externalID == "" && r.update:
		query, extArg = upsertBySKU, nil
	case externalID == "":
		query, extArg = insertBySKU, nil
	case !r.update:
		query = insertByExternalID
	}

	var (
		productID int64
		inserted  bool
	)
	err = r.tx.QueryRowContext(ctx, query,
		r.companyID, r.supplierID, rec.Name, rec.Description, sku, rec.Barcode,
		brandID, extArg, models.SourceTypeSupplier, string(attributes),
	).Scan(&productID, &inserted)
	if errors.Is(err, sql.ErrNoRows) {
		// DO NOTHING: товар уже есть, а обновлять не просили
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeSkipped, fmt.Errorf("failed to upsert product: %w", err)
	}

	images := cleanImages(rec.Images)
	switch {
	case inserted && len(images) > 0:
		err = r.insertImages(ctx, productID, images)
	case !inserted && len(images) > 0:
		err = r.replaceImages(ctx, productID, images)
	}
	if err != nil {
		return outcomeSkipped, err
	}

	if rec.Price != nil {
		_, err := r.tx.ExecContext(ctx, `
			INSERT INTO core.prices (product_id, price_type, value, currency, updated_at)
			VALUES ($1, $2, $3, 'RUB', NOW())
			ON CONFLICT (product_id, price_type) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
			productID, models.PriceTypeSupplier, *rec.Price)
		if err != nil {
			return outcomeSkipped, fmt.Errorf("failed to upsert price: %w", err)
		}
	}

	if inserted {
		return outcomeInserted, nil
	}
	return outcomeUpdated, nil
}

func (r *reconciler) brand(ctx context.Context, name string) (*int64, error) {
	key := brands.Normalize(name)
	if key == "" {
		return nil, nil
	}
	if id, ok := r.brandCache[key]; ok {
		return id, nil
	}
	id, err := r.resolver.ResolveTx(ctx, r.tx, r.companyID, r.supplierID, name)
	if err != nil {
		return nil, err
	}
	r.brandCache[key] = id
	return id, nil
}

// insertImages: первая картинка - главная, порядок сохраняется.
func (r *reconciler) insertImages(ctx context.Context, productID int64, images []string) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO core.product_images (product_id, url, position, is_main)
		SELECT $1, u.url, u.ord - 1, u.ord = 1
		FROM unnest($2::text[]) WITH ORDINALITY AS u(url, ord)`,
		productID, pq.Array(images))
	if err != nil {
		return fmt.Errorf("failed to insert images: %w", err)
	}
	return nil
}

func (r *reconciler) replaceImages(ctx context.Context, productID int64, images []string) error {
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM core.product_images WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete old images: %w", err)
	}
	return r.insertImages(ctx, productID, images)
}

func cleanImages(images []string) []string {
	seen := make(map[string]struct{}, len(images))
	out := make([]string, 0, len(images))
	for _, u := range images {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func identifier(rec adapters.ExternalProduct) string {
	if sku := strings.TrimSpace(rec.SKU); sku != "" {
		return sku
	}
	return strings.TrimSpace(rec.ExternalID)
}
