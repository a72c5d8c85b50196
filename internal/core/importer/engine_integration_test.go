//go:build integration

package importer

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gomarketplace_hub/internal/core/adapters"
	"gomarketplace_hub/internal/core/brands"
	"gomarketplace_hub/internal/core/models"
	"gomarketplace_hub/migrations/infrastructure"
	"gomarketplace_hub/pkg/dbconnect/migration"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skipf("TEST_DATABASE_DSN is not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	if err := db.Ping(); err != nil {
		t.Skipf("postgres is not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.Apply(db, zap.NewNop(), infrastructure.Migrations()...))
	return db
}

func TestIntegration_ConcurrentImportsKeepOneRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	const companyID = 990001
	var supplierID int64
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO core.suppliers (company_id, name, type_code) VALUES ($1, 'it-rs24', 'rs24') RETURNING id`,
		companyID).Scan(&supplierID))
	t.Cleanup(func() {
		db.Exec(`DELETE FROM core.products WHERE company_id = $1`, companyID)
		db.Exec(`DELETE FROM core.suppliers WHERE company_id = $1`, companyID)
	})

	adapter := &fakeAdapter{products: []adapters.ExternalProduct{
		{ExternalID: "race-1", SKU: "RACE-1", Name: "Drill", Price: price("100"), Images: []string{"https://img/1.jpg"}},
	}}
	repo := brands.NewRepository(db)
	engine := NewEngine(db, &fakeSource{adapter: adapter}, brands.NewResolver(repo, zap.NewNop()), repo, nil,
		EngineConfig{}, zap.NewNop())

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.ImportProductsByBrands(ctx, companyID, supplierID, nil, DefaultImportOptions())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM core.products WHERE company_id = $1 AND external_id = 'race-1'`, companyID).Scan(&count))
	assert.Equal(t, 1, count)

	var images int
	require.NoError(t, db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM core.product_images i JOIN core.products p ON p.id = i.product_id
		WHERE p.company_id = $1`, companyID).Scan(&images))
	assert.Equal(t, 1, images)
}

func TestIntegration_PriceUpdatedOnSecondImport(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	const companyID = 990002
	var supplierID int64
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO core.suppliers (company_id, name, type_code) VALUES ($1, 'it-rs24', 'rs24') RETURNING id`,
		companyID).Scan(&supplierID))
	t.Cleanup(func() {
		db.Exec(`DELETE FROM core.products WHERE company_id = $1`, companyID)
		db.Exec(`DELETE FROM core.suppliers WHERE company_id = $1`, companyID)
	})

	adapter := &fakeAdapter{}
	repo := brands.NewRepository(db)
	engine := NewEngine(db, &fakeSource{adapter: adapter}, brands.NewResolver(repo, zap.NewNop()), repo, nil,
		EngineConfig{}, zap.NewNop())

	for _, p := range []string{"100", "120"} {
		adapter.products = []adapters.ExternalProduct{{ExternalID: "p-1", SKU: "P-1", Name: "Saw", Price: price(p)}}
		_, err := engine.ImportProductsByBrands(ctx, companyID, supplierID, nil, DefaultImportOptions())
		require.NoError(t, err)
	}

	var value string
	require.NoError(t, db.QueryRowContext(ctx, `
		SELECT pr.value::text FROM core.prices pr JOIN core.products p ON p.id = pr.product_id
		WHERE p.company_id = $1 AND p.external_id = 'p-1' AND pr.price_type = $2`,
		companyID, models.PriceTypeSupplier).Scan(&value))
	assert.Equal(t, "120.00", value)
}
