package infrastructure

import (
	"gomarketplace_hub/pkg/dbconnect/migration"
)

// CoreSuppliers: поставщики и подключения к маркетплейсам компаний.
var CoreSuppliers = &migration.Named{
	Name: "core_suppliers_v1",
	Queries: []string{
		`CREATE SCHEMA IF NOT EXISTS core;`,
		`CREATE TABLE IF NOT EXISTS core.suppliers (
			id          BIGSERIAL PRIMARY KEY,
			company_id  BIGINT NOT NULL,
			name        VARCHAR(255) NOT NULL,
			type_code   VARCHAR(32) NOT NULL,
			credentials TEXT NOT NULL DEFAULT '',
			is_active   BOOLEAN NOT NULL DEFAULT TRUE,
			priority    INT NOT NULL DEFAULT 0,
			created_at  TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMP NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS suppliers_company_idx ON core.suppliers (company_id, is_active, priority);`,
		`CREATE TABLE IF NOT EXISTS core.marketplaces (
			id          BIGSERIAL PRIMARY KEY,
			company_id  BIGINT NOT NULL,
			name        VARCHAR(255) NOT NULL,
			type_code   VARCHAR(32) NOT NULL,
			credentials TEXT NOT NULL DEFAULT '',
			is_active   BOOLEAN NOT NULL DEFAULT TRUE,
			priority    INT NOT NULL DEFAULT 0,
			created_at  TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMP NOT NULL DEFAULT NOW()
		);`,
	},
}

// CoreBrands: бренды компании и подтверждённые синонимы от поставщиков.
// Частичный уникальный индекс держит не больше одного активного соответствия
// на нормализованное имя.
var CoreBrands = &migration.Named{
	Name: "core_brands_v1",
	Queries: []string{
		`CREATE TABLE IF NOT EXISTS core.brands (
			id         BIGSERIAL PRIMARY KEY,
			company_id BIGINT NOT NULL,
			name       VARCHAR(255) NOT NULL,
			is_active  BOOLEAN NOT NULL DEFAULT TRUE
		);`,
		`CREATE TABLE IF NOT EXISTS core.brand_synonyms (
			id                  BIGSERIAL PRIMARY KEY,
			company_id          BIGINT NOT NULL,
			supplier_id         BIGINT NOT NULL REFERENCES core.suppliers(id) ON DELETE CASCADE,
			brand_id            BIGINT NOT NULL REFERENCES core.brands(id) ON DELETE CASCADE,
			external_brand_name VARCHAR(255) NOT NULL,
			normalized_name     VARCHAR(255) NOT NULL,
			is_active           BOOLEAN NOT NULL DEFAULT TRUE,
			sync_enabled        BOOLEAN NOT NULL DEFAULT TRUE,
			settings            JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at          TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (company_id, supplier_id, brand_id, external_brand_name)
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS brand_synonyms_active_uidx
			ON core.brand_synonyms (company_id, supplier_id, normalized_name) WHERE is_active;`,
	},
}

// CoreProducts: внутренний каталог. Товар внутри компании определяется external_id,
// а если его нет - sku.
var CoreProducts = &migration.Named{
	Name: "core_products_v1",
	Queries: []string{
		`CREATE TABLE IF NOT EXISTS core.products (
			id          BIGSERIAL PRIMARY KEY,
			company_id  BIGINT NOT NULL,
			supplier_id BIGINT REFERENCES core.suppliers(id) ON DELETE SET NULL,
			name        TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			sku         VARCHAR(255) NOT NULL DEFAULT '',
			barcode     VARCHAR(64) NOT NULL DEFAULT '',
			brand_id    BIGINT REFERENCES core.brands(id) ON DELETE SET NULL,
			external_id VARCHAR(255),
			source_type VARCHAR(32) NOT NULL,
			attributes  JSONB NOT NULL DEFAULT '{}'::jsonb,
			is_active   BOOLEAN NOT NULL DEFAULT TRUE,
			created_at  TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMP NOT NULL DEFAULT NOW()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS products_company_external_uidx
			ON core.products (company_id, external_id);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS products_company_sku_uidx
			ON core.products (company_id, sku) WHERE external_id IS NULL;`,
		`CREATE TABLE IF NOT EXISTS core.product_images (
			id         BIGSERIAL PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES core.products(id) ON DELETE CASCADE,
			url        TEXT NOT NULL,
			position   INT NOT NULL DEFAULT 0,
			is_main    BOOLEAN NOT NULL DEFAULT FALSE
		);`,
		`CREATE INDEX IF NOT EXISTS product_images_product_idx ON core.product_images (product_id, position);`,
		`CREATE TABLE IF NOT EXISTS core.prices (
			product_id BIGINT NOT NULL REFERENCES core.products(id) ON DELETE CASCADE,
			price_type VARCHAR(32) NOT NULL,
			value      NUMERIC(14, 2) NOT NULL,
			currency   CHAR(3) NOT NULL DEFAULT 'RUB',
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			PRIMARY KEY (product_id, price_type)
		);`,
		`CREATE TABLE IF NOT EXISTS core.stocks (
			product_id   BIGINT NOT NULL REFERENCES core.products(id) ON DELETE CASCADE,
			warehouse_id VARCHAR(64) NOT NULL,
			available    INT NOT NULL DEFAULT 0,
			updated_at   TIMESTAMP NOT NULL DEFAULT NOW(),
			PRIMARY KEY (product_id, warehouse_id)
		);`,
	},
}

// Migrations: порядок применения схемы core.
func Migrations() []migration.MigrationInterface {
	return []migration.MigrationInterface{
		&migration.MigrationsSchema{},
		CoreSuppliers,
		CoreBrands,
		CoreProducts,
	}
}
