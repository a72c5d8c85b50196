package models

import (
	"encoding/json"
	"time"
)

type Brand struct {
	ID        int64  `json:"id"`
	CompanyID int64  `json:"company_id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
}

// BrandSynonym: подтверждённое соответствие названия бренда у поставщика внутреннему бренду.
type BrandSynonym struct {
	ID                int64           `json:"id"`
	CompanyID         int64           `json:"company_id"`
	SupplierID        int64           `json:"supplier_id"`
	BrandID           int64           `json:"brand_id"`
	ExternalBrandName string          `json:"external_brand_name"`
	NormalizedName    string          `json:"normalized_name"`
	IsActive          bool            `json:"is_active"`
	SyncEnabled       bool            `json:"sync_enabled"`
	Settings          json.RawMessage `json:"settings"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
