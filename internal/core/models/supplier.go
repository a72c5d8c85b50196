package models

import "time"

// Supplier представляет поставщика компании (арендатора).
// В базе данных хранится в таблице core.suppliers.
type Supplier struct {
	ID        int64  `json:"id"`
	CompanyID int64  `json:"company_id"`
	Name      string `json:"name"`
	TypeCode  string `json:"type_code"`
	// Credentials: конверт шифра либо открытый JSON без секретных полей.
	Credentials string    `json:"-"`
	IsActive    bool      `json:"is_active"`
	Priority    int       `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Marketplace: подключение компании к маркетплейсу (core.marketplaces).
type Marketplace struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	Name        string    `json:"name"`
	TypeCode    string    `json:"type_code"`
	Credentials string    `json:"-"`
	IsActive    bool      `json:"is_active"`
	Priority    int       `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
