package suppliers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gomarketplace_hub/internal/core/adapters"
	"gomarketplace_hub/internal/core/models"
	"gomarketplace_hub/pkg/credentials"
)

var (
	ErrNotFound = errors.New("supplier not found or inactive")
	// ErrCredentialsUnusable: сохранённые учётные данные не читаются; пользователю нужно
	// заново подключить поставщика.
	ErrCredentialsUnusable = errors.New("supplier credentials are unusable, reconnect the supplier")
)

// Store: поставщики компании и всё, что нужно для работы с их API.
type Store struct {
	db       *sql.DB
	cipher   *credentials.Cipher
	registry *adapters.Registry
	log      *zap.Logger
}

func NewStore(db *sql.DB, cipher *credentials.Cipher, registry *adapters.Registry, log *zap.Logger) *Store {
	return &Store{db: db, cipher: cipher, registry: registry, log: log.Named("suppliers")}
}

const supplierColumns = `id, company_id, name, type_code, credentials, is_active, priority, created_at, updated_at`

func scanSupplier(row interface{ Scan(...any) error }) (*models.Supplier, error) {
	var s models.Supplier
	err := row.Scan(&s.ID, &s.CompanyID, &s.Name, &s.TypeCode, &s.Credentials, &s.IsActive, &s.Priority, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Get возвращает активного поставщика компании.
func (s *Store) Get(ctx context.Context, companyID, supplierID int64) (*models.Supplier, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+supplierColumns+` FROM core.suppliers WHERE id = $1 AND company_id = $2 AND is_active`,
		supplierID, companyID)

	sup, err := scanSupplier(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier %d: %w", supplierID, err)
	}
	return sup, nil
}

// ListActive: активные поставщики компании по приоритету.
func (s *Store) ListActive(ctx context.Context, companyID int64) ([]models.Supplier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+supplierColumns+` FROM core.suppliers WHERE company_id = $1 AND is_active ORDER BY priority DESC, id`,
		companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	defer rows.Close()

	var out []models.Supplier
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		out = append(out, *sup)
	}
	return out, rows.Err()
}

// Create сохраняет поставщика; учётные данные всегда шифруются.
func (s *Store) Create(ctx context.Context, sup *models.Supplier, creds adapters.Credentials) error {
	if _, err := adapters.ParseType(sup.TypeCode); err != nil {
		return err
	}
	envelope, err := s.cipher.Encrypt(map[string]any(creds))
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO core.suppliers (company_id, name, type_code, credentials, is_active, priority)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		RETURNING id, created_at, updated_at`,
		sup.CompanyID, sup.Name, sup.TypeCode, envelope, sup.Priority,
	).Scan(&sup.ID, &sup.CreatedAt, &sup.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create supplier: %w", err)
	}

	sup.Credentials = envelope
	sup.IsActive = true
	s.log.Info("Supplier created", zap.Int64("id", sup.ID), zap.String("type", sup.TypeCode))
	return nil
}

// RotateCredentials заменяет учётные данные; адаптеры создаются на каждый вызов,
// поэтому новые данные начинают работать сразу.
func (s *Store) RotateCredentials(ctx context.Context, companyID, supplierID int64, creds adapters.Credentials) error {
	envelope, err := s.cipher.Encrypt(map[string]any(creds))
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE core.suppliers SET credentials = $1, updated_at = NOW() WHERE id = $2 AND company_id = $3`,
		envelope, supplierID, companyID)
	if err != nil {
		return fmt.Errorf("failed to rotate credentials: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Credentials расшифровывает конверт (текущий или legacy) либо читает открытый JSON.
func (s *Store) Credentials(sup *models.Supplier) (adapters.Credentials, error) {
	if sup.Credentials == "" {
		return adapters.Credentials{}, nil
	}

	var out adapters.Credentials
	if credentials.IsEncrypted(sup.Credentials) {
		if err := s.cipher.DecryptInto(sup.Credentials, &out); err != nil {
			s.log.Warn("Failed to decrypt supplier credentials", zap.Int64("supplier_id", sup.ID), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrCredentialsUnusable, err)
		}
		return out, nil
	}

	if err := json.Unmarshal([]byte(sup.Credentials), &out); err != nil {
		return nil, fmt.Errorf("%w: credentials are neither encrypted nor json", ErrCredentialsUnusable)
	}
	return out, nil
}

// Adapter строит свежий адаптер поставщика.
func (s *Store) Adapter(ctx context.Context, companyID, supplierID int64) (*models.Supplier, adapters.Adapter, error) {
	sup, err := s.Get(ctx, companyID, supplierID)
	if err != nil {
		return nil, nil, err
	}
	creds, err := s.Credentials(sup)
	if err != nil {
		return nil, nil, err
	}
	a, err := s.registry.Create(sup.TypeCode, creds)
	if err != nil {
		return nil, nil, err
	}
	return sup, a, nil
}

func (s *Store) TestConnection(ctx context.Context, companyID, supplierID int64) (adapters.ConnectionResult, error) {
	_, a, err := s.Adapter(ctx, companyID, supplierID)
	if err != nil {
		return adapters.ConnectionResult{Success: false, Message: err.Error()}, err
	}
	return a.TestConnection(ctx)
}

func (s *Store) Warehouses(ctx context.Context, companyID, supplierID int64) ([]adapters.Warehouse, error) {
	_, a, err := s.Adapter(ctx, companyID, supplierID)
	if err != nil {
		return nil, err
	}
	lister, err := adapters.Warehouses(a)
	if err != nil {
		return nil, err
	}
	return lister.GetWarehouses(ctx)
}

func (s *Store) SearchProducts(ctx context.Context, companyID, supplierID int64, query string, opts adapters.SearchOptions) ([]adapters.ExternalProduct, error) {
	_, a, err := s.Adapter(ctx, companyID, supplierID)
	if err != nil {
		return nil, err
	}
	searcher, err := adapters.Searcher(a)
	if err != nil {
		return nil, err
	}
	return searcher.SearchProducts(ctx, query, opts)
}
