package suppliers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gomarketplace_hub/internal/core/adapters"
	"gomarketplace_hub/internal/core/models"
	"gomarketplace_hub/internal/suppliers/rs24"
	"gomarketplace_hub/pkg/credentials"
)

var supplierCols = []string{"id", "company_id", "name", "type_code", "credentials", "is_active", "priority", "created_at", "updated_at"}

func setupStore(t *testing.T, opts adapters.ClientOptions) (sqlmock.Sqlmock, *Store, *credentials.Cipher) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cipher, err := credentials.New(credentials.Config{Secret: "store-test"})
	require.NoError(t, err)

	registry := adapters.NewRegistry(zap.NewNop())
	registry.MustRegister(adapters.TypeRS24, rs24.NewConstructor(opts))

	return mock, NewStore(db, cipher, registry, zap.NewNop()), cipher
}

func supplierRow(creds string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(supplierCols).AddRow(3, 1, "RS24", "rs24", creds, true, 10, now, now)
}

func TestStore_GetNotFound(t *testing.T) {
	mock, store, _ := setupStore(t, adapters.ClientOptions{})

	mock.ExpectQuery(`FROM core.suppliers WHERE id = \$1 AND company_id = \$2 AND is_active`).
		WithArgs(int64(3), int64(1)).
		WillReturnRows(sqlmock.NewRows(supplierCols))

	_, err := store.Get(context.Background(), 1, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CreateEncryptsCredentials(t *testing.T) {
	mock, store, cipher := setupStore(t, adapters.ClientOptions{})

	var stored string
	mock.ExpectQuery(`INSERT INTO core.suppliers`).
		WithArgs(int64(1), "RS24", "rs24", sqlmock.AnyArg(), 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(3, time.Now(), time.Now()))

	sup := &models.Supplier{CompanyID: 1, Name: "RS24", TypeCode: "rs24", Priority: 5}
	require.NoError(t, store.Create(context.Background(), sup, adapters.Credentials{"login": "u", "password": "p"}))
	stored = sup.Credentials

	assert.True(t, credentials.IsEncrypted(stored))
	assert.NotContains(t, stored, "\"p\"")

	var back map[string]any
	require.NoError(t, cipher.DecryptInto(stored, &back))
	assert.Equal(t, "p", back["password"])
	assert.Equal(t, int64(3), sup.ID)
}

func TestStore_CreateRejectsUnknownType(t *testing.T) {
	_, store, _ := setupStore(t, adapters.ClientOptions{})

	err := store.Create(context.Background(), &models.Supplier{TypeCode: "acme"}, adapters.Credentials{})
	var unknown *adapters.UnknownAdapterTypeError
	assert.True(t, errors.As(err, &unknown))
}

func TestStore_CredentialsFormats(t *testing.T) {
	_, store, cipher := setupStore(t, adapters.ClientOptions{})

	envelope, err := cipher.Encrypt(map[string]any{"login": "enc"})
	require.NoError(t, err)

	creds, err := store.Credentials(&models.Supplier{Credentials: envelope})
	require.NoError(t, err)
	assert.Equal(t, "enc", creds["login"])

	creds, err = store.Credentials(&models.Supplier{Credentials: `{"login":"plain"}`})
	require.NoError(t, err)
	assert.Equal(t, "plain", creds["login"])

	_, err = store.Credentials(&models.Supplier{Credentials: "00ff:00ff:00ff"})
	assert.ErrorIs(t, err, ErrCredentialsUnusable)

	_, err = store.Credentials(&models.Supplier{Credentials: "garbage"})
	assert.ErrorIs(t, err, ErrCredentialsUnusable)

	other, err := credentials.New(credentials.Config{Secret: "rotated-master"})
	require.NoError(t, err)
	foreign, err := other.Encrypt(map[string]any{"login": "x"})
	require.NoError(t, err)
	_, err = store.Credentials(&models.Supplier{Credentials: foreign})
	assert.ErrorIs(t, err, ErrCredentialsUnusable)
}

func TestStore_TestConnectionBuildsFreshAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			w.Write([]byte(`{"token":"t","expires_in":60}`))
		case "/stocks":
			w.Write([]byte(`{"Stocks":[{"ORGANIZATION_ID":"1","NAME":"Main"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	mock, store, cipher := setupStore(t, adapters.ClientOptions{BaseURL: srv.URL})
	envelope, err := cipher.Encrypt(map[string]any{"login": "u", "password": "p"})
	require.NoError(t, err)

	mock.ExpectQuery(`FROM core.suppliers`).WillReturnRows(supplierRow(envelope))
	res, err := store.TestConnection(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.True(t, res.Success)

	mock.ExpectQuery(`FROM core.suppliers`).WillReturnRows(supplierRow(envelope))
	wh, err := store.Warehouses(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []adapters.Warehouse{{ID: "1", Name: "Main"}}, wh)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RotateCredentialsMissingSupplier(t *testing.T) {
	mock, store, _ := setupStore(t, adapters.ClientOptions{})

	mock.ExpectExec(`UPDATE core.suppliers SET credentials`).
		WithArgs(sqlmock.AnyArg(), int64(3), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.RotateCredentials(context.Background(), 1, 3, adapters.Credentials{"login": "new"})
	assert.ErrorIs(t, err, ErrNotFound)
}
