package importer

import (
	"errors"
	"fmt"

	"gomarketplace_hub/internal/core/suppliers"
)

var (
	ErrSupplierNotFound    = suppliers.ErrNotFound
	ErrCredentialsUnusable = suppliers.ErrCredentialsUnusable
	// ErrImportInProgress: по этому поставщику уже идёт импорт в другом процессе.
	ErrImportInProgress = errors.New("import for this supplier is already running")
	errMissingKeys      = errors.New("record has neither external id nor sku")
)

// RecordError: ошибка одной записи; прогон при этом продолжается.
type RecordError struct {
	Identifier string `json:"identifier"`
	Message    string `json:"message"`
}

func (e RecordError) Error() string {
	return fmt.Sprintf("%s: %s", e.Identifier, e.Message)
}
