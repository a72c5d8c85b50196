package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"gomarketplace_hub/internal/core/adapters"
	"gomarketplace_hub/internal/core/brands"
	"gomarketplace_hub/internal/core/importer"
	"gomarketplace_hub/internal/core/jobs"
	"gomarketplace_hub/internal/core/suppliers"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError переводит доменные ошибки в HTTP-коды. Текст ответа поставщика
// только в лог: клиенту уходит общее сообщение.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		unknown     *adapters.UnknownAdapterTypeError
		unsupported *adapters.UnsupportedOperationError
		conn        *adapters.ConnectionError
	)
	switch {
	case errors.Is(err, suppliers.ErrNotFound), errors.Is(err, jobs.ErrNotFound), errors.Is(err, brands.ErrBrandNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, suppliers.ErrCredentialsUnusable):
		writeMessage(w, http.StatusConflict, "supplier credentials cannot be read, reconnect the supplier")
	case errors.Is(err, importer.ErrImportInProgress):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.As(err, &unknown), errors.As(err, &unsupported), errors.Is(err, brands.ErrEmptyName):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &conn):
		s.log.Warn("Upstream API error", zap.String("adapter", conn.Adapter.String()),
			zap.String("op", conn.Op), zap.Int("status", conn.StatusCode), zap.String("message", conn.Message))
		writeMessage(w, http.StatusBadGateway, "supplier API request failed")
	default:
		s.log.Error("Request failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
