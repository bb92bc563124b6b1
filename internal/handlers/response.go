package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/EcosystemNetwork/Conductor/internal/services"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors to HTTP statuses. Anything unrecognized is
// logged and reported as 500 without leaking the cause.
func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrAgentNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrAPIKeyNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrNotAssigned):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error(op, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// decodeBody reads the request body and validates it against the named schema
// before unmarshalling into dst.
func decodeBody(r *http.Request, v *services.Validator, schema string, dst interface{}) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", services.ErrValidation, err)
	}
	return v.Decode(schema, raw, dst)
}
