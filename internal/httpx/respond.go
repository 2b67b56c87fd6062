package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/inventory"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/orders"
	zlog "github.com/rs/zerolog/log"
)

type errorBody struct {
	Error      string                `json:"error"`
	Details    []string              `json:"details,omitempty"`
	Shortfalls []inventory.Shortfall `json:"shortfalls,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// writeError maps the order error taxonomy onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		ve *orders.ValidationError
		se *orders.StockError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request", Details: ve.Problems})
	case errors.As(err, &se):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "insufficient stock", Shortfalls: se.Shortfalls})
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, orders.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, orders.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		zlog.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to save changes"})
	}
}
