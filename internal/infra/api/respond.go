package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/infra/logging"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy onto HTTP.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindUserRecoverable:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindGatewayFailure:
		return http.StatusPaymentRequired
	case domain.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal details from clients.
func publicMessage(kind domain.Kind, err error) string {
	if kind == domain.KindInternal || kind == domain.KindInvariant {
		return "internal error"
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	kind := domain.Classify(err)
	l := logging.With(r.Context(), logger)
	switch kind {
	case domain.KindInternal, domain.KindInvariant:
		l.Error().Err(err).Str("kind", kind.String()).Msg("request failed")
	case domain.KindTransient, domain.KindGatewayFailure:
		l.Warn().Err(err).Str("kind", kind.String()).Msg("request failed")
	default:
		l.Debug().Err(err).Str("kind", kind.String()).Msg("request rejected")
	}
	writeJSON(w, statusFor(kind), errorBody{Error: publicMessage(kind, err), Kind: kind.String()})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument)
	}
	return nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: bad %s", domain.ErrInvalidArgument, name)
	}
	return v, nil
}
