package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"confeitaria/internal/core"
	"confeitaria/internal/log"
	"confeitaria/internal/services"
	"confeitaria/internal/store"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// errBadRequest marks malformed requests: undecodable bodies and bad path ids.
var errBadRequest = errors.New("bad request")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes: validation 422, missing
// records 404, store failures 502.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status = http.StatusInternalServerError
		body   = errorBody{Error: "internal error"}
	)
	if ve, ok := core.AsValidation(err); ok {
		status, body = http.StatusUnprocessableEntity, errorBody{Error: ve.Msg, Field: ve.Field}
	} else if errors.Is(err, errBadRequest) {
		status, body.Error = http.StatusBadRequest, err.Error()
	} else if errors.Is(err, store.ErrNotFound) {
		status, body.Error = http.StatusNotFound, "not found"
	} else if services.IsPersistence(err) {
		status, body.Error = http.StatusBadGateway, "could not save, nothing was changed"
	}

	if status >= 500 {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldStatusCode, status, log.FieldError, err)
	}
	writeJSON(w, status, body)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, r.PathValue("id"))
	}
	return id, nil
}
