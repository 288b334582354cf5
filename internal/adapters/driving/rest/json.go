package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

// maxBodySize bounds request bodies; chunk content is capped below it.
const maxBodySize = domain.MaxChunkContentSize + 64*1024

// envelope is the body of every response.
type envelope struct {
	Status  domain.Status `json:"status"`
	Message string        `json:"message,omitempty"`
	Data    any           `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func writeData(w http.ResponseWriter, code int, status domain.Status, data any) {
	writeJSON(w, code, envelope{Status: status, Data: data})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, envelope{Status: statusForCode(code), Message: message})
}

// writeFailure maps a service error onto an HTTP status code.
func writeFailure(w http.ResponseWriter, err error) {
	status := domain.StatusOf(err)
	code := http.StatusInternalServerError
	switch status {
	case domain.StatusNotFound:
		code = http.StatusNotFound
	case domain.StatusInvalidInput:
		code = http.StatusBadRequest
	case domain.StatusConflict:
		code = http.StatusConflict
	}
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, code, envelope{Status: status, Message: msg})
}

func statusForCode(code int) domain.Status {
	switch code {
	case http.StatusNotFound:
		return domain.StatusNotFound
	case http.StatusBadRequest:
		return domain.StatusInvalidInput
	case http.StatusConflict:
		return domain.StatusConflict
	default:
		return domain.StatusError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}

// queryInt reads an integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name)) //nolint:errcheck // absent means false
	return v
}
