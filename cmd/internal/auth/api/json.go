package authapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"vidtube/cmd/internal/apperr"
)

// successEnvelope is the body of every 2xx response.
type successEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// errorEnvelope is the body of every error response.
type errorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
}

var errEmptyBody = errors.New("empty body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data any, msg string) {
	if data == nil {
		data = struct{}{}
	}
	writeJSON(w, status, successEnvelope{
		StatusCode: status,
		Data:       data,
		Message:    msg,
		Success:    status < 400,
	})
}

func writeError(w http.ResponseWriter, status int, msg string, errs ...string) {
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, status, errorEnvelope{
		StatusCode: status,
		Success:    false,
		Message:    msg,
		Errors:     errs,
	})
}

// writeAppError renders err as an error envelope. Internal causes are logged,
// never written.
func writeAppError(w http.ResponseWriter, log *slog.Logger, err error) {
	ae := apperr.From(err)
	if ae.Kind == apperr.KindInternal && log != nil {
		log.Error("http.internal_error", "err", ae.Cause)
	}
	writeError(w, ae.Status(), ae.Message, ae.Errors...)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	// Ensure there is no extra data after the first JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
