// Package handlers implements the CompeteIQ HTTP endpoints.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/turtacn/competeiq/pkg/errors"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeAppError maps err to a status through its ErrorCode. Server-side
// failures are masked.
func writeAppError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatusForCode(code)

	msg := "internal server error"
	var ae *errors.AppError
	if status < http.StatusInternalServerError || status == http.StatusNotImplemented {
		if stderrors.As(err, &ae) {
			msg = ae.Message
			if ae.Detail != "" {
				msg += ": " + ae.Detail
			}
		}
	}
	writeJSON(w, status, ErrorResponse{Code: code.String(), Message: msg})
}

// decodeJSON reads a single JSON value of at most limit bytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return errors.InvalidParam("request body too large")
		case stderrors.Is(err, io.EOF):
			return errors.InvalidParam("request body is empty")
		default:
			return errors.InvalidParam("malformed JSON body").WithCause(err)
		}
	}
	return nil
}
