package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"
)

// codedError carries the HTTP status and the machine-readable code written
// into the error envelope. Detail is optional extra payload (e.g. the parsed
// body of a failed upstream call).
type codedError struct {
	code   string
	status int
	detail any
}

func (e *codedError) Error() string {
	return e.code
}

func CodedErrorf(status int, format string, args ...any) error {
	return &codedError{code: fmt.Sprintf(format, args...), status: status}
}

func ErrorWithDetail(status int, code string, detail any) error {
	return &codedError{code: code, status: status, detail: detail}
}

// errorEnvelope is the wire shape of every error response.
type errorEnvelope struct {
	Error  string `json:"error"`
	Detail any    `json:"detail,omitempty"`
}

// Response lets a handler pick a non-200 status or relay raw upstream bytes.
// A Body of type json.RawMessage is written verbatim.
type Response struct {
	Status int
	Body   any
}

func ParseRequest[T any](r *http.Request) (T, error) {
	var data T
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		slog.Error("error parsing request body", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "invalid_request_body")
	}
	return data, nil
}

func ParseRequestQueryParams[T any](r *http.Request) (T, error) {
	var data T
	if err := r.ParseForm(); err != nil {
		slog.Error("error parsing form", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "invalid_query_params")
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	if err := decoder.Decode(&data, r.Form); err != nil {
		slog.Error("error decoding query params", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "invalid_query_params")
	}

	return data, nil
}

// RestHandler converts a (Request) -> (result, error) handler into an
// http.HandlerFunc. Coded errors become their JSON envelope with the carried
// status; anything else is a generic server_error so no internals leak.
func RestHandler(handler func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := handler(r)
		if err != nil {
			var cerr *codedError
			if errors.As(err, &cerr) {
				if cerr.status == http.StatusInternalServerError {
					slog.Error("internal server error received in endpoint", "error", err)
				}
				WriteJsonResponse(w, cerr.status, errorEnvelope{Error: cerr.code, Detail: cerr.detail})
			} else {
				slog.Error("received non coded error from endpoint", "error", err)
				WriteJsonResponse(w, http.StatusInternalServerError, errorEnvelope{Error: "server_error"})
			}
			return
		}

		status := http.StatusOK
		if resp, ok := res.(*Response); ok {
			status = resp.Status
			res = resp.Body
		}
		if res == nil {
			res = struct{}{}
		}

		WriteJsonResponse(w, status, res)
	}
}

func WriteJsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("error serializing response body", "error", err)
	}
}

func WriteJsonError(w http.ResponseWriter, status int, code string) {
	WriteJsonResponse(w, status, errorEnvelope{Error: code})
}
