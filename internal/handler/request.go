package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
)

// maxJSONBodySize caps JSON request bodies.
const maxJSONBodySize = 1 << 20

// decodeJSON reads a single JSON object from the request body into dst and
// rejects fields dst does not declare.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, true)
}

// decodeUpdate is decodeJSON for partial updates. Unknown fields are ignored
// so a client can send back a record it fetched, read-only fields included.
func decodeUpdate(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, false)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, strict bool) error {
	const op = "handler.decode_json"

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return domain.Invalid(op, "Request body must not be empty")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return domain.Invalid(op, "Request body contains malformed JSON")
		case errors.As(err, &typeErr):
			if typeErr.Field != "" {
				return domain.NewValidationError(op, typeErr.Field, fmt.Sprintf("Must be a %s", typeErr.Type))
			}
			return domain.Invalid(op, "Request body contains a value of the wrong type")
		case errors.As(err, &maxErr):
			return domain.TooLarge(op, "Request body is too large")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return domain.NewValidationError(op, field, "Unknown field")
		default:
			return domain.Invalid(op, "Request body could not be decoded")
		}
	}

	if dec.More() {
		return domain.Invalid(op, "Request body must contain a single JSON object")
	}
	return nil
}

// pathID parses the named path value as a positive int64.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("handler.path_id", name, "Must be a positive integer")
	}
	return id, nil
}

// queryInt reads an integer query parameter, returning fallback when the
// parameter is absent and an error when it is malformed.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError("handler.query_int", name, "Must be a non-negative integer")
	}
	return n, nil
}
