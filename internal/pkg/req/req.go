/*
Package req provides helper functions for HTTP request parsing and data binding.

It decodes JSON bodies strictly and parses bounded query parameters, returning
errs.CustomError values that the handlers pass straight to resp.RespondError.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"syncroom/internal/pkg/errs"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes int64 = 64 << 10

// BindJSON attempts to bind the JSON data from the HTTP request body to the destination struct dst.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// QueryInt reads the integer query parameter key. A missing parameter yields def;
// a malformed or out-of-range one yields ErrInvalidParams.
func QueryInt(r *http.Request, key string, def, min, max int) (int, *errs.CustomError) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}
	return n, nil
}
