package handle

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"weighline/internal/weighing/app/core"
)

var errBadJSON = errors.New("failed to parse JSON")

// jsonResponse writes data as a JSON-encoded response with the given status code.
func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// jsonError writes an error response as JSON with the specified HTTP status code.
func jsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	})
}

// statusFor maps domain errors to response codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrRecipeNotFound),
		errors.Is(err, core.ErrMaterialNotFound),
		errors.Is(err, core.ErrBinNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidFormat),
		errors.Is(err, core.ErrInvalidNumber),
		errors.Is(err, core.ErrInvalidDuration),
		errors.Is(err, core.ErrInvalidIndex),
		errors.Is(err, core.ErrFieldIsEmpty),
		errors.Is(err, errBadJSON):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDuplicateNumber),
		errors.Is(err, core.ErrOPSequenceExhausted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	jsonError(w, statusFor(err), err)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

func pathIndex(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidIndex, raw)
	}
	return index, nil
}

func errBadQuery(param, value string) error {
	return fmt.Errorf("%w: query %s=%q", core.ErrInvalidFormat, param, value)
}
