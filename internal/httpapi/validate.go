package httpapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateRequest runs struct-tag validation and, on failure, writes a 400
// invalid_request response. Returns false when the caller should stop.
func validateRequest(w http.ResponseWriter, v any) bool {
	if err := validate.Struct(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request", "error_description": err.Error()})
		return false
	}
	return true
}
