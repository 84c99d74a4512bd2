package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/sorenby/docuvault/internal/errors"
)

// errorResponse is the JSON body for every failed request.
type errorResponse struct {
	Error string           `json:"error"`
	Code  errors.ErrorCode `json:"code"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders an error as JSON using its mapped HTTP status.
// Unknown errors surface as a generic internal failure.
func writeError(w http.ResponseWriter, err error) {
	appErr := errors.From(err)
	writeJSON(w, appErr.HTTPStatus(), errorResponse{
		Error: appErr.Message,
		Code:  appErr.Code,
	})
}
