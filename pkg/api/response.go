package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 10 << 20

// writeJSONResponse writes a JSON response with the given status code. The
// body is encoded before the header is sent so values JSON cannot represent,
// such as NaN, produce a 500 instead of a truncated body.
func writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		log.Errorf("Failed to encode response: %v", err)
		writeErrorResponse(w, http.StatusInternalServerError, "failed to encode response: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(buf.Bytes())
}

// writeErrorResponse writes an error response with the given status code and message
func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]any{
		"error":  message,
		"status": "error",
	})
}

// writeMessageResponse writes a 200 response carrying a message
func writeMessageResponse(w http.ResponseWriter, message string) {
	writeJSONResponse(w, http.StatusOK, map[string]any{"message": message})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNotFitted):
		return http.StatusConflict
	case models.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err with the status its kind maps to
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
	} else {
		log.Debugf("%s %s rejected: %v", r.Method, r.URL.Path, err)
	}
	writeErrorResponse(w, status, err.Error())
}

// decodeJSON decodes the request body into v. An empty body decodes to the
// zero value when allowEmpty is set.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == io.EOF && allowEmpty {
		return nil
	}
	if err != nil {
		return errors.Wrapf(models.ErrInvalidArgument, "invalid request body: %v", err)
	}
	return nil
}
