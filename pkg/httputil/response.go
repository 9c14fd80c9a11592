package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/logger"
)

var validate = validator.New()

// Response is the JSON envelope of every API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RespondJSON writes payload with the given status
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// RespondOK writes a successful envelope
func RespondOK(w http.ResponseWriter, status int, message string, data interface{}) {
	RespondJSON(w, status, Response{Success: true, Message: message, Data: data})
}

// RespondError writes a failed envelope with a status derived from err.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	message := err.Error()

	if status == http.StatusInternalServerError {
		logger.Error(r.Context()).
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("kind", apperr.KindOf(err).String()).
			Msg("Request failed")
		message = "internal server error"
	}

	RespondJSON(w, status, Response{Success: false, Error: message})
}

// RespondMessage writes a failed envelope with an explicit status
func RespondMessage(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, Response{Success: false, Error: message})
}

// StatusFor maps an error to its HTTP status
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindInvalidTransition:
		return http.StatusConflict
	case apperr.KindInsufficientStock:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads a JSON body into dst and runs its validate tags.
func Decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return apperr.Validation("invalid request: %s", strings.Join(fields, ", "))
		}
		return apperr.Validation("invalid request: %v", err)
	}
	return nil
}

// PathID parses a numeric route variable.
func PathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return uint(id), nil
}

// QueryInt parses an optional integer query parameter.
func QueryInt(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil {
		return v
	}
	return def
}
