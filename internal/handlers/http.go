package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/tennisbracket/internal/errors"
)

// Error codes returned in the "code" field of error bodies
const (
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeConfiguration  = "CONFIGURATION_ERROR"
	ErrCodeUnavailable    = "UPSTREAM_UNAVAILABLE"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
)

// APIError is the JSON error body plus the status it is sent with
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates an API error
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrCodeBadRequest, message)
}

func NotFound(message string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrCodeNotFound, message)
}

func Conflict(message string) *APIError {
	return NewAPIError(http.StatusConflict, ErrCodeConflict, message)
}

// Unavailable is sent when the draw source did not answer
func Unavailable(message string) *APIError {
	return NewAPIError(http.StatusBadGateway, ErrCodeUnavailable, message)
}

// InternalError logs err and hides it from the client
func InternalError(err error) *APIError {
	log.Printf("Internal error: %v", err)
	return NewAPIError(http.StatusInternalServerError, ErrCodeInternalServer, "Internal server error")
}

// kindStatus maps error kinds that reach clients verbatim
var kindStatus = map[errors.Kind]struct {
	status int
	code   string
}{
	errors.ErrNotFound:      {http.StatusNotFound, ErrCodeNotFound},
	errors.ErrValidation:    {http.StatusBadRequest, ErrCodeValidation},
	errors.ErrInvalidInput:  {http.StatusBadRequest, ErrCodeValidation},
	errors.ErrConflict:      {http.StatusConflict, ErrCodeConflict},
	errors.ErrConfiguration: {http.StatusUnprocessableEntity, ErrCodeConfiguration},
	errors.ErrUnavailable:   {http.StatusBadGateway, ErrCodeUnavailable},
}

// ToAPIError converts a service error to the response sent for it
func ToAPIError(err error) *APIError {
	var appErr *errors.Error
	if !stderrors.As(err, &appErr) {
		return InternalError(err)
	}
	m, ok := kindStatus[appErr.Kind]
	if !ok {
		return InternalError(err)
	}
	if appErr.Kind == errors.ErrUnavailable {
		log.Printf("Upstream error: %v", err)
	}
	return NewAPIError(m.status, m.code, appErr.Message)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondOK(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, data)
}

func respondCreated(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusCreated, data)
}

func respondDeleted(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func respondError(w http.ResponseWriter, err error) {
	var apiErr *APIError
	if !stderrors.As(err, &apiErr) {
		apiErr = ToAPIError(err)
	}
	respondJSON(w, apiErr.Status, apiErr)
}

// decodeJSON reads a JSON request body into target
func decodeJSON(r *http.Request, target any) error {
	err := json.NewDecoder(r.Body).Decode(target)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, io.EOF):
		return BadRequest("Request body is empty")
	default:
		return BadRequest("Invalid JSON: " + err.Error())
	}
}

// parseIntQuery parses an optional integer query parameter
func parseIntQuery(r *http.Request, name string, def int) (int, error) {
	param := r.URL.Query().Get(name)
	if param == "" {
		return def, nil
	}
	n, err := strconv.Atoi(param)
	if err != nil {
		return 0, BadRequest("Invalid " + name + " parameter")
	}
	return n, nil
}

// urlParam returns a required route parameter
func urlParam(r *http.Request, name string) (string, error) {
	if param := chi.URLParam(r, name); param != "" {
		return param, nil
	}
	return "", BadRequest("Missing " + name + " parameter")
}
