package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"laplog/internal/core"
)

// retryAfterSeconds is advertised when the store is temporarily unwritable.
const retryAfterSeconds = 30

// sanitizeInput trims whitespace and drops control characters other than
// tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// formatMeters renders a distance for humans: "850 m" or "1.24 km".
func formatMeters(m int64) string {
	if m < 1000 {
		return strconv.FormatInt(m, 10) + " m"
	}
	km := strconv.FormatFloat(float64(m)/1000, 'f', 2, 64)
	km = strings.TrimRight(strings.TrimRight(km, "0"), ".")
	return km + " km"
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrIOFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the text shown for err. Validation messages are safe to
// echo; anything else is replaced.
func publicMessage(err error) string {
	switch statusFor(err) {
	case http.StatusUnprocessableEntity:
		return err.Error()
	case http.StatusServiceUnavailable:
		return "Storage is unavailable, please try again shortly"
	default:
		return "Internal error"
	}
}

// serviceError builds the HTMX fragment for a failed service call.
func serviceError(err error) *HTMXResponseBuilder {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		return ServiceUnavailableError(publicMessage(err), retryAfterSeconds)
	}
	return ErrorResponse(status, publicMessage(err))
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	writeJSON(w, status, apiError{Error: publicMessage(err)})
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
