// Package http serves the laplog UI and JSON API.
//
// This file holds the request parsing helpers shared by the handlers: month
// selection from query strings and body parsing for HTMX forms and JSON.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"laplog/internal/core"
	"laplog/internal/services"
)

// maxBodyBytes bounds every form or JSON body.
const maxBodyBytes = 64 << 10

// ParseMonthParams picks the month from query parameters. A "month" of the
// form YYYY-MM wins; otherwise "year" and a numeric "month" fill in the
// parts that are present, defaulting to the month of now.
func ParseMonthParams(query url.Values, now time.Time) (core.YearMonth, error) {
	raw := strings.TrimSpace(query.Get("month"))
	if strings.Contains(raw, "-") {
		return core.ParseYearMonth(raw)
	}

	current := core.CurrentYearMonth(now)
	year, month := current.Year, int(current.Month)
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.YearMonth{}, fmt.Errorf("%w: year %q", core.ErrInvalidMonth, v)
		}
		year = y
	}
	if raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil {
			return core.YearMonth{}, fmt.Errorf("%w: month %q", core.ErrInvalidMonth, raw)
		}
		month = m
	}
	return core.NewYearMonth(year, month)
}

// RequestBodyParser reads a request body once and exposes its fields
// whether it was sent as JSON or as a urlencoded form.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse decodes the body. A body starting with '{' is JSON, anything else
// is a form.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' || strings.Contains(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns the sanitized value for key, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// SaveInput reads the logging form. Lap counts must be whole numbers;
// a blank count means zero.
func (p *RequestBodyParser) SaveInput() (services.SaveInput, error) {
	field, err := core.ParseLaps(p.Get("field_laps"))
	if err != nil {
		return services.SaveInput{}, err
	}
	gym, err := core.ParseLaps(p.Get("gym_laps"))
	if err != nil {
		return services.SaveInput{}, err
	}
	return services.SaveInput{
		Owner:     p.Get("owner"),
		Date:      p.Get("date"),
		Activity:  p.Get("activity"),
		FieldLaps: field,
		GymLaps:   gym,
	}, nil
}

// DeleteInput reads a delete request. A missing activity asks for the
// whole day.
func (p *RequestBodyParser) DeleteInput() services.DeleteInput {
	return services.DeleteInput{
		Owner:    p.Get("owner"),
		Date:     p.Get("date"),
		Activity: p.Get("activity"),
	}
}

// RequireMethod returns a 405 response unless r uses one of methods.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}
