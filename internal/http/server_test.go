package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"laplog/internal/blob/memory"
	"laplog/internal/core"
	"laplog/internal/log"
	"laplog/internal/services"
	"laplog/internal/store"
)

type brokenWriter struct{}

func (brokenWriter) Put(context.Context, string, []byte) error { return errors.New("disk gone") }

var testNow = time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)

func quietLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard
	return log.New(cfg)
}

// newTestServer serves st, or a fresh memory-backed store when st is nil.
func newTestServer(t *testing.T, st *store.Store, opts ...Option) *Server {
	t.Helper()
	if st == nil {
		var err error
		st, err = store.Open(context.Background(), memory.New(), store.DefaultKey)
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
	}
	clock := func() time.Time { return testNow }
	svc := services.NewRecordService(st, services.WithClock(clock), services.WithLogger(quietLogger()))
	all := append([]Option{WithClock(clock), WithLogger(quietLogger())}, opts...)
	srv := NewServer(":0", svc, all...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, target string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func doJSON(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func saveForm(owner, date, activity, field, gym string) url.Values {
	return url.Values{
		"owner":      {owner},
		"date":       {date},
		"activity":   {activity},
		"field_laps": {field},
		"gym_laps":   {gym},
	}
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Who is exercising?") {
		t.Fatalf("index should ask for the owner:\n%s", rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request ID header")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing security headers")
	}

	rr = do(srv, http.MethodGet, "/?owner=%20Alice%20", nil)
	body := rr.Body.String()
	if rr.Code != http.StatusOK || !strings.Contains(body, "Logging as <strong>Alice</strong>") {
		t.Fatalf("owner page: status=%d body=%s", rr.Code, body)
	}
	if !strings.Contains(body, `value="2025-03-20"`) || !strings.Contains(body, "month=2025-03") {
		t.Fatalf("owner page should default to today and this month:\n%s", body)
	}

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if rr := do(srv, http.MethodGet, path, nil); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	if rr := do(srv, http.MethodGet, "/nope", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", rr.Code)
	}
}

func TestReadinessCheckFailure(t *testing.T) {
	srv := newTestServer(t, nil, WithReadinessCheck("store", func(context.Context) error {
		return errors.New("unreachable")
	}))
	rr := do(srv, http.MethodGet, "/readyz", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "failed: unreachable") {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestSession(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(srv, http.MethodPost, "/session", url.Values{"owner": {"민수"}}, "HX-Request", "true")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("HX-Redirect"); got != "/?owner="+url.QueryEscape("민수") {
		t.Fatalf("unexpected HX-Redirect %q", got)
	}

	rr = do(srv, http.MethodPost, "/session", url.Values{"owner": {"Alice"}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/?owner=Alice" {
		t.Fatalf("plain form should redirect, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = do(srv, http.MethodPost, "/session", url.Values{"owner": {"   "}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for blank owner, got %d", rr.Code)
	}

	if rr := do(srv, http.MethodGet, "/session", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestSaveRecordAndSeries(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(srv, http.MethodPost, "/records", saveForm("Alice", "2025-03-05", "Walk", "2", "0"))
	if rr.Code != http.StatusOK {
		t.Fatalf("save status=%d body=%s", rr.Code, rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, part := range []string{`"record:saved"`, `"month:refresh"`, `"distance":240`, `"month":3`} {
		if !strings.Contains(trigger, part) {
			t.Fatalf("HX-Trigger missing %s: %s", part, trigger)
		}
	}

	rr = do(srv, http.MethodGet, "/api/series?owner=Alice&month=2025-03", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("series status=%d", rr.Code)
	}
	var view services.MonthView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Points) != 31 {
		t.Fatalf("expected 31 points, got %d", len(view.Points))
	}
	for _, p := range view.Points {
		want := int64(0)
		if p.Date.Day() == 5 {
			want = 240
		}
		if p.Walk != want || p.Run != 0 {
			t.Fatalf("unexpected point %+v", p)
		}
	}

	rr = do(srv, http.MethodGet, "/ui/month?owner=Alice&year=2025&month=3", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "240 m") {
		t.Fatalf("month partial: status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSaveRecordJSON(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := doJSON(srv, http.MethodPost, "/records",
		`{"owner":"Bob","date":"2025-03-10","activity":"run","field_laps":1,"gym_laps":3}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var rec core.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Activity != core.Run || rec.Distance != 270 {
		t.Fatalf("unexpected record %+v", rec)
	}

	rr = doJSON(srv, http.MethodPost, "/records",
		`{"owner":"Bob","date":"2025-03-10","activity":"run","field_laps":1.5}`)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), `"error"`) {
		t.Fatalf("fractional laps: status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSaveRecordValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		form url.Values
		want int
	}{
		{"blank owner", saveForm(" ", "2025-03-05", "Walk", "1", "0"), http.StatusUnprocessableEntity},
		{"bad date", saveForm("Alice", "2025-02-30", "Walk", "1", "0"), http.StatusUnprocessableEntity},
		{"bad activity", saveForm("Alice", "2025-03-05", "Swim", "1", "0"), http.StatusUnprocessableEntity},
		{"negative laps", saveForm("Alice", "2025-03-05", "Walk", "-1", "0"), http.StatusUnprocessableEntity},
		{"text laps", saveForm("Alice", "2025-03-05", "Walk", "two", "0"), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, http.MethodPost, "/records", tt.form)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), `class="error"`) {
				t.Fatalf("expected error fragment, got %s", rr.Body.String())
			}
		})
	}

	if rr := do(srv, http.MethodGet, "/records", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	rr := doJSON(srv, http.MethodPost, "/records", `{"owner":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed JSON: expected 400, got %d", rr.Code)
	}
}

func TestSaveRecordIOFailure(t *testing.T) {
	srv := newTestServer(t, store.New(store.WithPersistence(brokenWriter{}, store.DefaultKey)))

	rr := do(srv, http.MethodPost, "/records", saveForm("Alice", "2025-03-05", "Walk", "1", "0"))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After on 503")
	}
	if strings.Contains(rr.Body.String(), "disk gone") {
		t.Fatal("internal error text must not leak")
	}
}

func TestDeleteRecord(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, f := range []url.Values{
		saveForm("Alice", "2025-03-05", "Walk", "2", "0"),
		saveForm("Alice", "2025-03-05", "Run", "0", "3"),
		saveForm("Alice", "2025-03-06", "Walk", "1", "0"),
	} {
		if rr := do(srv, http.MethodPost, "/records", f); rr.Code != http.StatusOK {
			t.Fatalf("seed: %d", rr.Code)
		}
	}

	rr := do(srv, http.MethodPost, "/records/delete",
		url.Values{"owner": {"Alice"}, "date": {"2025-03-05"}, "activity": {"Walk"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("delete by key status=%d", rr.Code)
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"record:deleted"`) || !strings.Contains(trigger, `"removed":1`) {
		t.Fatalf("unexpected trigger %s", trigger)
	}

	rr = doJSON(srv, http.MethodDelete, "/records/delete", `{"owner":"Alice","date":"2025-03-05"}`)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"removed":1`) {
		t.Fatalf("delete by date: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(srv, http.MethodPost, "/records/delete",
		url.Values{"owner": {"Alice"}, "date": {"2025-03-05"}, "activity": {"Run"}})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("HX-Trigger"), `"removed":0`) {
		t.Fatalf("deleting nothing should succeed with removed=0")
	}

	rr = do(srv, http.MethodGet, "/api/records?owner=Alice", nil)
	var records []core.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].Date != core.NewDate(2025, 3, 6) {
		t.Fatalf("unexpected remaining records %+v", records)
	}

	rr = do(srv, http.MethodPost, "/records/delete", url.Values{"owner": {"Alice"}, "date": {"March 5"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad date, got %d", rr.Code)
	}
}

func TestAPIValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		target string
		want   int
	}{
		{"/api/series?owner=Alice&month=2025-13", http.StatusUnprocessableEntity},
		{"/api/series?owner=&month=2025-03", http.StatusUnprocessableEntity},
		{"/api/series?owner=Alice", http.StatusOK},
		{"/api/records?owner=", http.StatusUnprocessableEntity},
		{"/api/records?owner=Nobody", http.StatusOK},
		{"/ui/month?owner=Alice&month=x", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		rr := do(srv, http.MethodGet, tt.target, nil)
		if rr.Code != tt.want {
			t.Fatalf("%s: expected %d, got %d", tt.target, tt.want, rr.Code)
		}
	}

	rr := do(srv, http.MethodGet, "/api/records?owner=Nobody", nil)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected empty JSON array, got %s", rr.Body.String())
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	srv := newTestServer(t, nil, WithRateLimit(2))

	for i := 0; i < 2; i++ {
		if rr := do(srv, http.MethodPost, "/session", url.Values{"owner": {"Alice"}}); rr.Code != http.StatusSeeOther {
			t.Fatalf("request %d: status=%d", i, rr.Code)
		}
	}
	rr := do(srv, http.MethodPost, "/session", url.Values{"owner": {"Alice"}})
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected 429 with Retry-After, got %d", rr.Code)
	}

	if rr := do(srv, http.MethodGet, "/healthz", nil); rr.Code != http.StatusOK {
		t.Fatalf("reads are not rate limited, got %d", rr.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := do(srv, http.MethodGet, "/static/app.css", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Cache-Control"), "immutable") {
		t.Fatalf("missing cache header")
	}
}
