package http

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"laplog/internal/core"
	"laplog/internal/log"
	"laplog/internal/series"
	"laplog/internal/services"
)

var templateFuncs = template.FuncMap{
	"meters": formatMeters,
	// percent scales v against max for the bar widths, at least 2 when v > 0.
	"percent": func(v, max int64) int {
		if v <= 0 || max <= 0 {
			return 0
		}
		p := int((v*100 + max/2) / max)
		if p < 2 {
			p = 2
		}
		if p > 100 {
			p = 100
		}
		return p
	},
}

type indexData struct {
	Owner      string
	Today      string
	Month      core.YearMonth
	Activities []core.Activity
	FieldLap   int
	GymLap     int
}

type monthRow struct {
	series.DayPoint
	Cumulative series.DayPoint
}

type monthData struct {
	Owner  string
	Month  core.YearMonth
	Prev   core.YearMonth
	Next   core.YearMonth
	Rows   []monthRow
	Totals series.Totals
	Max    int64
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name)
	}
}

// handleIndex shows the owner form, or the logging page once an owner is
// given.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Page not found").Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	now := s.now()
	data := indexData{
		Today:      core.DateOf(now).String(),
		Month:      core.CurrentYearMonth(now),
		Activities: []core.Activity{core.Walk, core.Run},
		FieldLap:   core.FieldLapMeters,
		GymLap:     core.GymLapMeters,
	}
	if raw := r.URL.Query().Get("owner"); raw != "" {
		session, err := s.svc.Submit(sanitizeInput(raw))
		if err != nil {
			serviceError(err).Write(w)
			return
		}
		data.Owner = session.Owner
		data.Month = session.Month
	}
	s.render(w, r, "index.html", data)
}

// handleSession accepts the owner name and sends the browser to that
// owner's page.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request").Write(w)
		return
	}

	session, err := s.svc.Submit(p.Get("owner"))
	if err != nil {
		serviceError(err).Write(w)
		return
	}

	location := "/?owner=" + url.QueryEscape(session.Owner)
	if !isHTMX(r) {
		http.Redirect(w, r, location, http.StatusSeeOther)
		return
	}
	NewHTMXResponse().Redirect(location).Write(w)
}

// handleSaveRecord upserts the record described by the logging form.
func (s *Server) handleSaveRecord(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request").Write(w)
		return
	}

	in, err := p.SaveInput()
	if err == nil {
		var rec core.Record
		rec, err = s.svc.Save(r.Context(), in)
		if err == nil {
			s.respondSaved(w, p.IsJSON(), rec)
			return
		}
	}

	s.logFailure(r.Context(), "Save failed", log.OpSave, err, in.Owner, in.Date, in.Activity)
	if p.IsJSON() {
		writeJSONError(w, err)
		return
	}
	serviceError(err).Write(w)
}

func (s *Server) respondSaved(w http.ResponseWriter, asJSON bool, rec core.Record) {
	if asJSON {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	msg := fmt.Sprintf("%s %s on %s saved", rec.Activity, formatMeters(rec.Distance), rec.Date)
	NewHTMXResponse().
		TriggerRecordSaved(rec).
		TriggerMonthRefresh(rec.Owner, core.YearMonthOf(rec.Date)).
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + template.HTMLEscapeString(msg) + `</div>`).
		Write(w)
}

// handleDeleteRecord removes one activity's entry, or the whole day when no
// activity is given. Deleting nothing is not an error.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request").Write(w)
		return
	}

	in := p.DeleteInput()
	removed, err := s.svc.RequestDelete(r.Context(), in)
	if err != nil {
		op := log.OpDeleteKey
		if in.Activity == "" {
			op = log.OpDeleteDate
		}
		s.logFailure(r.Context(), "Delete failed", op, err, in.Owner, in.Date, in.Activity)
		if p.IsJSON() {
			writeJSONError(w, err)
			return
		}
		serviceError(err).Write(w)
		return
	}

	if p.IsJSON() {
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
		return
	}

	// The inputs were validated by the service, so these parse.
	owner, _ := core.ValidateOwner(in.Owner)
	date, _ := core.ParseDate(in.Date)
	msg := "Nothing to delete"
	if removed > 0 {
		msg = fmt.Sprintf("Deleted %d record(s) on %s", removed, date)
	}
	NewHTMXResponse().
		TriggerRecordDeleted(owner, date.String(), in.Activity, removed).
		TriggerMonthRefresh(owner, core.YearMonthOf(date)).
		TriggerNotification(NotificationInfo, msg, 2000).
		BodyHTML(`<div class="success">` + template.HTMLEscapeString(msg) + `</div>`).
		Write(w)
}

// handleMonth renders the month partial.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	q := r.URL.Query()
	month, err := ParseMonthParams(q, s.now())
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	view, err := s.svc.ViewMonth(r.Context(), sanitizeInput(q.Get("owner")), month)
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	s.render(w, r, "month.html", newMonthData(view))
}

func newMonthData(v services.MonthView) monthData {
	data := monthData{
		Owner:  v.Owner,
		Month:  v.Month,
		Prev:   v.Prev,
		Next:   v.Next,
		Totals: v.Totals,
		Rows:   make([]monthRow, len(v.Points)),
	}
	for i, p := range v.Points {
		data.Rows[i] = monthRow{DayPoint: p, Cumulative: v.Cumulative[i]}
		if p.Walk > data.Max {
			data.Max = p.Walk
		}
		if p.Run > data.Max {
			data.Max = p.Run
		}
	}
	return data
}

// handleAPISeries returns the month view as JSON.
func (s *Server) handleAPISeries(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	q := r.URL.Query()
	month, err := ParseMonthParams(q, s.now())
	if err != nil {
		writeJSONError(w, err)
		return
	}
	view, err := s.svc.ViewMonth(r.Context(), sanitizeInput(q.Get("owner")), month)
	if err != nil {
		writeJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleAPIRecords returns the owner's records sorted by date.
func (s *Server) handleAPIRecords(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	records, err := s.svc.Records(r.Context(), sanitizeInput(r.URL.Query().Get("owner")))
	if err != nil {
		writeJSONError(w, err)
		return
	}
	if records == nil {
		records = []core.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady runs every registered dependency check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]string{"templates": "ok"}
	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	for name, check := range s.ready {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	checks["rate_limiter_clients"] = fmt.Sprint(s.limiter.ActiveClients())

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) logFailure(ctx context.Context, msg, op string, err error, owner, date, activity string) {
	fields := log.NewFields().WithRecordKey(owner, date, activity)
	if statusFor(err) < http.StatusInternalServerError {
		log.FromContext(ctx).WarnContext(ctx, msg, fields.WithError(err).WithOperation(op).ToSlice()...)
		return
	}
	s.slogger.LogError(ctx, msg, err, log.ComponentHTTP, op, fields)
}
