// Package series turns sparse exercise records into a dense per-day series.
package series

import (
	"laplog/internal/core"
)

// DayPoint is one calendar day of the series. Zero means nothing was logged.
type DayPoint struct {
	Date core.Date `json:"date"`
	Walk int64     `json:"walk"`
	Run  int64     `json:"run"`
}

// Distance returns the meters logged for activity on this day.
func (p DayPoint) Distance(a core.Activity) int64 {
	switch a {
	case core.Walk:
		return p.Walk
	case core.Run:
		return p.Run
	}
	return 0
}

// Total is walk plus run.
func (p DayPoint) Total() int64 {
	return p.Walk + p.Run
}

func (p *DayPoint) add(a core.Activity, meters int64) {
	switch a {
	case core.Walk:
		p.Walk += meters
	case core.Run:
		p.Run += meters
	}
}

// Aggregate returns one point per calendar day of month, ascending, for the
// owner's records. Distances are summed over every matching record, so the
// result stays correct even if several records share a key.
func Aggregate(records []core.Record, owner string, month core.YearMonth) []DayPoint {
	owner = core.NormalizeOwner(owner)
	dates := month.Dates()
	points := make([]DayPoint, len(dates))
	for i, d := range dates {
		points[i].Date = d
	}

	for _, r := range records {
		if core.NormalizeOwner(r.Owner) != owner {
			continue
		}
		d := core.DateOf(r.Date.Time)
		if !month.Contains(d) {
			continue
		}
		points[d.Day()-1].add(r.Activity, r.Distance)
	}
	return points
}

// Totals summarizes a month.
type Totals struct {
	Walk       int64 `json:"walk"`
	Run        int64 `json:"run"`
	Total      int64 `json:"total"`
	ActiveDays int   `json:"active_days"`
}

// Summarize adds up a series.
func Summarize(points []DayPoint) Totals {
	var t Totals
	for _, p := range points {
		t.Walk += p.Walk
		t.Run += p.Run
		if p.Walk != 0 || p.Run != 0 {
			t.ActiveDays++
		}
	}
	t.Total = t.Walk + t.Run
	return t
}

// Cumulative returns running totals per activity over the series.
func Cumulative(points []DayPoint) []DayPoint {
	out := make([]DayPoint, len(points))
	var walk, run int64
	for i, p := range points {
		walk += p.Walk
		run += p.Run
		out[i] = DayPoint{Date: p.Date, Walk: walk, Run: run}
	}
	return out
}
