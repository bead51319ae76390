package series

import (
	"testing"
	"time"

	"laplog/internal/core"
)

func march() core.YearMonth { return core.YearMonth{Year: 2025, Month: time.March} }

func checkCalendar(t *testing.T, points []DayPoint, month core.YearMonth) {
	t.Helper()
	if len(points) != month.Days() {
		t.Fatalf("%s: expected %d points, got %d", month, month.Days(), len(points))
	}
	for i, p := range points {
		want := core.NewDate(month.Year, month.Month, i+1)
		if p.Date != want {
			t.Fatalf("%s: point %d has date %s, want %s", month, i, p.Date, want)
		}
	}
}

func TestSingleWalkFillsMonth(t *testing.T) {
	records := []core.Record{
		{Owner: "Alice", Date: core.NewDate(2025, 3, 5), Activity: core.Walk, Distance: 240},
	}
	points := Aggregate(records, "Alice", march())
	checkCalendar(t, points, march())

	for _, p := range points {
		if p.Date.Day() == 5 {
			if p.Walk != 240 || p.Run != 0 {
				t.Fatalf("expected {240 0} on the 5th, got %+v", p)
			}
			continue
		}
		if p.Walk != 0 || p.Run != 0 {
			t.Fatalf("expected zeros on %s, got %+v", p.Date, p)
		}
	}
}

func TestEmptyMonthIsZeroFilled(t *testing.T) {
	records := []core.Record{
		{Owner: "Alice", Date: core.NewDate(2025, 2, 28), Activity: core.Walk, Distance: 240},
		{Owner: "Bob", Date: core.NewDate(2025, 3, 1), Activity: core.Run, Distance: 50},
	}
	points := Aggregate(records, "Alice", march())
	checkCalendar(t, points, march())
	if got := Summarize(points); got != (Totals{}) {
		t.Fatalf("expected zero totals, got %+v", got)
	}

	if got := Aggregate(nil, "Nobody", march()); len(got) != 31 {
		t.Fatalf("expected 31 points with no records, got %d", len(got))
	}
}

func TestCalendarCompleteness(t *testing.T) {
	for year := 2023; year <= 2025; year++ {
		for m := time.January; m <= time.December; m++ {
			month := core.YearMonth{Year: year, Month: m}
			checkCalendar(t, Aggregate(nil, "Alice", month), month)
		}
	}
}

func TestWalkAndRunSameDay(t *testing.T) {
	records := []core.Record{
		{Owner: "Alice", Date: core.NewDate(2025, 3, 10), Activity: core.Walk, Distance: 240},
		{Owner: "Alice", Date: core.NewDate(2025, 3, 10), Activity: core.Run, Distance: 150},
	}
	p := Aggregate(records, "Alice", march())[9]
	if p.Walk != 240 || p.Run != 150 {
		t.Fatalf("expected {240 150}, got %+v", p)
	}
	if p.Distance(core.Walk) != 240 || p.Distance(core.Run) != 150 || p.Total() != 390 {
		t.Fatalf("unexpected accessors on %+v", p)
	}
}

func TestAggregateSumsDuplicates(t *testing.T) {
	records := []core.Record{
		{Owner: "Alice", Date: core.NewDate(2025, 3, 1), Activity: core.Run, Distance: 100},
		{Owner: "Alice", Date: core.NewDate(2025, 3, 1), Activity: core.Run, Distance: 20},
	}
	if got := Aggregate(records, "Alice", march())[0].Run; got != 120 {
		t.Fatalf("expected summed 120, got %d", got)
	}
}

func TestAggregateFiltersOwnerAndMonth(t *testing.T) {
	records := []core.Record{
		{Owner: "Alice", Date: core.NewDate(2025, 3, 31), Activity: core.Walk, Distance: 1},
		{Owner: "Alice", Date: core.NewDate(2025, 4, 1), Activity: core.Walk, Distance: 2},
		{Owner: "Alice", Date: core.NewDate(2024, 3, 31), Activity: core.Walk, Distance: 4},
		{Owner: "alice", Date: core.NewDate(2025, 3, 31), Activity: core.Walk, Distance: 8},
		{Owner: " Alice ", Date: core.NewDate(2025, 3, 31), Activity: core.Walk, Distance: 16},
	}
	if got := Aggregate(records, "Alice", march())[30].Walk; got != 17 {
		t.Fatalf("expected 17 (exact owner after trimming, this month only), got %d", got)
	}
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	records := []core.Record{
		{Owner: "Alice", Date: core.NewDate(2025, 3, 5), Activity: core.Walk, Distance: 240},
	}
	copyOf := append([]core.Record(nil), records...)
	_ = Aggregate(records, "Alice", march())
	if records[0] != copyOf[0] {
		t.Fatalf("input mutated: %+v", records[0])
	}
}

func TestSummarizeAndCumulative(t *testing.T) {
	records := []core.Record{
		{Owner: "Alice", Date: core.NewDate(2025, 3, 1), Activity: core.Walk, Distance: 120},
		{Owner: "Alice", Date: core.NewDate(2025, 3, 3), Activity: core.Run, Distance: 50},
		{Owner: "Alice", Date: core.NewDate(2025, 3, 3), Activity: core.Walk, Distance: 240},
	}
	points := Aggregate(records, "Alice", march())

	totals := Summarize(points)
	want := Totals{Walk: 360, Run: 50, Total: 410, ActiveDays: 2}
	if totals != want {
		t.Fatalf("expected %+v, got %+v", want, totals)
	}

	cum := Cumulative(points)
	if len(cum) != len(points) {
		t.Fatalf("expected %d cumulative points, got %d", len(points), len(cum))
	}
	if cum[1].Walk != 120 || cum[2].Walk != 360 || cum[2].Run != 50 || cum[30].Walk != 360 {
		t.Fatalf("unexpected running totals %+v %+v %+v", cum[1], cum[2], cum[30])
	}
}
