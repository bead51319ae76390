package core

import (
	"fmt"
	"strings"
	"time"
)

// YearMonth selects one calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// NewYearMonth validates the month number.
func NewYearMonth(year, month int) (YearMonth, error) {
	if month < 1 || month > 12 || year < 1 || year > 9999 {
		return YearMonth{}, fmt.Errorf("%w: %04d-%02d", ErrInvalidMonth, year, month)
	}
	return YearMonth{Year: year, Month: time.Month(month)}, nil
}

// ParseYearMonth parses YYYY-MM.
func ParseYearMonth(s string) (YearMonth, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// YearMonthOf returns the month containing d.
func YearMonthOf(d Date) YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Time.Month()}
}

// CurrentYearMonth returns the month containing now.
func CurrentYearMonth(now time.Time) YearMonth {
	return YearMonthOf(DateOf(now))
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// First is day 1 of the month.
func (ym YearMonth) First() Date {
	return NewDate(ym.Year, ym.Month, 1)
}

// Last is the final day of the month.
func (ym YearMonth) Last() Date {
	return NewDate(ym.Year, ym.Month+1, 0)
}

// Days is the number of calendar days in the month.
func (ym YearMonth) Days() int {
	return ym.Last().Day()
}

// Dates enumerates every day of the month in ascending order.
func (ym YearMonth) Dates() []Date {
	n := ym.Days()
	out := make([]Date, n)
	for i := 0; i < n; i++ {
		out[i] = NewDate(ym.Year, ym.Month, i+1)
	}
	return out
}

// Contains reports whether d falls inside the month.
func (ym YearMonth) Contains(d Date) bool {
	return d.Year() == ym.Year && d.Time.Month() == ym.Month
}

func (ym YearMonth) Next() YearMonth {
	return YearMonthOf(NewDate(ym.Year, ym.Month+1, 1))
}

func (ym YearMonth) Prev() YearMonth {
	return YearMonthOf(NewDate(ym.Year, ym.Month-1, 1))
}

func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.String()), nil
}

func (ym *YearMonth) UnmarshalText(b []byte) error {
	parsed, err := ParseYearMonth(string(b))
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}
