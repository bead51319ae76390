package core

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire and in forms.
const DateLayout = "2006-01-02"

const (
	Walk Activity = "Walk"
	Run  Activity = "Run"
)

// Activities lists every activity in display order.
var Activities = []Activity{Walk, Run}

type (
	Activity string

	// Date is a calendar day stored as UTC midnight.
	Date struct {
		time.Time
	}

	// Record is one logged activity-day entry.
	Record struct {
		Owner    string   `json:"owner"`
		Date     Date     `json:"date"`
		Activity Activity `json:"activity"`
		Distance int64    `json:"distance"` // meters
	}

	// Key identifies a record. At most one record exists per key.
	Key struct {
		Owner    string
		Date     Date
		Activity Activity
	}
)

// NewDate creates a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time.AddDate(0, 0, n))
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON shadows the promoted time.Time encoder so dates stay YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	return d.UnmarshalText([]byte(s[1 : len(s)-1]))
}

// Validate checks the date is set.
func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ParseActivity accepts the canonical labels, their lowercase forms and the
// Korean labels found in older data (걷기, 뛰기).
func ParseActivity(s string) (Activity, error) {
	switch strings.TrimSpace(s) {
	case "Walk", "walk", "WALK", "걷기":
		return Walk, nil
	case "Run", "run", "RUN", "뛰기":
		return Run, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidActivity, s)
}

func (a Activity) Valid() bool {
	return a == Walk || a == Run
}

func (a Activity) String() string {
	return string(a)
}

func (a Activity) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidActivity, string(a))
	}
	return []byte(a), nil
}

func (a *Activity) UnmarshalText(b []byte) error {
	parsed, err := ParseActivity(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// NormalizeOwner trims surrounding whitespace from an entered name.
func NormalizeOwner(s string) string {
	return strings.TrimSpace(s)
}

// ValidateOwner normalizes s and rejects an empty result.
func ValidateOwner(s string) (string, error) {
	owner := NormalizeOwner(s)
	if owner == "" {
		return "", ErrEmptyOwner
	}
	return owner, nil
}

// NewKey builds a key with a normalized owner and date.
func NewKey(owner string, date Date, activity Activity) Key {
	return Key{
		Owner:    NormalizeOwner(owner),
		Date:     DateOf(date.Time),
		Activity: activity,
	}
}

func (k Key) String() string {
	return k.Owner + "/" + k.Date.String() + "/" + string(k.Activity)
}

// Key returns the identity key of the record.
func (r Record) Key() Key {
	return NewKey(r.Owner, r.Date, r.Activity)
}

// Validate checks identity fields. Distance is deliberately left to the caller.
func (r Record) Validate() error {
	if NormalizeOwner(r.Owner) == "" {
		return ErrEmptyOwner
	}
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if !r.Activity.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidActivity, string(r.Activity))
	}
	return nil
}
