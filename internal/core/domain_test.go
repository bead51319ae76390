package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-03-05", true},
		{" 2024-02-29 ", true},
		{"2025-02-29", false}, // not a leap year
		{"2025-3-5", false},
		{"05/03/2025", false},
		{"", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q expected ok, got %v", tc.in, err)
			}
			if d.Location() != time.UTC || d.Hour() != 0 {
				t.Fatalf("%q expected UTC midnight, got %v", tc.in, d.Time)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q expected ErrInvalidInput, got %v", tc.in, err)
		}
	}
}

func TestParseActivity(t *testing.T) {
	cases := []struct {
		in   string
		want Activity
		ok   bool
	}{
		{"Walk", Walk, true},
		{"run", Run, true},
		{"걷기", Walk, true},
		{"뛰기", Run, true},
		{"swim", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseActivity(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidActivity) {
			t.Fatalf("%q expected ErrInvalidActivity, got %v", tc.in, err)
		}
	}
}

func TestValidateOwner(t *testing.T) {
	if got, err := ValidateOwner("  Alice "); err != nil || got != "Alice" {
		t.Fatalf("expected Alice, got %q (err=%v)", got, err)
	}
	if _, err := ValidateOwner(" \t "); !errors.Is(err, ErrEmptyOwner) {
		t.Fatalf("expected ErrEmptyOwner, got %v", err)
	}
}

func TestRecordValidate(t *testing.T) {
	good := Record{Owner: "Alice", Date: NewDate(2025, 3, 5), Activity: Walk, Distance: 240}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// Distance is not the record's concern.
	negative := good
	negative.Distance = -1
	if err := negative.Validate(); err != nil {
		t.Fatalf("distance must not be validated, got %v", err)
	}

	bads := []Record{
		{Owner: " ", Date: NewDate(2025, 3, 5), Activity: Walk},
		{Owner: "Alice", Activity: Walk},
		{Owner: "Alice", Date: NewDate(2025, 3, 5), Activity: "Swim"},
	}
	for i, r := range bads {
		if err := r.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestKeyNormalizes(t *testing.T) {
	local := time.FixedZone("KST", 9*60*60)
	a := NewKey(" Alice", DateOf(time.Date(2025, 3, 5, 23, 0, 0, 0, local)), Walk)
	b := Record{Owner: "Alice", Date: NewDate(2025, 3, 5), Activity: Walk}.Key()
	if a != b {
		t.Fatalf("expected equal keys, got %v and %v", a, b)
	}
	if a.String() != "Alice/2025-03-05/Walk" {
		t.Fatalf("unexpected key string %q", a.String())
	}
}

func TestRecordJSON(t *testing.T) {
	r := Record{Owner: "Alice", Date: NewDate(2025, 3, 5), Activity: Run, Distance: 170}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"owner":"Alice","date":"2025-03-05","activity":"Run","distance":170}`
	if string(b) != want {
		t.Fatalf("expected %s, got %s", want, b)
	}

	var back Record
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != r {
		t.Fatalf("expected %+v, got %+v", r, back)
	}
}

func TestDistanceFromLaps(t *testing.T) {
	cases := []struct {
		field, gym int
		want       int64
		ok         bool
	}{
		{2, 0, 240, true},
		{1, 0, 120, true},
		{0, 3, 150, true},
		{2, 2, 340, true},
		{0, 0, 0, true},
		{-1, 0, 0, false},
		{0, -2, 0, false},
	}
	for _, tc := range cases {
		got, err := DistanceFromLaps(tc.field, tc.gym)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("(%d,%d) expected %d, got %d (err=%v)", tc.field, tc.gym, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrNegativeLaps) {
			t.Fatalf("(%d,%d) expected ErrNegativeLaps, got %v", tc.field, tc.gym, err)
		}
	}
}

func TestParseLaps(t *testing.T) {
	if n, err := ParseLaps(""); err != nil || n != 0 {
		t.Fatalf("empty expected 0, got %d (err=%v)", n, err)
	}
	if n, err := ParseLaps(" 7 "); err != nil || n != 7 {
		t.Fatalf("expected 7, got %d (err=%v)", n, err)
	}
	for _, in := range []string{"-1", "1.5", "abc"} {
		if _, err := ParseLaps(in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q expected ErrInvalidInput, got %v", in, err)
		}
	}
}
