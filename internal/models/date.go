package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateFormat is the canonical textual form of a Date.
const DateFormat = "2006-01-02"

// Date is a calendar day without time of day or location.
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date, so NewDate(2024, 1, 32) is 2024-02-01.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{y, m, d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for literals; it panics on malformed input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return d.time() }

func (d Date) String() string { return d.time().Format(DateFormat) }

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date { return NewDate(d.y, d.m, d.d+n) }

// Before reports whether d is strictly before x.
func (d Date) Before(x Date) bool { return d.Compare(x) < 0 }

// After reports whether d is strictly after x.
func (d Date) After(x Date) bool { return d.Compare(x) > 0 }

// Compare returns -1, 0 or +1.
func (d Date) Compare(x Date) int {
	switch {
	case d.y != x.y:
		return cmpInt(d.y, x.y)
	case d.m != x.m:
		return cmpInt(int(d.m), int(x.m))
	default:
		return cmpInt(d.d, x.d)
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// MinDate returns the earlier of a and b.
func MinDate(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

// MaxDate returns the later of a and b.
func MaxDate(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as YYYY-MM-DD so comparisons in SQL stay lexical-safe.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v.UTC())
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) >= len(DateFormat) {
		s = s[:len(DateFormat)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive range of days.
type DateRange struct {
	Start Date `json:"start_date"`
	End   Date `json:"end_date"`
}

// Contains reports whether d lies within the range, bounds included.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Len is the number of days in the range, bounds included. An inverted
// range has no days.
func (r DateRange) Len() int {
	n := (r.End.time().Unix()-r.Start.time().Unix())/86400 + 1
	if n < 0 {
		return 0
	}
	return int(n)
}

// Days returns every day of the range in ascending order.
func (r DateRange) Days() []Date {
	var days []Date
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (r DateRange) String() string { return r.Start.String() + ".." + r.End.String() }
