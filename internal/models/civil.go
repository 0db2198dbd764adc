package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
	minutesDay  = 24 * 60
)

// Date is a calendar day without a time zone, stored in DATE columns.
type Date struct {
	t time.Time
}

// NewDate builds a Date. Out-of-range values normalise like time.Date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t: t}, nil
}

// MonthRange returns the first and last calendar day of a YYYY-MM month.
func MonthRange(month string) (Date, Date, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(month))
	if err != nil {
		return Date{}, Date{}, fmt.Errorf("invalid month %q: expected YYYY-MM", month)
	}
	return Date{t: t}, Date{t: t.AddDate(0, 1, -1)}, nil
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// Equal reports whether both values name the same day.
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// At combines d with a wall clock time in loc.
func (d Date) At(clock ClockTime, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, day := d.t.Date()
	return time.Date(y, m, day, clock.Hour(), clock.Minute(), 0, 0, loc)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON parses a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || *raw == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ClockTime is a wall clock time of day with minute precision, stored in TIME columns.
type ClockTime struct {
	minutes int
	valid   bool
}

// NewClockTime builds a ClockTime from hour and minute.
func NewClockTime(hour, minute int) (ClockTime, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid time %02d:%02d", hour, minute)
	}
	return ClockTime{minutes: hour*60 + minute, valid: true}, nil
}

// ParseClockTime parses HH:MM or HH:MM:SS. Seconds are dropped.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime{minutes: t.Hour()*60 + t.Minute(), valid: true}, nil
		}
	}
	return ClockTime{}, fmt.Errorf("invalid time %q: expected HH:MM", s)
}

// Hour returns the hour component.
func (c ClockTime) Hour() int { return c.minutes / 60 }

// Minute returns the minute component.
func (c ClockTime) Minute() int { return c.minutes % 60 }

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int { return c.minutes }

// IsZero reports whether c is unset.
func (c ClockTime) IsZero() bool { return !c.valid }

// Add returns c shifted by the given minutes. ok is false when the result
// would leave the day.
func (c ClockTime) Add(minutes int) (ClockTime, bool) {
	total := c.minutes + minutes
	if total < 0 || total >= minutesDay {
		return ClockTime{}, false
	}
	return ClockTime{minutes: total, valid: true}, true
}

func (c ClockTime) String() string {
	if !c.valid {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Scan implements sql.Scanner.
func (c *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = ClockTime{}
		return nil
	case time.Time:
		*c = ClockTime{minutes: v.Hour()*60 + v.Minute(), valid: true}
		return nil
	case []byte:
		return c.scanString(string(v))
	case string:
		return c.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
}

func (c *ClockTime) scanString(s string) error {
	if i := strings.IndexByte(s, '.'); i > 0 {
		s = s[:i]
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer.
func (c ClockTime) Value() (driver.Value, error) {
	if !c.valid {
		return nil, nil
	}
	return c.String() + ":00", nil
}

// MarshalJSON renders the time as HH:MM.
func (c ClockTime) MarshalJSON() ([]byte, error) {
	if !c.valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.String())
}

// UnmarshalJSON parses HH:MM or HH:MM:SS.
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || *raw == "" {
		*c = ClockTime{}
		return nil
	}
	parsed, err := ParseClockTime(*raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
