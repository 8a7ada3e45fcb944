package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for trading days across CSV, JSON and flags.
const DateLayout = "2006-01-02"

// Date is a single trading day, normalized to UTC midnight.
type Date time.Time

// NewDate builds a Date from calendar components.
func NewDate(year int, month time.Month, day int) Date {
	return Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses a YYYY-MM-DD string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

// Today returns the current UTC calendar day.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// Time returns the underlying time.Time at UTC midnight.
func (d Date) Time() time.Time {
	return time.Time(d)
}

func (d Date) String() string {
	return time.Time(d).Format(DateLayout)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return time.Time(d).IsZero()
}

// Equal reports calendar-day equality.
func (d Date) Equal(other Date) bool {
	return time.Time(d).Equal(time.Time(other))
}

// Before reports whether d falls before other.
func (d Date) Before(other Date) bool {
	return time.Time(d).Before(time.Time(other))
}

// After reports whether d falls after other.
func (d Date) After(other Date) bool {
	return time.Time(d).After(time.Time(other))
}

// MarshalJSON renders the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD".
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("parse date json %s: expected quoted string", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalCSV implements the gocsv type marshaller.
func (d Date) MarshalCSV() (string, error) {
	return d.String(), nil
}

// UnmarshalCSV implements the gocsv type unmarshaller.
func (d *Date) UnmarshalCSV(s string) error {
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Regime classifies a trading day's volatility environment from the VIX z-score.
type Regime int

const (
	RegimeLow Regime = iota
	RegimeMedium
	RegimeHigh
)

func (r Regime) String() string {
	switch r {
	case RegimeLow:
		return "low"
	case RegimeMedium:
		return "medium"
	case RegimeHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Regimes lists all classifications in ascending volatility order.
func Regimes() []Regime {
	return []Regime{RegimeLow, RegimeMedium, RegimeHigh}
}

// ParseRegime maps a config/label string back to a Regime.
func ParseRegime(s string) (Regime, error) {
	switch s {
	case "low":
		return RegimeLow, nil
	case "medium":
		return RegimeMedium, nil
	case "high":
		return RegimeHigh, nil
	default:
		return 0, fmt.Errorf("unknown regime %q (want low, medium or high)", s)
	}
}

// MarshalJSON renders the regime label.
func (r Regime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON accepts a regime label.
func (r *Regime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("parse regime json %s: expected quoted string", s)
	}
	parsed, err := ParseRegime(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalCSV implements the gocsv type marshaller.
func (r Regime) MarshalCSV() (string, error) {
	return r.String(), nil
}

// Observation is one aligned trading day of index close and VIX level.
type Observation struct {
	Date  Date    `json:"date" csv:"date"`
	SP500 float64 `json:"sp500" csv:"sp500"` // index close
	VIX   float64 `json:"vix" csv:"vix"`     // volatility index close
}
