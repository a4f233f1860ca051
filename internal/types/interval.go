package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Microsecond tick scale for time-typed partition columns.
const (
	UsecsPerSecond = int64(1_000_000)
	UsecsPerMinute = 60 * UsecsPerSecond
	UsecsPerHour   = 60 * UsecsPerMinute
	UsecsPerDay    = 24 * UsecsPerHour

	// DaysPerMonth is the conventional month length used when a variable
	// bucket width must be compared against a fixed one.
	DaysPerMonth = 30
)

// Interval is a Postgres-style interval split into its three independent
// components. Months make a width variable: buckets of "1 month" differ in
// tick length, so month intervals never convert to ticks.
type Interval struct {
	Months int32
	Days   int32
	Usecs  int64
}

// HasMonth reports whether the interval carries a month or year component.
func (iv Interval) HasMonth() bool {
	return iv.Months != 0
}

// HasDayOrTime reports whether the interval carries day or sub-day time.
func (iv Interval) HasDayOrTime() bool {
	return iv.Days != 0 || iv.Usecs != 0
}

// IsZero reports whether all components are zero.
func (iv Interval) IsZero() bool {
	return iv.Months == 0 && iv.Days == 0 && iv.Usecs == 0
}

// Ticks converts a fixed-width interval to microseconds. Month intervals
// have no fixed tick width; callers must check HasMonth first.
func (iv Interval) Ticks() int64 {
	return int64(iv.Days)*UsecsPerDay + iv.Usecs
}

// NominalTicks converts any interval to microseconds for width comparison,
// counting months as 30 days.
func (iv Interval) NominalTicks() int64 {
	return int64(iv.Months)*DaysPerMonth*UsecsPerDay + iv.Ticks()
}

// String renders the interval in a stable unit form.
func (iv Interval) String() string {
	var parts []string
	if iv.Months != 0 {
		parts = append(parts, fmt.Sprintf("%d mons", iv.Months))
	}
	if iv.Days != 0 {
		parts = append(parts, fmt.Sprintf("%d days", iv.Days))
	}
	if iv.Usecs != 0 || len(parts) == 0 {
		switch {
		case iv.Usecs%UsecsPerHour == 0:
			parts = append(parts, fmt.Sprintf("%02d:00:00", iv.Usecs/UsecsPerHour))
		case iv.Usecs%UsecsPerMinute == 0:
			parts = append(parts, fmt.Sprintf("00:%02d:00", iv.Usecs/UsecsPerMinute))
		default:
			parts = append(parts, fmt.Sprintf("%d usecs", iv.Usecs))
		}
	}
	return strings.Join(parts, " ")
}

var intervalUnits = map[string]func(*Interval, float64) error{
	"microsecond": func(iv *Interval, v float64) error { iv.Usecs += int64(v); return nil },
	"millisecond": func(iv *Interval, v float64) error { iv.Usecs += int64(v * 1000); return nil },
	"second":      func(iv *Interval, v float64) error { iv.Usecs += int64(v * float64(UsecsPerSecond)); return nil },
	"minute":      func(iv *Interval, v float64) error { iv.Usecs += int64(v * float64(UsecsPerMinute)); return nil },
	"hour":        func(iv *Interval, v float64) error { iv.Usecs += int64(v * float64(UsecsPerHour)); return nil },
	"day":         func(iv *Interval, v float64) error { return addWhole(&iv.Days, v, "day") },
	"week":        func(iv *Interval, v float64) error { return addWhole(&iv.Days, v*7, "week") },
	"month":       func(iv *Interval, v float64) error { return addWhole(&iv.Months, v, "month") },
	"mon":         func(iv *Interval, v float64) error { return addWhole(&iv.Months, v, "month") },
	"year":        func(iv *Interval, v float64) error { return addWhole(&iv.Months, v*12, "year") },
}

func addWhole(dst *int32, v float64, unit string) error {
	if v != float64(int64(v)) {
		return fmt.Errorf("fractional %s values are not supported", unit)
	}
	*dst += int32(v)
	return nil
}

// ParseInterval parses the text form of an interval literal: one or more
// "<number> <unit>" pairs, e.g. "1 hour", "2 days 12 hours", "3 months".
func ParseInterval(text string) (Interval, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) == 0 {
		return Interval{}, fmt.Errorf("empty interval")
	}
	if len(fields)%2 != 0 {
		return Interval{}, fmt.Errorf("malformed interval %q", text)
	}

	var iv Interval
	for i := 0; i < len(fields); i += 2 {
		value, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return Interval{}, fmt.Errorf("malformed interval %q: bad number %q", text, fields[i])
		}

		unit := strings.TrimSuffix(fields[i+1], "s")
		apply, ok := intervalUnits[unit]
		if !ok {
			return Interval{}, fmt.Errorf("malformed interval %q: unknown unit %q", text, fields[i+1])
		}
		if err := apply(&iv, value); err != nil {
			return Interval{}, fmt.Errorf("malformed interval %q: %w", text, err)
		}
	}

	return iv, nil
}
