package match

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRange is returned for malformed date or time range criteria.
var ErrInvalidRange = errors.New("match: invalid range")

// Storage layouts for date and time values.
const (
	DateLayout = "20060102"
	TimeLayout = "150405"
)

// Range is a parsed date or time criterion. A single value yields IsRange
// false with bounds covering the value's precision, equal for a full date
// or time; "x-" and "-x" yield one open bound.
type Range struct {
	Lower   time.Time
	Upper   time.Time
	IsRange bool
}

// HasLower reports whether the range has a lower bound.
func (r Range) HasLower() bool { return !r.Lower.IsZero() }

// HasUpper reports whether the range has an upper bound.
func (r Range) HasUpper() bool { return !r.Upper.IsZero() }

// ParseDateRange parses a DA criterion: "YYYYMMDD", "YYYYMMDD-",
// "-YYYYMMDD" or "YYYYMMDD-YYYYMMDD". Blank text yields an empty Range.
func ParseDateRange(text string) (Range, error) {
	return parseRange(text, parseDate)
}

// ParseTimeRange parses a TM criterion with the same shapes as dates. Each
// bound is HH, HHMM, HHMMSS or HHMMSS.FFFFFF; resolution is one second and
// missing components of a range bound are zero. A single reduced-precision
// value covers its whole hour or minute, so "10" spans 100000 to 105959.
func ParseTimeRange(text string) (Range, error) {
	return parseRange(text, parseTime)
}

// parser parses one value. span is the distance from t to the last instant
// the value covers.
type parser func(s string) (t time.Time, span time.Duration, err error)

func parseRange(text string, parse parser) (Range, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Range{}, nil
	}

	lo, hi, isRange := strings.Cut(text, "-")
	if !isRange {
		t, span, err := parse(lo)
		if err != nil {
			return Range{}, err
		}
		return Range{Lower: t, Upper: t.Add(span)}, nil
	}
	if strings.Contains(hi, "-") {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, text)
	}

	r := Range{IsRange: true}
	var err error
	if lo = strings.TrimSpace(lo); lo != "" {
		if r.Lower, _, err = parse(lo); err != nil {
			return Range{}, err
		}
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		if r.Upper, _, err = parse(hi); err != nil {
			return Range{}, err
		}
	}
	if r.HasLower() && r.HasUpper() && r.Upper.Before(r.Lower) {
		return Range{}, fmt.Errorf("%w: %q ends before it starts", ErrInvalidRange, text)
	}
	return r, nil
}

func parseDate(s string) (time.Time, time.Duration, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, 0, fmt.Errorf("%w: date %q", ErrInvalidRange, s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("%w: date %q", ErrInvalidRange, s)
	}
	return t, 0, nil
}

// timeBase anchors parsed times so that midnight is not the zero Time.
var timeBase = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func parseTime(s string) (time.Time, time.Duration, error) {
	norm, span, ok := normalizeTime(s)
	if !ok {
		return time.Time{}, 0, fmt.Errorf("%w: time %q", ErrInvalidRange, s)
	}
	t, err := time.Parse(TimeLayout, norm)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("%w: time %q", ErrInvalidRange, s)
	}
	return timeBase.Add(time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second), span, nil
}

// normalizeTime pads a TM value to HHMMSS and reports the span of the
// components it left out.
func normalizeTime(s string) (string, time.Duration, bool) {
	s, _, _ = strings.Cut(strings.TrimSpace(s), ".")
	s = strings.ReplaceAll(s, ":", "")
	var span time.Duration
	switch len(s) {
	case 2:
		s += "0000"
		span = time.Hour - time.Second
	case 4:
		s += "00"
		span = time.Minute - time.Second
	case 6:
	default:
		return "", 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return "", 0, false
		}
	}
	return s, span, true
}

// NormalizeTime converts a stored TM value to HHMMSS. Values that are not
// valid times are returned unchanged.
func NormalizeTime(s string) string {
	if norm, _, ok := normalizeTime(s); ok {
		return norm
	}
	return s
}

// FormatDate renders a date bound in the storage layout.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// FormatTime renders a time bound in the storage layout.
func FormatTime(t time.Time) string { return t.Format(TimeLayout) }
