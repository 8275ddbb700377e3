package report

import (
	"fmt"
	"strings"
	"time"
)

// InputLayouts are the accepted textual date forms, tried in order.
var InputLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"01/02/2006",
}

type DateFormatError struct {
	Input string
}

func (err DateFormatError) Error() string {
	return fmt.Sprintf("invalid date %q: use a date like 'June 22, 2024' or 2024-06-22", err.Input)
}

type RangeProblem int

const (
	RangeInFuture RangeProblem = iota + 1
	EndBeforeStart
)

type InvalidRangeError struct {
	Reason     RangeProblem
	Start, End time.Time
}

func (err InvalidRangeError) Error() string {
	switch err.Reason {
	case RangeInFuture:
		return "Please select a date that is 2 or more days past."
	case EndBeforeStart:
		return "End date should be later than or equal to start date"
	}
	return "invalid date range"
}

// DateRange is an inclusive range of calendar days, all before today.
type DateRange struct {
	start, end time.Time
}

// ParseDate parses s in one of InputLayouts as a calendar day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range InputLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, DateFormatError{s}
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Validate checks a range against now: the site only publishes reports for days before today.
func Validate(start, end, now time.Time) error {
	loc := now.Location()
	today := midnight(now, loc)
	start, end = midnight(start, loc), midnight(end, loc)

	if !start.Before(today) || !end.Before(today) {
		return InvalidRangeError{RangeInFuture, start, end}
	}
	if end.Before(start) {
		return InvalidRangeError{EndBeforeStart, start, end}
	}
	return nil
}

func NewDateRange(start, end, now time.Time) (DateRange, error) {
	if err := Validate(start, end, now); err != nil {
		return DateRange{}, err
	}
	loc := now.Location()
	return DateRange{midnight(start, loc), midnight(end, loc)}, nil
}

// ParseDateRange parses and validates user entered start and end dates.
func ParseDateRange(start, end string, now time.Time) (DateRange, error) {
	s, err := ParseDate(start, now.Location())
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end, now.Location())
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e, now)
}

func (r DateRange) Start() time.Time { return r.start }
func (r DateRange) End() time.Time   { return r.end }

// Days lists every day of the range, start and end included.
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for d := r.start; !d.After(r.end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (r DateRange) String() string {
	return fmt.Sprintf("%v - %v", r.start.Format("January 2, 2006"), r.end.Format("January 2, 2006"))
}
