// Package scheduler implements the C9 Scheduler: a robfig/cron/v3 engine
// wrapped to accept the 7-field cron format §6.2 requires, enforcing
// at-most-one concurrent execution per dataset and driving the C8
// pipeline engine on every fire (§4.9).
package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

var sixFieldParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// yearFilteredSchedule adds the 7th (year) field robfig/cron doesn't
// parse natively: Next returns the inner schedule's first candidate whose
// year matches, skipping each non-matching year as a whole. robfig/cron
// runs the job at whatever time Next returns, so no fire time is ever
// produced in a non-matching year. After 100 skipped years (or when the
// inner schedule has no further candidate) Next returns the zero time,
// which robfig/cron treats as "never fires".
type yearFilteredSchedule struct {
	inner cron.Schedule
	years yearMatcher
}

func (s *yearFilteredSchedule) Next(t time.Time) time.Time {
	const maxSkippedYears = 100
	next := s.inner.Next(t)
	for i := 0; i < maxSkippedYears && !next.IsZero(); i++ {
		if s.years.matches(next.Year()) {
			return next
		}
		lastSecondOfYear := time.Date(next.Year()+1, 1, 1, 0, 0, 0, 0, next.Location()).Add(-time.Second)
		next = s.inner.Next(lastSecondOfYear)
	}
	return time.Time{}
}

// yearMatcher accepts "*", a single year, a comma-separated list, or a
// dash range ("2024-2026").
type yearMatcher struct {
	all   bool
	years map[int]struct{}
}

func (m yearMatcher) matches(year int) bool {
	if m.all {
		return true
	}
	_, ok := m.years[year]
	return ok
}

func parseYearField(field string) (yearMatcher, error) {
	if field == "" || field == "*" || field == "?" {
		return yearMatcher{all: true}, nil
	}

	years := make(map[int]struct{})
	for _, part := range strings.Split(field, ",") {
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			loY, err := strconv.Atoi(lo)
			if err != nil {
				return yearMatcher{}, fmt.Errorf("%w: invalid year range %q", model.ErrConfig, part)
			}
			hiY, err := strconv.Atoi(hi)
			if err != nil {
				return yearMatcher{}, fmt.Errorf("%w: invalid year range %q", model.ErrConfig, part)
			}
			for y := loY; y <= hiY; y++ {
				years[y] = struct{}{}
			}
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return yearMatcher{}, fmt.Errorf("%w: invalid year field %q", model.ErrConfig, field)
		}
		years[y] = struct{}{}
	}
	return yearMatcher{years: years}, nil
}

// ParseSchedule parses a 6- or 7-field cron expression (§6.2): "sec min
// hour day-of-month month day-of-week year?". "?" is accepted anywhere
// standard cron accepts "*" (robfig/cron itself only understands "*"
// there, so "?" is normalized to "*" before parsing).
func ParseSchedule(expr string) (cron.Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 6 && len(fields) != 7 {
		return nil, fmt.Errorf("%w: cron expression %q must have 6 or 7 fields, got %d", model.ErrConfig, expr, len(fields))
	}

	yearField := "*"
	if len(fields) == 7 {
		yearField = fields[6]
		fields = fields[:6]
	}

	normalized := make([]string, len(fields))
	for i, f := range fields {
		if f == "?" {
			normalized[i] = "*"
		} else {
			normalized[i] = f
		}
	}

	inner, err := sixFieldParser.Parse(strings.Join(normalized, " "))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing cron expression %q: %v", model.ErrConfig, expr, err)
	}

	years, err := parseYearField(yearField)
	if err != nil {
		return nil, err
	}

	return &yearFilteredSchedule{inner: inner, years: years}, nil
}
