// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurrence deduplication.
// Each strategy decides whether an existing record already is the current
// month's occurrence of a recurring template.

package services

import (
	"fmt"
	"sort"
	"time"

	"carteira/internal/core"
)

const (
	DedupSeries = "series"
	DedupValue  = "value"
)

// DuplicateMatcher is the strategy interface for recurrence deduplication.
type DuplicateMatcher interface {
	// IsOccurrence reports whether existing already materializes template in
	// month. day is the template's recurring day clamped to month.
	IsOccurrence(existing, template core.Record, month core.MonthKey, day int, loc *time.Location) bool
}

// SeriesMatcher treats any record of the template's series in the target
// month as its occurrence. Each series yields at most one record per month.
type SeriesMatcher struct{}

func (SeriesMatcher) IsOccurrence(existing, template core.Record, month core.MonthKey, _ int, loc *time.Location) bool {
	return existing.SeriesID() == template.SeriesID() && month.Contains(existing.OccurredOn, loc)
}

// ValueMatcher compares category, amount and date. Two templates with equal
// category and amount on the same day collapse into one occurrence.
type ValueMatcher struct{}

func (ValueMatcher) IsOccurrence(existing, template core.Record, month core.MonthKey, day int, loc *time.Location) bool {
	return existing.CategoryID == template.CategoryID &&
		existing.Amount == template.Amount &&
		month.Contains(existing.OccurredOn, loc) &&
		core.DayOf(existing.OccurredOn, loc) == day
}

var dedupStrategies = map[string]DuplicateMatcher{
	DedupSeries: SeriesMatcher{},
	DedupValue:  ValueMatcher{},
}

// GetDuplicateMatcher returns the matcher registered under name.
func GetDuplicateMatcher(name string) (DuplicateMatcher, error) {
	m, ok := dedupStrategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown dedup strategy: %s", name)
	}
	return m, nil
}

// DuplicateMatcherNames lists the registered strategy names in order.
func DuplicateMatcherNames() []string {
	names := make([]string, 0, len(dedupStrategies))
	for name := range dedupStrategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDuplicateMatcher adds or replaces a named strategy. Registered
// names pass configuration validation.
func RegisterDuplicateMatcher(name string, m DuplicateMatcher) {
	dedupStrategies[name] = m
}
