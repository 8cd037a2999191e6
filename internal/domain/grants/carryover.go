package grants

import (
	"fmt"
	"time"
)

type CarryoverKind string

const (
	CarryoverMonthsAfter   CarryoverKind = "months_after_period_end"
	CarryoverDaysAfter     CarryoverKind = "days_after_period_end"
	CarryoverNextYearMonth CarryoverKind = "next_year_month"
	CarryoverSpecificDate  CarryoverKind = "specific_date"
)

// CarryoverRule is a tagged value computing when unused granted days expire.
// Only the fields relevant to Kind are read.
type CarryoverRule struct {
	Kind   CarryoverKind `json:"kind"`
	Months int           `json:"months,omitempty"`
	Days   int           `json:"days,omitempty"`
	Month  time.Month    `json:"month,omitempty"`
	Day    int           `json:"day,omitempty"`
	Date   time.Time     `json:"date,omitempty"`
}

// Resolve returns the concrete expiration date for the given period end.
// Resolution is deterministic; callers enforce the strictly-after invariant.
func (r CarryoverRule) Resolve(periodEnd time.Time) (time.Time, error) {
	switch r.Kind {
	case CarryoverMonthsAfter:
		if r.Months <= 0 {
			return time.Time{}, fmt.Errorf("carryover months must be positive, got %d", r.Months)
		}
		return periodEnd.AddDate(0, r.Months, 0), nil
	case CarryoverDaysAfter:
		if r.Days <= 0 {
			return time.Time{}, fmt.Errorf("carryover days must be positive, got %d", r.Days)
		}
		return periodEnd.AddDate(0, 0, r.Days), nil
	case CarryoverNextYearMonth:
		if r.Month < time.January || r.Month > time.December {
			return time.Time{}, fmt.Errorf("carryover month %d out of range", r.Month)
		}
		day := r.Day
		if day == 0 {
			day = 1
		}
		resolved := time.Date(periodEnd.Year()+1, r.Month, day, 0, 0, 0, 0, time.UTC)
		if resolved.Month() != r.Month {
			return time.Time{}, fmt.Errorf("day %d does not exist in %s", day, r.Month)
		}
		return resolved, nil
	case CarryoverSpecificDate:
		if r.Date.IsZero() {
			return time.Time{}, fmt.Errorf("carryover date is required")
		}
		return r.Date, nil
	default:
		return time.Time{}, fmt.Errorf("unknown carryover kind %q", r.Kind)
	}
}
