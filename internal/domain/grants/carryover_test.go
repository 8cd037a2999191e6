package grants

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCarryoverMonthsAfter(t *testing.T) {
	rule := CarryoverRule{Kind: CarryoverMonthsAfter, Months: 3}
	got, err := rule.Resolve(date(2025, time.December, 31))
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if want := date(2026, time.March, 31); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestCarryoverMonthsAfterRequiresPositive(t *testing.T) {
	rule := CarryoverRule{Kind: CarryoverMonthsAfter, Months: 0}
	if _, err := rule.Resolve(date(2025, time.December, 31)); err == nil {
		t.Fatal("expected error for zero months")
	}
}

func TestCarryoverDaysAfter(t *testing.T) {
	rule := CarryoverRule{Kind: CarryoverDaysAfter, Days: 90}
	got, err := rule.Resolve(date(2025, time.December, 31))
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if want := date(2026, time.March, 31); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestCarryoverDaysAfterRequiresPositive(t *testing.T) {
	rule := CarryoverRule{Kind: CarryoverDaysAfter, Days: -1}
	if _, err := rule.Resolve(date(2025, time.December, 31)); err == nil {
		t.Fatal("expected error for negative days")
	}
}

func TestCarryoverNextYearMonth(t *testing.T) {
	rule := CarryoverRule{Kind: CarryoverNextYearMonth, Month: time.April, Day: 15}
	got, err := rule.Resolve(date(2025, time.December, 31))
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if want := date(2026, time.April, 15); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestCarryoverNextYearMonthDefaultsToFirst(t *testing.T) {
	rule := CarryoverRule{Kind: CarryoverNextYearMonth, Month: time.April}
	got, err := rule.Resolve(date(2025, time.December, 31))
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if want := date(2026, time.April, 1); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestCarryoverNextYearMonthRejectsImpossibleDay(t *testing.T) {
	rule := CarryoverRule{Kind: CarryoverNextYearMonth, Month: time.February, Day: 30}
	if _, err := rule.Resolve(date(2025, time.December, 31)); err == nil {
		t.Fatal("expected error for February 30")
	}
}

func TestCarryoverNextYearMonthRejectsBadMonth(t *testing.T) {
	rule := CarryoverRule{Kind: CarryoverNextYearMonth, Month: 13}
	if _, err := rule.Resolve(date(2025, time.December, 31)); err == nil {
		t.Fatal("expected error for month 13")
	}
}

func TestCarryoverSpecificDate(t *testing.T) {
	want := date(2026, time.June, 30)
	rule := CarryoverRule{Kind: CarryoverSpecificDate, Date: want}
	got, err := rule.Resolve(date(2025, time.December, 31))
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestCarryoverSpecificDateRequiresDate(t *testing.T) {
	rule := CarryoverRule{Kind: CarryoverSpecificDate}
	if _, err := rule.Resolve(date(2025, time.December, 31)); err == nil {
		t.Fatal("expected error for zero date")
	}
}

func TestCarryoverUnknownKind(t *testing.T) {
	rule := CarryoverRule{Kind: "quarterly"}
	if _, err := rule.Resolve(date(2025, time.December, 31)); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
