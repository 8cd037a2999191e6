package grants

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"
)

func TestWriteTemplateRequiresSelection(t *testing.T) {
	w := newTestWizard(t)
	var buf bytes.Buffer
	if err := w.WriteTemplate(&buf); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestWriteTemplatePrefillsUniformDetails(t *testing.T) {
	w := newTestWizard(t)
	if err := w.SelectEmployees([]string{"e1", "e2"}); err != nil {
		t.Fatal(err)
	}
	if err := w.SetMode(ModeUniform); err != nil {
		t.Fatal(err)
	}
	if err := w.SetUniformDetails(20, date(2026, time.January, 1), date(2026, time.December, 31), CarryoverRule{Kind: CarryoverMonthsAfter, Months: 3}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := w.WriteTemplate(&buf); err != nil {
		t.Fatalf("write template: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d records", len(records))
	}
	if records[0][0] != "employee_id" || records[0][7] != "carryover_expiration" {
		t.Fatalf("unexpected header: %v", records[0])
	}

	row := records[1]
	if row[0] != "e1" || row[1] != "Ama Mensah" {
		t.Fatalf("unexpected first row: %v", row)
	}
	if row[4] != "20" || row[5] != "2026-01-01" || row[6] != "2026-12-31" || row[7] != "2027-03-31" {
		t.Fatalf("expected uniform prefill, got %v", row)
	}
}

func TestTemplateRoundtripUpload(t *testing.T) {
	w := individualWizard(t, "e1", "e2")
	if err := w.SetUniformDetails(18, date(2026, time.January, 1), date(2026, time.December, 31), CarryoverRule{Kind: CarryoverDaysAfter, Days: 60}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := w.WriteTemplate(&buf); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := w.ApplyUpload(&buf); err != nil {
		t.Fatalf("roundtrip upload: %v", err)
	}

	state := w.State()
	if len(state.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(state.Lines))
	}
	if got := state.Lines["e2"].DaysGranted; got != 18 {
		t.Fatalf("expected 18 days for e2, got %g", got)
	}
}
