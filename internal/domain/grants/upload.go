package grants

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ApplyUpload parses a bulk upload and, only if every row passes every
// constraint, atomically replaces the draft's per-employee rows. Any defect
// rejects the whole file and leaves prior rows untouched.
func (w *Wizard) ApplyUpload(r io.Reader) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitting {
		return ErrSubmitInFlight
	}

	d := w.draft
	if d.Mode != ModeIndividual {
		return fmt.Errorf("%w: uploads apply to individual mode only", ErrInvalidState)
	}
	if len(d.EmployeeIDs) == 0 {
		return fmt.Errorf("%w: select employees before uploading", ErrInvalidState)
	}

	lines, err := parseUpload(r, d.EmployeeIDs, d.maxDays(w.types))
	if err != nil {
		return err
	}
	d.Lines = lines
	return nil
}

// parseUpload is the validate phase of the two-phase upload: it builds a
// candidate mapping without touching the draft and returns it only when
// every row passed.
func parseUpload(r io.Reader, selected []string, maxDays *float64) (map[string]GrantLine, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(templateColumns)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &UploadError{Rows: []RowIssue{{Row: 1, Field: "", Reason: "missing header row"}}}
	}
	if !headerMatches(header) {
		return nil, &UploadError{Rows: []RowIssue{{Row: 1, Field: "", Reason: "header must match the exported template columns"}}}
	}

	selectedSet := make(map[string]bool, len(selected))
	for _, id := range selected {
		selectedSet[id] = true
	}

	var issues []RowIssue
	candidate := make(map[string]GrantLine, len(selected))
	attempted := make(map[string]bool, len(selected))
	row := 1
	for {
		record, err := reader.Read()
		row++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				issues = append(issues, RowIssue{Row: row, Field: "", Reason: fmt.Sprintf("expected %d columns", len(templateColumns))})
				continue
			}
			issues = append(issues, RowIssue{Row: row, Field: "", Reason: "malformed row"})
			break
		}

		if id := strings.TrimSpace(record[0]); id != "" {
			if attempted[id] {
				issues = append(issues, RowIssue{Row: row, Field: "employee_id", Reason: fmt.Sprintf("duplicate row for %s", id)})
				continue
			}
			attempted[id] = true
		}

		line, rowIssues := parseRow(row, record, selectedSet, maxDays)
		if len(rowIssues) > 0 {
			issues = append(issues, rowIssues...)
			continue
		}
		candidate[line.EmployeeID] = line
	}

	// Coverage check: exactly one row per selected employee, no gaps. Rows
	// that were present but rejected for field reasons are not double
	// reported as missing.
	for _, id := range selected {
		if _, ok := candidate[id]; !ok && !attempted[id] {
			issues = append(issues, RowIssue{Row: 0, Field: "employee_id", Reason: fmt.Sprintf("missing row for %s", id)})
		}
	}

	if len(issues) > 0 {
		return nil, &UploadError{Rows: issues}
	}
	return candidate, nil
}

func parseRow(row int, record []string, selected map[string]bool, maxDays *float64) (GrantLine, []RowIssue) {
	var issues []RowIssue
	fail := func(field, reason string) {
		issues = append(issues, RowIssue{Row: row, Field: field, Reason: reason})
	}

	employeeID := strings.TrimSpace(record[0])
	if employeeID == "" {
		fail("employee_id", "is required")
	} else if !selected[employeeID] {
		fail("employee_id", fmt.Sprintf("%s is not in the selected employees", employeeID))
	}

	days, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
	if err != nil {
		fail("days_granted", "must be a number")
	} else if days < 0 {
		fail("days_granted", "must not be negative")
	} else if maxDays != nil && days > *maxDays {
		fail("days_granted", fmt.Sprintf("must not exceed %g days for this leave type", *maxDays))
	}

	start, err := parseUploadDate(record[5])
	if err != nil {
		fail("period_start", "must be a date in YYYY-MM-DD format")
	}
	end, err := parseUploadDate(record[6])
	if err != nil {
		fail("period_end", "must be a date in YYYY-MM-DD format")
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		fail("period_end", "must be on or after period_start")
	}

	expiration, err := parseUploadDate(record[7])
	if err != nil {
		fail("carryover_expiration", "must be a date in YYYY-MM-DD format")
	} else if !end.IsZero() && !expiration.After(end) {
		fail("carryover_expiration", "must be strictly after period_end")
	}

	if len(issues) > 0 {
		return GrantLine{}, issues
	}
	return GrantLine{
		EmployeeID:          employeeID,
		DaysGranted:         days,
		PeriodStart:         start,
		PeriodEnd:           end,
		CarryoverExpiration: expiration,
	}, nil
}

func parseUploadDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(raw))
}

func headerMatches(header []string) bool {
	if len(header) != len(templateColumns) {
		return false
	}
	for i, col := range templateColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return false
		}
	}
	return true
}
