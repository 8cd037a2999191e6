package grants

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// SummaryPDF renders the draft as a review document. It is a read-only
// projection; the draft is not mutated and no step transition happens.
func (w *Wizard) SummaryPDF() ([]byte, error) {
	state := w.State()
	if len(state.EmployeeIDs) == 0 {
		return nil, fmt.Errorf("%w: nothing to summarize yet", ErrInvalidState)
	}

	typeName := state.LeaveTypeID
	if t, ok := w.LeaveTypes()[state.LeaveTypeID]; ok {
		typeName = t.Name
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Grant Summary")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Title: %s", state.Title))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Leave type: %s", typeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Mode: %s", state.Mode))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Employees: %d", len(state.EmployeeIDs)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(60, 7, "Employee")
	pdf.Cell(25, 7, "Days")
	pdf.Cell(35, 7, "Start")
	pdf.Cell(35, 7, "End")
	pdf.Cell(35, 7, "Expires")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)

	for _, id := range state.EmployeeIDs {
		name := id
		if e, ok := w.Employee(id); ok {
			name = e.DisplayName()
		}
		days, start, end, expiration := "-", "-", "-", "-"
		switch state.Mode {
		case ModeUniform:
			if state.DaysGranted != nil {
				days = fmt.Sprintf("%g", *state.DaysGranted)
			}
			if state.PeriodStart != nil {
				start = state.PeriodStart.Format(dateLayout)
			}
			if state.PeriodEnd != nil {
				end = state.PeriodEnd.Format(dateLayout)
				if state.Carryover != nil {
					if resolved, err := state.Carryover.Resolve(*state.PeriodEnd); err == nil {
						expiration = resolved.Format(dateLayout)
					}
				}
			}
		case ModeIndividual:
			if line, ok := state.Lines[id]; ok {
				days = fmt.Sprintf("%g", line.DaysGranted)
				start = line.PeriodStart.Format(dateLayout)
				end = line.PeriodEnd.Format(dateLayout)
				expiration = line.CarryoverExpiration.Format(dateLayout)
			}
		}
		pdf.Cell(60, 7, name)
		pdf.Cell(25, 7, days)
		pdf.Cell(35, 7, start)
		pdf.Cell(35, 7, end)
		pdf.Cell(35, 7, expiration)
		pdf.Ln(7)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
