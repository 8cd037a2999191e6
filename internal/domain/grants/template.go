package grants

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

const dateLayout = "2006-01-02"

// templateColumns is the upload contract: the template is written with these
// columns and an upload must present exactly this header.
var templateColumns = []string{
	"employee_id",
	"employee_name",
	"email",
	"department",
	"days_granted",
	"period_start",
	"period_end",
	"carryover_expiration",
}

// WriteTemplate exports one CSV row per selected employee for external
// editing and re-upload. It is a pure projection of the current selection
// against the directory snapshot; the draft is not mutated. When uniform
// details have already been entered they are used as prefill defaults.
func (w *Wizard) WriteTemplate(out io.Writer) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	d := w.draft
	if len(d.EmployeeIDs) == 0 {
		return fmt.Errorf("%w: select employees before downloading the template", ErrInvalidState)
	}

	days, start, end, expiration := "", "", "", ""
	if d.DaysGranted != nil {
		days = strconv.FormatFloat(*d.DaysGranted, 'f', -1, 64)
	}
	if !d.PeriodStart.IsZero() {
		start = d.PeriodStart.Format(dateLayout)
	}
	if !d.PeriodEnd.IsZero() {
		end = d.PeriodEnd.Format(dateLayout)
		if d.Carryover != nil {
			if resolved, err := d.Carryover.Resolve(d.PeriodEnd); err == nil {
				expiration = resolved.Format(dateLayout)
			}
		}
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(templateColumns); err != nil {
		return err
	}
	for _, id := range d.EmployeeIDs {
		employee := w.byID[id]
		row := []string{
			id,
			employee.DisplayName(),
			employee.Email,
			employee.DepartmentName,
			days,
			start,
			end,
			expiration,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
