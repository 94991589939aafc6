// Package export writes overtime records to spreadsheet files
package export

import (
	"fmt"
	"io"
	"os"

	"Mansoor88-6/overtime-agent/internal/models"

	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the single worksheet
const SheetName = "Overtime"

// HeaderRow is the row holding the column titles; records start below it
const HeaderRow = 3

// Columns are the column titles, in order
var Columns = []string{
	"Date", "Shift", "In", "Out", "Total Hours",
	"25% Night", "25% Day", "50% Night", "75% Extension", "100% Holiday",
	"Engineer", "Notes", "Status",
}

// WriteRecords writes a workbook with the employee on the first row, a
// header row, one row per record and a totals row
func WriteRecords(w io.Writer, employee models.Employee, records []models.PendingRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &[]any{"Employee", employee.FullName, employee.ID}); err != nil {
		return fmt.Errorf("failed to write employee row: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, cell(1, HeaderRow), &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	last := cell(len(Columns), HeaderRow)
	if err := f.SetCellStyle(SheetName, cell(1, HeaderRow), last, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	var totals [6]float64
	row := HeaderRow + 1
	for _, r := range records {
		hours := []float64{
			float64(r.TotalHours), float64(r.Night25), float64(r.Day25),
			float64(r.Night50), float64(r.Extension75), float64(r.Holiday100),
		}
		values := []any{r.Date, r.ShiftLabel, r.TimeIn, r.TimeOut}
		for i, h := range hours {
			totals[i] += h
			values = append(values, h)
		}
		values = append(values, r.DutyEngineer, r.Notes, r.StatusText())

		if err := f.SetSheetRow(SheetName, cell(1, row), &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		row++
	}

	// totals line up under the hour columns
	values := []any{"Total", "", "", ""}
	for _, t := range totals {
		values = append(values, t)
	}
	if err := f.SetSheetRow(SheetName, cell(1, row), &values); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}
	if err := f.SetCellStyle(SheetName, cell(1, row), cell(len(Columns), row), bold); err != nil {
		return fmt.Errorf("failed to style totals: %w", err)
	}

	if err := f.SetColWidth(SheetName, "A", "M", 14); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile writes the workbook to path, replacing any existing file
func WriteFile(path string, employee models.Employee, records []models.PendingRecord) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := WriteRecords(out, employee, records); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
