package timesheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{"Title", "Description", "Hours", "Date"}

// ExportXLSX writes one sheet per week with a row per entry and a total row
func ExportXLSX(w io.Writer, weeks []Week) error {
	f, err := BuildWorkbook(weeks)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteTo(w)
	return err
}

// BuildWorkbook lays the weeks out in a workbook, newest week first
func BuildWorkbook(weeks []Week) (*excelize.File, error) {
	f := excelize.NewFile()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, week := range weeks {
		sheet := week.Key()
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				f.Close()
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, err
		}

		if err := writeWeek(f, sheet, week, bold); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
	}
	return f, nil
}

func writeWeek(f *excelize.File, sheet string, week Week, bold int) error {
	title := week.Title() + "  " + week.Range()
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", bold); err != nil {
		return err
	}

	for col, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 3)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, "A3", "D3", bold); err != nil {
		return err
	}

	row := 4
	for _, e := range week.Entries {
		values := []any{e.Label(), e.Description, e.Hours, e.Date.Format("2006-01-02")}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		row++
	}

	totalLabel, _ := excelize.CoordinatesToCellName(1, row)
	totalHours, _ := excelize.CoordinatesToCellName(3, row)
	if err := f.SetCellValue(sheet, totalLabel, "Total"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, totalHours, week.TotalHours); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, totalLabel, totalHours, bold); err != nil {
		return err
	}

	return f.SetColWidth(sheet, "A", "B", 32)
}
