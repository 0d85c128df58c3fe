package eval

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook replaces sheet in the workbook at path with the report's
// results: one row per prompt with columns ID, Result_1, Precision_1, ...
// Other sheets are preserved.
func WriteWorkbook(path, sheet string, r *Report) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err == nil && idx >= 0 {
		if err := f.DeleteSheet(sheet); err != nil {
			return fmt.Errorf("clearing sheet %q: %w", sheet, err)
		}
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating sheet %q: %w", sheet, err)
	}

	n := len(r.Cases)
	header := make([]any, 0, 1+2*n)
	header = append(header, "ID")
	for i := 1; i <= n; i++ {
		header = append(header, "Result_"+strconv.Itoa(i), "Precision_"+strconv.Itoa(i))
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, p := range r.Prompts {
		row := i + 2
		if err := setCell(f, sheet, 1, row, idValue(p.ID)); err != nil {
			return fmt.Errorf("writing prompt %s: %w", p.ID, err)
		}
		for _, res := range p.Results {
			if err := setCell(f, sheet, 2*res.Index, row, res.Extracted); err != nil {
				return fmt.Errorf("writing prompt %s: %w", p.ID, err)
			}
			if err := setCell(f, sheet, 2*res.Index+1, row, res.Precision); err != nil {
				return fmt.Errorf("writing prompt %s: %w", p.ID, err)
			}
		}
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, v)
}

// idValue keeps numeric IDs numeric in the written sheet.
func idValue(id string) any {
	if n, err := strconv.Atoi(id); err == nil {
		return n
	}
	return id
}
