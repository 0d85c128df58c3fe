package eval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the prompt workbook.
const (
	InputSheet  = "Prompts - Input Data"
	ResultSheet = "Prompts - Result Data"
)

// ErrMissingColumn is returned when the input sheet lacks the ID or Prompt header.
var ErrMissingColumn = errors.New("eval: missing column")

// Prompt is one candidate prompt row.
type Prompt struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// LoadPrompts reads the ID and Prompt columns of sheet. The first row is the
// header; rows without prompt text are skipped.
func LoadPrompts(path, sheet string) ([]Prompt, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrMissingColumn, sheet)
	}

	idCol, promptCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "id":
			idCol = i
		case "prompt":
			promptCol = i
		}
	}
	if idCol < 0 || promptCol < 0 {
		return nil, fmt.Errorf("%w: sheet %q needs ID and Prompt headers", ErrMissingColumn, sheet)
	}

	var prompts []Prompt
	for _, row := range rows[1:] {
		text := cell(row, promptCol)
		if strings.TrimSpace(text) == "" {
			continue
		}
		prompts = append(prompts, Prompt{ID: strings.TrimSpace(cell(row, idCol)), Text: text})
	}
	return prompts, nil
}

// cell returns row[i], or "" for trailing cells excelize omits.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
