package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAnswer is returned by ParseAnswer for text not in MM/YYYY form.
var ErrInvalidAnswer = errors.New("dataset: invalid answer")

// FormatAnswer returns the canonical label, the zero-padded month and the
// full year: "02/2021".
func FormatAnswer(year, month int) string {
	return fmt.Sprintf("%02d/%d", month, year)
}

// ParseAnswer inverts FormatAnswer.
func ParseAnswer(s string) (year, month int, err error) {
	mm, yyyy, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || len(mm) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidAnswer, s)
	}
	month, err = strconv.Atoi(mm)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: month in %q", ErrInvalidAnswer, s)
	}
	year, err = strconv.Atoi(yyyy)
	if err != nil || year < 0 {
		return 0, 0, fmt.Errorf("%w: year in %q", ErrInvalidAnswer, s)
	}
	return year, month, nil
}
