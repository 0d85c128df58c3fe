package dataset

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
)

// maxLineSize bounds a single dataset line; prompts with inline base64
// images can be large.
const maxLineSize = 16 * 1024 * 1024

// Encode writes rec as one JSON line.
func Encode(w io.Writer, rec Record) error {
	data, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Write shuffles a copy of records with rng and writes them to path, one
// JSON object per line. A nil rng writes in the given order.
func Write(path string, records []Record, rng *rand.Rand) error {
	out := make([]Record, len(records))
	copy(out, records)
	if rng != nil {
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating dataset directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating dataset: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, rec := range out {
		if err := Encode(w, rec); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing dataset: %w", err)
	}
	return f.Close()
}

// Line is one decoded dataset line.
type Line struct {
	Number int    // 1-based
	Raw    []byte // trimmed line as read
	Record Record
	// DecodeErr is set by ScanJSON when Raw is valid JSON that does not
	// decode into a Record. Record is zero then.
	DecodeErr error
}

// Scan decodes r line by line and calls fn for every valid record. Blank
// lines are ignored; lines that fail to parse are logged and skipped, and
// their count is returned. An error from fn stops the scan.
func Scan(r io.Reader, fn func(Line) error) (malformed int, err error) {
	return scan(r, fn, false)
}

// ScanJSON is like Scan but calls fn for every line that is valid JSON,
// setting Line.DecodeErr when the line is not shaped like a Record. Only
// lines that fail to parse as JSON are skipped and counted.
func ScanJSON(r io.Reader, fn func(Line) error) (malformed int, err error) {
	return scan(r, fn, true)
}

func scan(r io.Reader, fn func(Line) error, keepJSON bool) (malformed int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for sc.Scan() {
		n++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		line := Line{Number: n, Raw: bytes.Clone(raw)}
		if err := sonic.Unmarshal(raw, &line.Record); err != nil {
			if !keepJSON || !sonic.Valid(raw) {
				slog.Warn("dataset: skipping malformed line", "line", n, "error", err)
				malformed++
				continue
			}
			line.Record = Record{}
			line.DecodeErr = err
		}
		if err := fn(line); err != nil {
			return malformed, err
		}
	}
	if err := sc.Err(); err != nil {
		return malformed, fmt.Errorf("reading dataset: %w", err)
	}
	return malformed, nil
}

// Read loads every valid record of the dataset at path.
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	var records []Record
	_, err = Scan(f, func(l Line) error {
		records = append(records, l.Record)
		return nil
	})
	return records, err
}
