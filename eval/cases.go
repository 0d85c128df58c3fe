package eval

import "github.com/bbiangul/moldstamp/dataset"

// Case is one test image with its expected answer.
type Case struct {
	ImageURL string `json:"image_url"`
	Expected string `json:"expected"`
}

// CasesFromRecords turns dataset records into test cases: the last image of
// the user turn and the answer extracted from the assistant turn. Records
// missing either are skipped.
func CasesFromRecords(records []dataset.Record) []Case {
	var cases []Case
	for _, rec := range records {
		url := rec.ImageURL()
		expected := ExtractFinalAnswer(rec.Answer())
		if url == "" || expected == "" {
			continue
		}
		cases = append(cases, Case{ImageURL: url, Expected: expected})
	}
	return cases
}

// LoadCases reads the test cases of a JSONL dataset.
func LoadCases(path string) ([]Case, error) {
	records, err := dataset.Read(path)
	if err != nil {
		return nil, err
	}
	return CasesFromRecords(records), nil
}
