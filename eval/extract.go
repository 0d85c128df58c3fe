package eval

import (
	"regexp"
	"strings"
)

// fallbackRunes is how much of an unmatched response is kept as the answer.
const fallbackRunes = 100

// answerPatterns are tried in order, case-insensitively with . matching
// newlines. The end anchors tolerate trailing whitespace. whole reports
// whether the full match is the answer rather than the first group.
var answerPatterns = []struct {
	re    *regexp.Regexp
	whole bool
}{
	{regexp.MustCompile(`(?is)[*]*Final Answer:\s*(.*?)\s*(\(.*?\))[*]*`), true},
	{regexp.MustCompile(`(?is)[*]*Final Answer:\s*(.*?)[*]*\s*$`), false},
	{regexp.MustCompile(`(?is)[*]*Final Output:\s*(.*?)[*]*\s*$`), false},
	{regexp.MustCompile(`(?is)Formatted result:\s*(.*?)\s*$`), false},
}

// datePattern is the case-sensitive "Month YYYY (YYYY-MM)" form.
var datePattern = regexp.MustCompile(`([A-Z][a-z]+\s+\d{4}\s+\(\d{4}-\d{2}\))`)

// Extraction is the answer pulled out of a model response.
type Extraction struct {
	Answer string `json:"answer"`
	// Pattern is the 1-based index of the rule that matched: 1-4 for the
	// labelled forms, 5 for a bare dated answer, 0 for the fallback.
	Pattern       int  `json:"pattern"`
	LowConfidence bool `json:"low_confidence"`
}

// Extract runs the extraction cascade over response. When nothing matches
// it returns the trimmed last 100 characters of the raw response, flagged
// as low confidence.
func Extract(response string) Extraction {
	text := normalizeLLMText(response)
	for i, p := range answerPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if p.whole {
			return Extraction{Answer: strings.TrimSpace(m[0]), Pattern: i + 1}
		}
		return Extraction{Answer: strings.TrimSpace(m[1]), Pattern: i + 1}
	}
	if m := datePattern.FindStringSubmatch(text); m != nil {
		return Extraction{Answer: strings.TrimSpace(m[1]), Pattern: len(answerPatterns) + 1}
	}
	return Extraction{Answer: strings.TrimSpace(lastRunes(response, fallbackRunes)), LowConfidence: true}
}

// ExtractFinalAnswer returns only the answer text of Extract.
func ExtractFinalAnswer(response string) string {
	return Extract(response).Answer
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
