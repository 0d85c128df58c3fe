package moldstamp

import "errors"

var (
	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("moldstamp: invalid configuration")

	// ErrNoPrompts is returned when the prompt sheet has no usable rows.
	ErrNoPrompts = errors.New("moldstamp: no prompts found")

	// ErrNoTestCases is returned when the evaluation dataset has no valid
	// records.
	ErrNoTestCases = errors.New("moldstamp: no test cases found")

	// ErrVisionUnavailable is returned when no vision provider can be built
	// from the configuration.
	ErrVisionUnavailable = errors.New("moldstamp: vision provider unavailable")
)
