package query

// Autocomplete and spelling-correction request construction. Both paths are
// narrower than a full search: no filters, no facets, a small source
// projection.

const (
	completionField = "name_suggest"
	correctionField = "name"

	completionSize = 8
	correctionSize = 3
)

// CompletionFor builds a fuzzy, duplicate-skipping prefix completion request.
func CompletionFor(prefix string) *CompletionRequest {
	return &CompletionRequest{
		Prefix:         prefix,
		Field:          completionField,
		Size:           completionSize,
		SkipDuplicates: true,
		Fuzziness:      "AUTO",
		SourceFields:   []string{"name", "sku", "price", "status"},
	}
}

// CorrectionFor builds a phrase spelling-correction request. The popular
// suggest mode only proposes candidates that occur in the data more often
// than the original input.
func CorrectionFor(text string) *SuggestRequest {
	return &SuggestRequest{
		Text:        text,
		Field:       correctionField,
		Size:        correctionSize,
		GramSize:    3,
		SuggestMode: "popular",
	}
}
