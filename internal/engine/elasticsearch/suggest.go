package elasticsearch

import (
	"context"

	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/query"
)

// completionContextName keys the completion suggest section in the request
// body and the response.
const completionContextName = "product-suggest"

// Complete runs a completion suggester query for prefix autocomplete.
func (e *Engine) Complete(ctx context.Context, req *query.CompletionRequest) ([]engine.SuggestionOption, error) {
	completion := map[string]any{
		"field":           req.Field,
		"size":            req.Size,
		"skip_duplicates": req.SkipDuplicates,
	}
	if req.Fuzziness != "" {
		completion["fuzzy"] = map[string]any{
			"fuzziness": req.Fuzziness,
		}
	}

	body := map[string]any{
		"suggest": map[string]any{
			completionContextName: map[string]any{
				"prefix":     req.Prefix,
				"completion": completion,
			},
		},
	}
	if len(req.SourceFields) > 0 {
		body["_source"] = req.SourceFields
	}

	resp, err := e.search(ctx, "complete", body)
	if err != nil {
		return nil, err
	}

	return suggestOptions(resp, completionContextName), nil
}

// Correct runs a phrase suggester query for spelling corrections.
func (e *Engine) Correct(ctx context.Context, req *query.SuggestRequest) ([]engine.SuggestionOption, error) {
	body := map[string]any{
		"size": 0,
		"suggest": map[string]any{
			suggestContextName: map[string]any{
				"text":   req.Text,
				"phrase": buildPhraseSuggest(req),
			},
		},
	}

	resp, err := e.search(ctx, "correct", body)
	if err != nil {
		return nil, err
	}

	return suggestOptions(resp, suggestContextName), nil
}
