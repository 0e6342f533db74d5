package normalize

import "github.com/sola-scriptura-search-api/internal/model"

// BuildQuery runs the full normalization pipeline over raw input and
// assembles the request-scoped Query the rest of the pipeline consumes.
func BuildQuery(raw string) model.Query {
	normalized := Text(raw)
	return model.Query{
		Raw:              raw,
		Normalized:       normalized,
		QuotedPhrases:    QuotedPhrases(raw),
		CharCount:        NonSpaceCharCount(normalized),
		WordCount:        WordCount(normalized),
		DetectedLanguage: model.Lang(DetectLanguage(normalized)),
	}
}
