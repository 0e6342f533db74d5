package textindex

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/sola-scriptura-search-api/internal/normalize"
)

// ArabicAnalyzerName names the custom analyzer registered below. It reuses
// Bleve's unicode tokenizer (Arabic word boundaries are whitespace/
// punctuation driven, same as Latin script) and folds diacritics/alef/teh
// variants through the same normalize.Text pipeline queries go through, so
// the index and the query side always agree on canonical form.
const (
	ArabicFoldFilterName = "arabic_fold"
	ArabicStopFilterName = "arabic_stop"
	ArabicAnalyzerName   = "arabic_analyzer"
)

func init() {
	_ = registry.RegisterTokenFilter(ArabicFoldFilterName, arabicFoldFilterConstructor)
	_ = registry.RegisterTokenFilter(ArabicStopFilterName, arabicStopFilterConstructor)
}

// arabicFoldFilter runs each already-tokenized term through normalize.Text,
// folding diacritics, tatweel, alef variants and teh-marbuta the same way
// the query side does before BuildQuery ever sees the string.
type arabicFoldFilter struct{}

func arabicFoldFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &arabicFoldFilter{}, nil
}

func (f *arabicFoldFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, token := range input {
		folded := normalize.Text(string(token.Term))
		token.Term = []byte(folded)
	}
	return input
}

// arabicStopFilter drops a small set of high-frequency Arabic function words
// that carry no discriminative weight for BM25 ranking over scripture and
// hadith text.
var arabicStopWords = map[string]struct{}{
	"من": {}, "الى": {}, "إلى": {}, "عن": {}, "على": {}, "في": {},
	"و": {}, "ف": {}, "ثم": {}, "او": {}, "أو": {}, "ان": {}, "إن": {},
	"هذا": {}, "هذه": {}, "ذلك": {}, "تلك": {}, "التي": {}, "الذي": {},
	"هو": {}, "هي": {}, "هم": {}, "كان": {}, "كانت": {}, "لا": {}, "ما": {},
}

type arabicStopFilter struct{}

func arabicStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &arabicStopFilter{}, nil
}

func (f *arabicStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		if _, stop := arabicStopWords[string(token.Term)]; stop {
			continue
		}
		out = append(out, token)
	}
	return out
}

// buildIndexMapping registers the Arabic analyzer as the default for the
// "content" field. collection_slug is mapped with Bleve's built-in
// keyword analyzer (no folding/stopping) so the hadith-collection filter
// matches on exact collection slugs.
func buildIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(ArabicAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
			ArabicFoldFilterName,
			ArabicStopFilterName,
		},
	})
	if err != nil {
		return nil, err
	}
	indexMapping.DefaultAnalyzer = ArabicAnalyzerName

	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = ArabicAnalyzerName
	docMapping.AddFieldMappingsAt("content", contentField)

	collectionField := bleve.NewTextFieldMapping()
	collectionField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("collection_slug", collectionField)

	payloadField := bleve.NewTextFieldMapping()
	payloadField.Index = false
	payloadField.Store = true
	payloadField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("payload_json", payloadField)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping, nil
}
