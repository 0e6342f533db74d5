package textindex

import "encoding/json"

// Document is one indexable unit passed to Index. Content is the analyzed,
// searchable text; CollectionSlug is populated only for hadith documents and
// backs the hadith-collection filter.
// PayloadJSON is opaque, stored-but-unindexed display data, decoded exactly
// once at Search time into the corpus-specific payload struct.
type Document struct {
	ID             string
	Content        string
	CollectionSlug string
	PayloadJSON    json.RawMessage
}

// bleveDocument is the struct actually handed to Bleve, so field mapping
// (and any future field additions) stays local to this file. PayloadJSON is
// carried as a plain string (Bleve's reflection-based document walker has
// no native json.RawMessage handling) and re-parsed on the way out.
type bleveDocument struct {
	Content        string `json:"content"`
	CollectionSlug string `json:"collection_slug,omitempty"`
	PayloadJSON    string `json:"payload_json,omitempty"`
}
