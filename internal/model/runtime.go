package model

// Lang is the detected language of a raw query.
type Lang string

const (
	LangArabic  Lang = "ar"
	LangOther   Lang = "other"
	LangUnknown Lang = "unknown"
)

// Query is the normalized, request-scoped representation of the user's
// free-text input.
type Query struct {
	Raw              string   `json:"raw"`
	Normalized       string   `json:"normalized"`
	QuotedPhrases    []string `json:"quoted_phrases,omitempty"`
	CharCount        int      `json:"char_count"`
	WordCount        int      `json:"word_count"`
	DetectedLanguage Lang     `json:"detected_language"`
}

// HasQuote reports whether the query text contains a quoted phrase, which
// gates semantic search and shifts the standard-mode fusion weights.
func (q Query) HasQuote() bool {
	return len(q.QuotedPhrases) > 0
}

// ScoreKind labels which score space a RankedList's Hits live in, so
// downstream stages never compare scores across incompatible spaces.
type ScoreKind string

const (
	ScoreRawBM25           ScoreKind = "raw_bm25"
	ScoreNormalizedKeyword ScoreKind = "normalized_keyword"
	ScoreCosine            ScoreKind = "cosine"
	ScoreFusedWeighted     ScoreKind = "fused_weighted"
	ScoreRRF               ScoreKind = "rrf"
	ScoreDirect            ScoreKind = "direct"
)

// Hit is one scored document in a RankedList. Rank is the hit's final
// 1-based position within its corpus's response list, assigned by the
// orchestrator after all reordering; it is zero until then.
type Hit struct {
	DocID         string     `json:"doc_id"`
	Corpus        Corpus     `json:"corpus"`
	Rank          int        `json:"rank"`
	KeywordScore  *float64   `json:"keyword_score,omitempty"`
	SemanticScore *float64   `json:"semantic_score,omitempty"`
	KeywordRank   *int       `json:"keyword_rank,omitempty"`
	SemanticRank  *int       `json:"semantic_rank,omitempty"`
	FusedScore    float64    `json:"fused_score"`
	ScoreKind     ScoreKind  `json:"score_kind"`
	Payload       HitPayload `json:"payload"`
}

// HitPayload is the tagged-variant display payload for a Hit. At most one
// field is populated, matching the Hit's Corpus; direct-match hits carry none.
type HitPayload struct {
	Ayah     *QuranPayload  `json:"ayah,omitempty"`
	Hadith   *HadithPayload `json:"hadith,omitempty"`
	BookPage *BookPayload   `json:"book_page,omitempty"`
}

// QuranPayload is the display form of an Ayah hit.
type QuranPayload struct {
	SurahNumber int    `json:"surah_number"`
	AyahNumber  int    `json:"ayah_number"`
	TextUthmani string `json:"text_uthmani"`
	SurahNameAr string `json:"surah_name_ar"`
	SurahNameEn string `json:"surah_name_en"`
	Juz         int    `json:"juz"`
	Page        int    `json:"page"`
	Translation string `json:"translation,omitempty"`
}

// HadithPayload is the display form of a Hadith hit.
type HadithPayload struct {
	CollectionSlug string `json:"collection_slug"`
	HadithNumber   string `json:"hadith_number"`
	TextAr         string `json:"text_ar"`
	ChapterAr      string `json:"chapter_ar,omitempty"`
	ChapterEn      string `json:"chapter_en,omitempty"`
	Translation    string `json:"translation,omitempty"`
}

// BookPayload is the display form of a BookPage hit.
type BookPayload struct {
	BookID       string `json:"book_id"`
	PageNumber   int    `json:"page_number"`
	ContentPlain string `json:"content_plain"`
	BookTitleAr  string `json:"book_title_ar"`
	BookTitleEn  string `json:"book_title_en"`
}

// RankedList is an ordered set of Hits, descending by FusedScore, all
// sharing one ScoreKind.
type RankedList struct {
	Corpus    Corpus    `json:"-"`
	ScoreKind ScoreKind `json:"-"`
	Hits      []Hit     `json:"hits"`
}

// ExpandedQuery is one LLM-generated paraphrase produced in refine mode.
// Weight is filled in by the orchestrator, never by the expander itself.
type ExpandedQuery struct {
	SubQuery        string  `json:"sub_query"`
	Weight          float64 `json:"weight"`
	SourceRationale string  `json:"source_rationale,omitempty"`
}

// DebugStats records per-stage timing and degradation flags for one request.
// Fields are named rather than held in a map so a missing stage is a compile
// error, not a silently absent key.
type DebugStats struct {
	NormalizeMS      float64  `json:"normalize_ms"`
	DirectMatchMS    float64  `json:"direct_match_ms"`
	SearchFanoutMS   float64  `json:"search_fanout_ms"`
	KeywordSearchMS  float64  `json:"keyword_search_ms"`
	SemanticSearchMS float64  `json:"semantic_search_ms"`
	FusionMS         float64  `json:"fusion_ms"`
	ExpansionMS      float64  `json:"expansion_ms"`
	RerankMS         float64  `json:"rerank_ms"`
	TranslationMS    float64  `json:"translation_ms"`
	GraphAttachMS    float64  `json:"graph_attach_ms"`
	TotalMS          float64  `json:"total_ms"`
	DirectMatch      bool     `json:"direct_match"`
	Degraded         bool     `json:"degraded"`
	DegradedFeatures []string `json:"degraded_features,omitempty"`
	TimedOutStages   []string `json:"timed_out_stages,omitempty"`
	RefineMode       bool     `json:"refine_mode"`
}

// StageSumMS is the wall-time accounted to the non-overlapping stages.
// KeywordSearchMS and SemanticSearchMS are excluded: both run inside the
// search fan-out, so SearchFanoutMS already covers their wall time.
func (d *DebugStats) StageSumMS() float64 {
	return d.NormalizeMS + d.DirectMatchMS + d.ExpansionMS + d.SearchFanoutMS +
		d.FusionMS + d.RerankMS + d.TranslationMS + d.GraphAttachMS
}

// AddDegraded appends feature to DegradedFeatures (deduplicated) and sets
// Degraded.
func (d *DebugStats) AddDegraded(feature string) {
	d.Degraded = true
	for _, f := range d.DegradedFeatures {
		if f == feature {
			return
		}
	}
	d.DegradedFeatures = append(d.DegradedFeatures, feature)
}

// AddTimedOut records stage as having hit the request deadline. A timed-out
// stage always implies a degraded response.
func (d *DebugStats) AddTimedOut(stage string) {
	d.Degraded = true
	for _, s := range d.TimedOutStages {
		if s == stage {
			return
		}
	}
	d.TimedOutStages = append(d.TimedOutStages, stage)
}

// AuthorCredit attaches a source's authors/translators for display, kept
// separate from the Hit payload because it is look-up data, not search
// result data.
type AuthorCredit struct {
	CanonicalID string `json:"canonical_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
}

// SearchResponse is the top-level response assembled once per request.
type SearchResponse struct {
	QuranHits       []Hit           `json:"quran_hits"`
	HadithHits      []Hit           `json:"hadith_hits"`
	BookHits        []Hit           `json:"book_hits"`
	Authors         []AuthorCredit  `json:"authors,omitempty"`
	GraphContext    GraphContext    `json:"graph_context"`
	DebugStats      DebugStats      `json:"debug_stats"`
	ExpandedQueries []ExpandedQuery `json:"expanded_queries,omitempty"`
}
