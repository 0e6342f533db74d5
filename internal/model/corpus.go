// Package model holds the core data entities shared across the search
// pipeline: corpus rows, knowledge-graph entities, and the runtime types
// produced while answering one request.
package model

// Corpus names the three searchable document collections.
type Corpus string

const (
	CorpusQuran  Corpus = "quran"
	CorpusHadith Corpus = "hadith"
	CorpusBook   Corpus = "book"
)

// Ayah is one verse of the Quran. (SurahNumber, AyahNumber) is its canonical ID.
type Ayah struct {
	SurahNumber    int    `json:"surah_number" db:"surah_number"`
	AyahNumber     int    `json:"ayah_number" db:"ayah_number"`
	TextUthmani    string `json:"text_uthmani" db:"text_uthmani"`
	TextNormalized string `json:"text_normalized" db:"text_normalized"`
	SurahNameAr    string `json:"surah_name_ar" db:"surah_name_ar"`
	SurahNameEn    string `json:"surah_name_en" db:"surah_name_en"`
	Juz            int    `json:"juz" db:"juz"`
	Page           int    `json:"page" db:"page"`
}

// CanonicalID returns the stable "surah:ayah" identifier used across hits,
// source refs and graph mentions.
func (a Ayah) CanonicalID() string {
	return formatQuranID(a.SurahNumber, a.AyahNumber)
}

// Hadith is one narration. (CollectionSlug, HadithNumber) is its canonical ID.
// HadithNumber is a string because some numbering schemes carry a trailing
// letter suffix (e.g. "1234a").
type Hadith struct {
	CollectionSlug string `json:"collection_slug" db:"collection_slug"`
	BookID         int    `json:"book_id" db:"book_id"`
	HadithNumber   string `json:"hadith_number" db:"hadith_number"`
	TextAr         string `json:"text_ar" db:"text_ar"`
	TextNormalized string `json:"text_normalized" db:"text_normalized"`
	ChapterAr      string `json:"chapter_ar,omitempty" db:"chapter_ar"`
	ChapterEn      string `json:"chapter_en,omitempty" db:"chapter_en"`
}

func (h Hadith) CanonicalID() string {
	return h.CollectionSlug + ":" + h.HadithNumber
}

// BookPage is one page of a published book. (BookID, PageNumber) is its
// canonical ID.
type BookPage struct {
	BookID       string `json:"book_id" db:"book_id"`
	PageNumber   int    `json:"page_number" db:"page_number"`
	ContentPlain string `json:"content_plain" db:"content_plain"`
	BookTitleAr  string `json:"book_title_ar" db:"book_title_ar"`
	BookTitleEn  string `json:"book_title_en" db:"book_title_en"`
}

func (b BookPage) CanonicalID() string {
	return b.BookID + ":" + itoa(b.PageNumber)
}

// Translation is an optional per-language rendering of a corpus row,
// selected by EditionCode (e.g. "eng-hilali").
type Translation struct {
	CanonicalID    string `json:"canonical_id" db:"canonical_id"`
	TargetLanguage string `json:"target_language" db:"target_language"`
	Text           string `json:"text" db:"text"`
	Translator     string `json:"translator" db:"translator"`
	EditionCode    string `json:"edition_code" db:"edition_code"`
}
