package model

import (
	"regexp"
	"strconv"
	"strings"
)

// SourceKind tags the corpus a SourceRef points into.
type SourceKind string

const (
	SourceQuran  SourceKind = "quran"
	SourceHadith SourceKind = "hadith"
	SourceTafsir SourceKind = "tafsir"
	SourceBook   SourceKind = "book"
)

var (
	quranRefPattern  = regexp.MustCompile(`^[0-9]+:[0-9]+(-[0-9]+)?$`)
	hadithRefPattern = regexp.MustCompile(`^[a-z0-9_-]+:[0-9]+[A-Za-z]?$`)
	tafsirRefPattern = regexp.MustCompile(`^(ibn_kathir|jalalayn|saadi):[0-9]+:[0-9]+$`)
	bookRefPattern   = regexp.MustCompile(`^book:[a-z0-9]+:[0-9]+$`)
)

var tafsirSourceRewrite = strings.NewReplacer("ibn-kathir", "ibn_kathir")

// SourceRef is a tagged pointer into one of the four corpora. Ref grammar is
// validated by Kind at construction time; a SourceRef that fails to parse
// must be dropped by the caller rather than carried forward.
type SourceRef struct {
	Kind SourceKind `json:"kind"`
	Ref  string     `json:"ref"`
}

// ParseSourceRef validates raw against the grammar for kind. It rewrites the
// tafsir source's URL form ("ibn-kathir") to its canonical underscore form
// before validating, matching the ingest-time normalization the grammar
// assumes has already happened.
func ParseSourceRef(kind SourceKind, raw string) (SourceRef, bool) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case SourceQuran:
		if !quranRefPattern.MatchString(raw) {
			return SourceRef{}, false
		}
		surah, ayah, ok := splitQuranRef(raw)
		if !ok || surah < 1 || surah > 114 || ayah < 1 {
			return SourceRef{}, false
		}
		return SourceRef{Kind: kind, Ref: raw}, true
	case SourceHadith:
		if !hadithRefPattern.MatchString(raw) {
			return SourceRef{}, false
		}
		return SourceRef{Kind: kind, Ref: raw}, true
	case SourceTafsir:
		rewritten := tafsirSourceRewrite.Replace(raw)
		if !tafsirRefPattern.MatchString(rewritten) {
			return SourceRef{}, false
		}
		return SourceRef{Kind: kind, Ref: rewritten}, true
	case SourceBook:
		if !bookRefPattern.MatchString(raw) {
			return SourceRef{}, false
		}
		return SourceRef{Kind: kind, Ref: raw}, true
	default:
		return SourceRef{}, false
	}
}

// Key is the map key used by resolveSources: "{kind}:{ref}".
func (s SourceRef) Key() string {
	return string(s.Kind) + ":" + s.Ref
}

func splitQuranRef(ref string) (surah, ayahStart int, ok bool) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	surah, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	ayahPart := parts[1]
	if dash := strings.IndexByte(ayahPart, '-'); dash >= 0 {
		ayahPart = ayahPart[:dash]
	}
	ayah, err := strconv.Atoi(ayahPart)
	if err != nil {
		return 0, 0, false
	}
	return surah, ayah, true
}

// QuranRefRange returns the inclusive (surah, ayahFrom, ayahTo) decomposition
// of a quran-kind SourceRef's Ref, accepting both "S:A" and "S:A-B" forms.
func QuranRefRange(ref string) (surah, from, to int, ok bool) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 {
		return 0, 0, 0, false
	}
	surah, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, false
	}
	if dash := strings.IndexByte(parts[1], '-'); dash >= 0 {
		from, err = strconv.Atoi(parts[1][:dash])
		if err != nil {
			return 0, 0, 0, false
		}
		to, err = strconv.Atoi(parts[1][dash+1:])
		if err != nil {
			return 0, 0, 0, false
		}
		return surah, from, to, true
	}
	from, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, false
	}
	return surah, from, from, true
}
