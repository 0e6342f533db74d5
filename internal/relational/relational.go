// Package relational resolves source references against Postgres: batched
// "WHERE (keys) IN (...)" lookups partitioned by SourceRef kind and run
// concurrently, plus the stored-translation lookups attached to final
// search hits.
package relational

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/sola-scriptura-search-api/internal/model"
)

// ResolvedSource is one SourceRef's display form: its source text (already
// truncated to its kind's display length) and a bilingual label. It is the
// same shape the core data model exposes on GraphContext, so callers never
// need to convert between a relational-package type and a model type.
type ResolvedSource = model.ResolvedSource

// Store resolves batches of SourceRefs against the corpora's relational
// tables. The core never mutates these tables; every method here issues
// read-only SELECTs.
type Store struct {
	db *sqlx.DB
}

// New creates a relational Store.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ResolveSources partitions refs by Kind and issues one batched query per
// kind (per collection for hadith), all running concurrently. A missing
// referent is simply absent from the returned map, never an error; the
// only errors returned are from the relational store itself being
// unreachable, which the caller (internal/graph) treats as a degraded
// collaborator.
func (s *Store) ResolveSources(ctx context.Context, refs []model.SourceRef) (map[string]ResolvedSource, error) {
	byKind := make(map[model.SourceKind][]model.SourceRef)
	for _, r := range refs {
		byKind[r.Kind] = append(byKind[r.Kind], r)
	}

	out := make(map[string]ResolvedSource, len(refs))
	var mu sync.Mutex
	merge := func(src map[string]ResolvedSource) {
		mu.Lock()
		defer mu.Unlock()
		for k, v := range src {
			out[k] = v
		}
	}
	g, gctx := errgroup.WithContext(ctx)

	if quran := byKind[model.SourceQuran]; len(quran) > 0 {
		g.Go(func() error {
			resolved, err := s.resolveQuran(gctx, quran)
			if err != nil {
				return err
			}
			merge(resolved)
			return nil
		})
	}
	if hadith := byKind[model.SourceHadith]; len(hadith) > 0 {
		g.Go(func() error {
			resolved, err := s.resolveHadith(gctx, hadith)
			if err != nil {
				return err
			}
			merge(resolved)
			return nil
		})
	}
	if tafsir := byKind[model.SourceTafsir]; len(tafsir) > 0 {
		g.Go(func() error {
			resolved, err := s.resolveTafsir(gctx, tafsir)
			if err != nil {
				return err
			}
			merge(resolved)
			return nil
		})
	}
	if book := byKind[model.SourceBook]; len(book) > 0 {
		g.Go(func() error {
			resolved, err := s.resolveBook(gctx, book)
			if err != nil {
				return err
			}
			merge(resolved)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type quranRow struct {
	SurahNumber int    `db:"surah_number"`
	AyahNumber  int    `db:"ayah_number"`
	TextUthmani string `db:"text_uthmani"`
	SurahNameAr string `db:"surah_name_ar"`
	SurahNameEn string `db:"surah_name_en"`
}

// resolveQuran fetches every ayah touched by refs' surah:ayah / surah:a-b
// ranges in a single query, then reassembles each original ref by
// concatenating its ayahs' text_uthmani with a single space, in ayah order.
func (s *Store) resolveQuran(ctx context.Context, refs []model.SourceRef) (map[string]ResolvedSource, error) {
	type rng struct{ surah, from, to int }
	ranges := make([]rng, 0, len(refs))
	for _, r := range refs {
		surah, from, to, ok := model.QuranRefRange(r.Ref)
		if !ok {
			continue
		}
		ranges = append(ranges, rng{surah, from, to})
	}
	if len(ranges) == 0 {
		return map[string]ResolvedSource{}, nil
	}

	clauses := make([]string, 0, len(ranges))
	args := make([]interface{}, 0, len(ranges)*3)
	for i, rg := range ranges {
		clauses = append(clauses, fmt.Sprintf("(surah_number = $%d AND ayah_number BETWEEN $%d AND $%d)", i*3+1, i*3+2, i*3+3))
		args = append(args, rg.surah, rg.from, rg.to)
	}

	query := "SELECT surah_number, ayah_number, text_uthmani, surah_name_ar, surah_name_en FROM ayahs WHERE " +
		strings.Join(clauses, " OR ")

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("relational: resolve quran: %w", err)
	}
	defer rows.Close()

	var fetched []quranRow
	for rows.Next() {
		var row quranRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("relational: scan quran row: %w", err)
		}
		fetched = append(fetched, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("relational: iterate quran rows: %w", err)
	}
	sort.Slice(fetched, func(i, j int) bool {
		if fetched[i].SurahNumber != fetched[j].SurahNumber {
			return fetched[i].SurahNumber < fetched[j].SurahNumber
		}
		return fetched[i].AyahNumber < fetched[j].AyahNumber
	})

	out := make(map[string]ResolvedSource, len(refs))
	for _, r := range refs {
		surah, from, to, ok := model.QuranRefRange(r.Ref)
		if !ok {
			continue
		}
		var texts []string
		var surahNameAr, surahNameEn string
		for _, row := range fetched {
			if row.SurahNumber == surah && row.AyahNumber >= from && row.AyahNumber <= to {
				texts = append(texts, row.TextUthmani)
				surahNameAr, surahNameEn = row.SurahNameAr, row.SurahNameEn
			}
		}
		if len(texts) == 0 {
			continue
		}
		out[r.Key()] = ResolvedSource{
			Kind:    model.SourceQuran,
			Ref:     r.Ref,
			LabelAr: fmt.Sprintf("%s %s", surahNameAr, toArabicIndicDigits(r.Ref[strings.IndexByte(r.Ref, ':')+1:])),
			LabelEn: fmt.Sprintf("%s %s", surahNameEn, r.Ref[strings.IndexByte(r.Ref, ':')+1:]),
			Text:    strings.Join(texts, " "),
		}
	}
	return out, nil
}

type hadithRow struct {
	HadithNumber string `db:"hadith_number"`
	TextAr       string `db:"text_ar"`
	ChapterAr    string `db:"chapter_ar"`
	ChapterEn    string `db:"chapter_en"`
}

// resolveHadith groups refs by collection slug and issues one query per
// collection, truncating text to 300 UTF-8-safe characters for display.
func (s *Store) resolveHadith(ctx context.Context, refs []model.SourceRef) (map[string]ResolvedSource, error) {
	byCollection := make(map[string][]string)
	for _, r := range refs {
		collection, number, ok := strings.Cut(r.Ref, ":")
		if !ok {
			continue
		}
		byCollection[collection] = append(byCollection[collection], number)
	}

	out := make(map[string]ResolvedSource, len(refs))
	for collection, numbers := range byCollection {
		query, args, err := sqlx.In(
			"SELECT hadith_number, text_ar, chapter_ar, chapter_en FROM hadiths WHERE collection_slug = ? AND hadith_number IN (?)",
			collection, numbers,
		)
		if err != nil {
			return nil, fmt.Errorf("relational: build hadith query for %s: %w", collection, err)
		}
		query = s.db.Rebind(query)

		rows, err := s.db.QueryxContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("relational: resolve hadith %s: %w", collection, err)
		}
		for rows.Next() {
			var row hadithRow
			if err := rows.StructScan(&row); err != nil {
				rows.Close()
				return nil, fmt.Errorf("relational: scan hadith row: %w", err)
			}
			ref := collection + ":" + row.HadithNumber
			out[(model.SourceRef{Kind: model.SourceHadith, Ref: ref}).Key()] = ResolvedSource{
				Kind:    model.SourceHadith,
				Ref:     ref,
				LabelAr: row.ChapterAr,
				LabelEn: row.ChapterEn,
				Text:    truncateRunes(row.TextAr, 300),
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("relational: iterate hadith rows: %w", err)
		}
		rows.Close()
	}
	return out, nil
}

type tafsirRow struct {
	Source      string `db:"source"`
	SurahNumber int    `db:"surah_number"`
	AyahNumber  int    `db:"ayah_number"`
	Text        string `db:"text"`
}

// resolveTafsir issues one query over (source, surah, ayah) triples,
// truncating text to 400 UTF-8-safe characters.
func (s *Store) resolveTafsir(ctx context.Context, refs []model.SourceRef) (map[string]ResolvedSource, error) {
	clauses := make([]string, 0, len(refs))
	args := make([]interface{}, 0, len(refs)*3)
	validRefs := make([]model.SourceRef, 0, len(refs))
	for _, r := range refs {
		parts := strings.SplitN(r.Ref, ":", 3)
		if len(parts) != 3 {
			continue
		}
		var surah, ayah int
		if _, err := fmt.Sscanf(parts[1]+" "+parts[2], "%d %d", &surah, &ayah); err != nil {
			continue
		}
		i := len(validRefs)
		clauses = append(clauses, fmt.Sprintf("(source = $%d AND surah_number = $%d AND ayah_number = $%d)", i*3+1, i*3+2, i*3+3))
		args = append(args, parts[0], surah, ayah)
		validRefs = append(validRefs, r)
	}
	if len(clauses) == 0 {
		return map[string]ResolvedSource{}, nil
	}

	query := "SELECT source, surah_number, ayah_number, text FROM tafsir WHERE " + strings.Join(clauses, " OR ")
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("relational: resolve tafsir: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ResolvedSource, len(validRefs))
	for rows.Next() {
		var row tafsirRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("relational: scan tafsir row: %w", err)
		}
		ref := fmt.Sprintf("%s:%d:%d", row.Source, row.SurahNumber, row.AyahNumber)
		out[(model.SourceRef{Kind: model.SourceTafsir, Ref: ref}).Key()] = ResolvedSource{
			Kind: model.SourceTafsir,
			Ref:  ref,
			Text: truncateRunes(row.Text, 400),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("relational: iterate tafsir rows: %w", err)
	}
	return out, nil
}

type bookRow struct {
	BookID       string `db:"book_id"`
	PageNumber   int    `db:"page_number"`
	ContentPlain string `db:"content_plain"`
	BookTitleAr  string `db:"book_title_ar"`
	BookTitleEn  string `db:"book_title_en"`
}

// resolveBook issues one query over (book_id, page) pairs, truncating to
// 300 UTF-8-safe characters.
func (s *Store) resolveBook(ctx context.Context, refs []model.SourceRef) (map[string]ResolvedSource, error) {
	clauses := make([]string, 0, len(refs))
	args := make([]interface{}, 0, len(refs)*2)
	for _, r := range refs {
		_, bookID, page, ok := splitBookRef(r.Ref)
		if !ok {
			continue
		}
		i := len(clauses)
		clauses = append(clauses, fmt.Sprintf("(book_id = $%d AND page_number = $%d)", i*2+1, i*2+2))
		args = append(args, bookID, page)
	}
	if len(clauses) == 0 {
		return map[string]ResolvedSource{}, nil
	}

	query := "SELECT book_id, page_number, content_plain, book_title_ar, book_title_en FROM book_pages WHERE " + strings.Join(clauses, " OR ")
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("relational: resolve book: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ResolvedSource, len(refs))
	for rows.Next() {
		var row bookRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("relational: scan book row: %w", err)
		}
		ref := fmt.Sprintf("book:%s:%d", row.BookID, row.PageNumber)
		out[(model.SourceRef{Kind: model.SourceBook, Ref: ref}).Key()] = ResolvedSource{
			Kind:    model.SourceBook,
			Ref:     ref,
			LabelAr: row.BookTitleAr,
			LabelEn: row.BookTitleEn,
			Text:    truncateRunes(row.ContentPlain, 300),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("relational: iterate book rows: %w", err)
	}
	return out, nil
}

// splitBookRef parses "book:<book_id>:<page>" into its three fields.
func splitBookRef(ref string) (prefix, bookID string, page int, ok bool) {
	parts := strings.SplitN(ref, ":", 3)
	if len(parts) != 3 || parts[0] != "book" {
		return "", "", 0, false
	}
	var p int
	if _, err := fmt.Sscanf(parts[2], "%d", &p); err != nil {
		return "", "", 0, false
	}
	return parts[0], parts[1], p, true
}

// truncateRunes truncates s to at most n runes on a character boundary,
// never mid-codepoint, appending an ellipsis only when text was actually
// shortened.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

var arabicIndicDigits = [10]rune{'٠', '١', '٢', '٣', '٤', '٥', '٦', '٧', '٨', '٩'}

// toArabicIndicDigits renders a Western-digit numeral string in
// Arabic-Indic digits, for the Arabic-language half of a source label.
func toArabicIndicDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(arabicIndicDigits[r-'0'])
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
