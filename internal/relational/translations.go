package relational

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/sola-scriptura-search-api/internal/model"
)

type quranTranslationRow struct {
	SurahNumber int    `db:"surah_number"`
	AyahNumber  int    `db:"ayah_number"`
	Text        string `db:"text"`
	Translator  string `db:"translator"`
	EditionCode string `db:"edition_code"`
}

// QuranTranslations fetches the editionCode rendering of each "surah:ayah"
// canonical ID in one batched query. IDs with no stored translation are
// simply absent from the returned map; translations are presented as-stored
// and never generated on the request path.
func (s *Store) QuranTranslations(ctx context.Context, editionCode string, canonicalIDs []string) (map[string]model.Translation, error) {
	clauses := make([]string, 0, len(canonicalIDs))
	args := []interface{}{editionCode}
	for _, id := range canonicalIDs {
		surah, ayah, ok := splitQuranID(id)
		if !ok {
			continue
		}
		i := len(clauses)
		clauses = append(clauses, fmt.Sprintf("(surah_number = $%d AND ayah_number = $%d)", i*2+2, i*2+3))
		args = append(args, surah, ayah)
	}
	if len(clauses) == 0 {
		return map[string]model.Translation{}, nil
	}

	query := "SELECT surah_number, ayah_number, text, translator, edition_code FROM quran_translations WHERE edition_code = $1 AND (" +
		strings.Join(clauses, " OR ") + ")"

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("relational: quran translations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Translation, len(canonicalIDs))
	for rows.Next() {
		var row quranTranslationRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("relational: scan quran translation row: %w", err)
		}
		id := fmt.Sprintf("%d:%d", row.SurahNumber, row.AyahNumber)
		out[id] = model.Translation{
			CanonicalID:    id,
			TargetLanguage: languageOf(row.EditionCode),
			Text:           row.Text,
			Translator:     row.Translator,
			EditionCode:    row.EditionCode,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("relational: iterate quran translation rows: %w", err)
	}
	return out, nil
}

type hadithTranslationRow struct {
	CollectionSlug string `db:"collection_slug"`
	HadithNumber   string `db:"hadith_number"`
	Text           string `db:"text"`
	Translator     string `db:"translator"`
	EditionCode    string `db:"edition_code"`
}

// HadithTranslations fetches the editionCode rendering of each
// "collection:number" canonical ID, grouped by collection slug like
// resolveHadith.
func (s *Store) HadithTranslations(ctx context.Context, editionCode string, canonicalIDs []string) (map[string]model.Translation, error) {
	byCollection := make(map[string][]string)
	for _, id := range canonicalIDs {
		collection, number, ok := strings.Cut(id, ":")
		if !ok {
			continue
		}
		byCollection[collection] = append(byCollection[collection], number)
	}

	out := make(map[string]model.Translation, len(canonicalIDs))
	for collection, numbers := range byCollection {
		query, args, err := sqlx.In(
			"SELECT collection_slug, hadith_number, text, translator, edition_code FROM hadith_translations WHERE edition_code = ? AND collection_slug = ? AND hadith_number IN (?)",
			editionCode, collection, numbers,
		)
		if err != nil {
			return nil, fmt.Errorf("relational: build hadith translation query for %s: %w", collection, err)
		}
		query = s.db.Rebind(query)

		rows, err := s.db.QueryxContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("relational: hadith translations %s: %w", collection, err)
		}
		for rows.Next() {
			var row hadithTranslationRow
			if err := rows.StructScan(&row); err != nil {
				rows.Close()
				return nil, fmt.Errorf("relational: scan hadith translation row: %w", err)
			}
			id := row.CollectionSlug + ":" + row.HadithNumber
			out[id] = model.Translation{
				CanonicalID:    id,
				TargetLanguage: languageOf(row.EditionCode),
				Text:           row.Text,
				Translator:     row.Translator,
				EditionCode:    row.EditionCode,
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("relational: iterate hadith translation rows: %w", err)
		}
		rows.Close()
	}
	return out, nil
}

func splitQuranID(id string) (surah, ayah int, ok bool) {
	s, a, found := strings.Cut(id, ":")
	if !found {
		return 0, 0, false
	}
	surah, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, false
	}
	ayah, err = strconv.Atoi(a)
	if err != nil {
		return 0, 0, false
	}
	return surah, ayah, true
}

// languageOf extracts the language half of an edition code, e.g.
// "eng-hilali" -> "eng".
func languageOf(editionCode string) string {
	lang, _, found := strings.Cut(editionCode, "-")
	if !found {
		return editionCode
	}
	return lang
}
