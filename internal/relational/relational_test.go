package relational

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-scriptura-search-api/internal/model"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return New(sqlx.NewDb(mockDB, "postgres")), mock
}

func TestResolveQuran_ReassemblesRanges(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"surah_number", "ayah_number", "text_uthmani", "surah_name_ar", "surah_name_en"}).
		AddRow(103, 2, "إن الإنسان لفي خسر", "العصر", "Al-Asr").
		AddRow(103, 1, "والعصر", "العصر", "Al-Asr").
		AddRow(2, 255, "الله لا إله إلا هو", "البقرة", "Al-Baqarah")
	mock.ExpectQuery("SELECT surah_number, ayah_number, text_uthmani").
		WithArgs(2, 255, 255, 103, 1, 2).
		WillReturnRows(rows)

	refs := []model.SourceRef{
		{Kind: model.SourceQuran, Ref: "2:255"},
		{Kind: model.SourceQuran, Ref: "103:1-2"},
	}
	out, err := s.resolveQuran(context.Background(), refs)
	require.NoError(t, err)
	require.Len(t, out, 2)

	single := out["quran:2:255"]
	assert.Equal(t, "الله لا إله إلا هو", single.Text)
	assert.Equal(t, "Al-Baqarah 255", single.LabelEn)
	assert.Equal(t, "البقرة ٢٥٥", single.LabelAr)

	// The range is reassembled in ayah order even though the rows arrived
	// out of order, joined with a single space.
	ranged := out["quran:103:1-2"]
	assert.Equal(t, "والعصر إن الإنسان لفي خسر", ranged.Text)
	assert.Equal(t, "Al-Asr 1-2", ranged.LabelEn)
	assert.Equal(t, "العصر ١-٢", ranged.LabelAr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveQuran_MissingReferentIsOmitted(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT surah_number, ayah_number, text_uthmani").
		WillReturnRows(sqlmock.NewRows([]string{"surah_number", "ayah_number", "text_uthmani", "surah_name_ar", "surah_name_en"}))

	out, err := s.resolveQuran(context.Background(), []model.SourceRef{
		{Kind: model.SourceQuran, Ref: "114:99"},
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestResolveHadith_GroupsByCollection(t *testing.T) {
	s, mock := newMockStore(t)
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery("SELECT hadith_number, text_ar, chapter_ar, chapter_en FROM hadiths").
		WithArgs("bukhari", "1", "52").
		WillReturnRows(sqlmock.NewRows([]string{"hadith_number", "text_ar", "chapter_ar", "chapter_en"}).
			AddRow("1", "إنما الأعمال بالنيات", "بدء الوحي", "Revelation").
			AddRow("52", "الحلال بين والحرام بين", "الإيمان", "Faith"))
	mock.ExpectQuery("SELECT hadith_number, text_ar, chapter_ar, chapter_en FROM hadiths").
		WithArgs("muslim", "8").
		WillReturnRows(sqlmock.NewRows([]string{"hadith_number", "text_ar", "chapter_ar", "chapter_en"}).
			AddRow("8", "أن تؤمن بالله وملائكته", "الإيمان", "Faith"))

	refs := []model.SourceRef{
		{Kind: model.SourceHadith, Ref: "bukhari:1"},
		{Kind: model.SourceHadith, Ref: "muslim:8"},
		{Kind: model.SourceHadith, Ref: "bukhari:52"},
	}
	out, err := s.resolveHadith(context.Background(), refs)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "إنما الأعمال بالنيات", out["hadith:bukhari:1"].Text)
	assert.Equal(t, "Faith", out["hadith:muslim:8"].LabelEn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveBook_SkipsMalformedRefWithoutBreakingPlaceholders(t *testing.T) {
	s, mock := newMockStore(t)

	// Only the well-formed ref reaches SQL; its placeholders start at $1
	// even though it was not first in the input.
	mock.ExpectQuery("SELECT book_id, page_number, content_plain").
		WithArgs("ihya", 12).
		WillReturnRows(sqlmock.NewRows([]string{"book_id", "page_number", "content_plain", "book_title_ar", "book_title_en"}).
			AddRow("ihya", 12, "اعلم أن", "إحياء علوم الدين", "Ihya Ulum al-Din"))

	refs := []model.SourceRef{
		{Kind: model.SourceBook, Ref: "book:ihya:notanumber"},
		{Kind: model.SourceBook, Ref: "book:ihya:12"},
	}
	out, err := s.resolveBook(context.Background(), refs)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Ihya Ulum al-Din", out["book:book:ihya:12"].LabelEn)
}

func TestQuranTranslations_KeyedByCanonicalID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT surah_number, ayah_number, text, translator, edition_code FROM quran_translations").
		WithArgs("eng-hilali", 2, 255).
		WillReturnRows(sqlmock.NewRows([]string{"surah_number", "ayah_number", "text", "translator", "edition_code"}).
			AddRow(2, 255, "Allah - there is no deity except Him", "Hilali-Khan", "eng-hilali"))

	out, err := s.QuranTranslations(context.Background(), "eng-hilali", []string{"2:255", "bogus"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	tr := out["2:255"]
	assert.Equal(t, "Hilali-Khan", tr.Translator)
	assert.Equal(t, "eng", tr.TargetLanguage)
}

func TestTruncateRunes_CharacterBoundarySafe(t *testing.T) {
	// Arabic text is multi-byte; truncation must count runes, never bytes,
	// and append an ellipsis only when something was actually cut.
	long := "بسم الله الرحمن الرحيم"

	cut := truncateRunes(long, 7)
	assert.Equal(t, "بسم الل…", cut)
	assert.Equal(t, 8, len([]rune(cut))) // 7 kept runes + ellipsis

	assert.Equal(t, long, truncateRunes(long, len([]rune(long))))
	assert.Equal(t, "", truncateRunes("", 10))
}

func TestToArabicIndicDigits(t *testing.T) {
	assert.Equal(t, "٢٥٥", toArabicIndicDigits("255"))
	assert.Equal(t, "١-٣", toArabicIndicDigits("1-3"))
	assert.Equal(t, "سوره ١٢", toArabicIndicDigits("سوره 12"))
}

func TestSplitBookRef(t *testing.T) {
	prefix, bookID, page, ok := splitBookRef("book:ihya:12")
	require.True(t, ok)
	assert.Equal(t, "book", prefix)
	assert.Equal(t, "ihya", bookID)
	assert.Equal(t, 12, page)

	_, _, _, ok = splitBookRef("ihya:12")
	assert.False(t, ok)
	_, _, _, ok = splitBookRef("book:ihya:xii")
	assert.False(t, ok)
}
