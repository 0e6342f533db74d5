package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_StripsDiacritics(t *testing.T) {
	in := "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ"
	out := Text(in)
	assert.NotContains(t, out, "ً")
	assert.NotContains(t, out, "ِ")
	assert.NotContains(t, out, "ْ")
}

func TestText_FoldsAlefVariants(t *testing.T) {
	for _, in := range []string{"آمن", "أمن", "إمن", "ٱمن"} {
		out := Text(in)
		require.Truef(t, []rune(out)[0] == 'ا', "expected folded alef for %q, got %q", in, out)
	}
}

func TestText_FoldsTehMarbuta(t *testing.T) {
	out := Text("رحمة")
	assert.Equal(t, "رحمه", out)
}

func TestText_FoldsArabicIndicDigits(t *testing.T) {
	out := Text("سورة ٢٥٥")
	assert.Equal(t, "سوره 255", out)
}

func TestText_CollapsesWhitespace(t *testing.T) {
	out := Text("الله    اكبر\n\n  جدا")
	assert.Equal(t, "الله اكبر جدا", out)
}

func TestText_Idempotent(t *testing.T) {
	samples := []string{
		"بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ",
		"patience in hardship",
		"  والعصر ٢٥٥  ",
		"",
	}
	for _, s := range samples {
		once := Text(s)
		twice := Text(once)
		assert.Equal(t, once, twice, "Text must be idempotent for %q", s)
	}
}

func TestQuotedPhrases(t *testing.T) {
	phrases := QuotedPhrases(`search "والعصر إن الإنسان" please`)
	require.Len(t, phrases, 1)
	assert.Equal(t, "والعصر إن الإنسان", phrases[0])
}

func TestHasQuoteMark(t *testing.T) {
	assert.True(t, HasQuoteMark(`«عصر»`))
	assert.False(t, HasQuoteMark("بدون علامات"))
}

func TestBuildQuery(t *testing.T) {
	q := BuildQuery(`"بسم الله"`)
	assert.True(t, q.HasQuote())
	assert.Equal(t, 1, len(q.QuotedPhrases))
	assert.Greater(t, q.WordCount, 0)
}
