package messages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/text/language"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newLocalizer(t *testing.T) *Localizer {
	t.Helper()
	l, err := Default()
	require.NoError(t, err)
	return l
}

func TestNoticeKnownCode(t *testing.T) {
	l := newLocalizer(t)
	assert.Equal(t, "Changes were saved.", l.Notice(language.English, CodeSaveSucceeded, ""))
	assert.Equal(t, "Zmeny boli uložené.", l.Notice(language.Slovak, CodeSaveSucceeded, ""))
	assert.Equal(t, "The row is being edited by another user.", l.Notice(language.English, " row_locked ", ""))
}

func TestNoticeUnknownCode(t *testing.T) {
	l := newLocalizer(t)
	assert.Equal(t, "backend says no", l.Notice(language.English, "NOPE", "backend says no"))
	assert.Equal(t, "An unexpected error occurred.", l.Notice(language.English, "NOPE", ""))
	assert.False(t, l.Known("NOPE"))
	assert.True(t, l.Known(CodeRollbackFailed))
}

func TestRollbackNoticeDiffersFromFailure(t *testing.T) {
	l := newLocalizer(t)
	for _, tag := range []language.Tag{language.Slovak, language.English, language.Czech} {
		assert.NotEqual(t, l.Notice(tag, CodeSaveFailed, ""), l.Notice(tag, CodeRollbackFailed, ""), tag.String())
	}
}

func TestMatch(t *testing.T) {
	l := newLocalizer(t)
	cases := map[string]language.Tag{
		"en-US,en;q=0.9": language.English,
		"cs":             language.Czech,
		"de-DE":          language.Slovak,
		"":               language.Slovak,
		"!!!":            language.Slovak,
	}
	for header, want := range cases {
		assert.Equal(t, want, l.Match(header), header)
	}
}

func TestParseRejectsCatalogWithoutGenericText(t *testing.T) {
	_, err := Parse([]byte("languages: [en]\nmessages:\n  SAVE_FAILED:\n    en: failed\n"))
	require.Error(t, err)

	_, err = Parse([]byte("messages: {}\n"))
	require.Error(t, err)
}

func TestPercentSignIsLiteral(t *testing.T) {
	l, err := Parse([]byte("languages: [en]\nmessages:\n  GENERIC_ERROR:\n    en: \"100% broken\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "100% broken", l.Notice(language.English, CodeGeneric, ""))
}

func TestLanguageContext(t *testing.T) {
	_, ok := LanguageFrom(context.Background())
	assert.False(t, ok)

	ctx := WithLanguage(context.Background(), language.Czech)
	tag, ok := LanguageFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, language.Czech, tag)
}
