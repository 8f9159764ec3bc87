package dictionary

import (
	"context"
	"io/fs"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const esBundle = `{
  "language": "es",
  "source": "en",
  "entries": [
    {"word": "window", "translations": ["ventana"], "partOfSpeech": "noun", "difficulty": 1},
    {"word": "House", "translations": ["casa", "hogar"], "partOfSpeech": "noun"},
    {"word": "dog", "translations": ["perro"]},
    {"word": "cat", "translations": ["gato"]},
    {"word": "empty", "translations": []}
  ]
}`

const jmdictBundle = `{
  "words": [
    {
      "id": "1",
      "kanji": [{"text": "犬", "common": true}],
      "kana": [{"text": "いぬ", "common": true}],
      "sense": [{"gloss": [{"text": "dog"}], "partOfSpeech": ["n"]}]
    },
    {
      "id": "2",
      "kanji": [],
      "kana": [{"text": "テスト", "common": false}],
      "sense": [{"gloss": [{"text": "test"}, {"text": "Test", "lang": "ger"}], "partOfSpeech": ["n", "vs"]}]
    }
  ]
}`

func TestParseBundleWrapped(t *testing.T) {
	b, err := ParseBundle(strings.NewReader(esBundle), "es")
	require.NoError(t, err)
	assert.Equal(t, "en", b.Source)
	assert.Equal(t, 4, b.Len(), "entries without translations are skipped")

	e, ok := b.Lookup(" house ")
	require.True(t, ok)
	assert.Equal(t, []string{"casa", "hogar"}, e.Translations)
	assert.Equal(t, SourceBundled, e.Source)
	assert.Equal(t, []string{"casa", "gato", "hogar", "perro", "ventana"}, b.Translations())
}

func TestParseBundleArray(t *testing.T) {
	b, err := ParseBundle(strings.NewReader(`[{"word":"maison","translations":["house"]}]`), "en")
	require.NoError(t, err)
	e, ok := b.Lookup("maison")
	require.True(t, ok)
	assert.Equal(t, "house", e.Primary())
	assert.Empty(t, b.Source)
}

func TestParseBundleJMdict(t *testing.T) {
	b, err := ParseBundle(strings.NewReader(jmdictBundle), "en")
	require.NoError(t, err)
	assert.Equal(t, "ja", b.Source)

	for _, w := range []string{"犬", "いぬ", "イヌ"} {
		e, ok := b.Lookup(w)
		require.True(t, ok, w)
		assert.Equal(t, []string{"dog"}, e.Translations)
		assert.Equal(t, "n", e.PartOfSpeech)
		assert.Equal(t, 1, e.Difficulty)
	}
	e, ok := b.Lookup("てすと")
	require.True(t, ok, "katakana entries match hiragana lookups")
	assert.Equal(t, []string{"test"}, e.Translations, "non-English glosses are dropped")
	assert.Equal(t, 2, e.Difficulty)
}

func TestParseBundleRejectsGarbage(t *testing.T) {
	_, err := ParseBundle(strings.NewReader(`{not json`), "es")
	assert.Error(t, err)
}

func TestToHiragana(t *testing.T) {
	assert.Equal(t, "てすと", ToHiragana("テスト"))
	assert.Equal(t, "いぬ", ToHiragana("いぬ"))
	assert.Equal(t, "abc", ToHiragana("abc"))
}

// countingFS counts opens and slows them down so concurrent loads overlap.
type countingFS struct {
	fs.FS
	opens atomic.Int32
	delay time.Duration
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.opens.Add(1)
	time.Sleep(c.delay)
	return c.FS.Open(name)
}

func TestBundlesLoadOncePerLanguage(t *testing.T) {
	fsys := &countingFS{FS: fstest.MapFS{"es.json": {Data: []byte(esBundle)}}, delay: 20 * time.Millisecond}
	bundles := NewBundles(fsys, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := bundles.Get(ctx, "es")
			assert.NoError(t, err)
			assert.Equal(t, 4, b.Len())
		}()
	}
	wg.Wait()
	_, err := bundles.Get(ctx, "es")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fsys.opens.Load())
}

func TestBundlesMissingFileIsEmpty(t *testing.T) {
	bundles := NewBundles(fstest.MapFS{}, nil)
	b, err := bundles.Get(context.Background(), "fr")
	require.NoError(t, err)
	assert.Zero(t, b.Len())

	none := NewBundlesDir("", nil)
	b, err = none.Get(context.Background(), "fr")
	require.NoError(t, err)
	assert.Zero(t, b.Len())
}

func TestBundlesCorruptFileIsRetried(t *testing.T) {
	fsys := &countingFS{FS: fstest.MapFS{"es.json": {Data: []byte("{oops")}}}
	bundles := NewBundles(fsys, nil)
	_, err := bundles.Get(context.Background(), "es")
	require.Error(t, err)
	_, err = bundles.Get(context.Background(), "es")
	require.Error(t, err)
	assert.Equal(t, int32(2), fsys.opens.Load())
}
