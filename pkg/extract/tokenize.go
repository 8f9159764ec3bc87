package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tokenizer turns one sentence into candidate words.
type Tokenizer interface {
	Words(sentence string) []string
}

// latinTokenizer splits on anything that is not a letter and lower-cases
// with the language's casing rules.
type latinTokenizer struct {
	tag       language.Tag
	stopwords map[string]bool
	minLen    int
}

func newLatinTokenizer(lang string, minLen int) *latinTokenizer {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Und
	}
	return &latinTokenizer{
		tag:       tag,
		stopwords: stopwordsFor(lang),
		minLen:    minLen,
	}
}

func (t *latinTokenizer) Words(sentence string) []string {
	fields := strings.FieldsFunc(sentence, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.Is(unicode.Mn, r) })
	// Casers are stateful, so each call gets its own.
	caser := cases.Lower(t.tag)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		w := caser.String(f)
		if utf8.RuneCountInString(w) < t.minLen || t.stopwords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// splitSentences splits on sentence punctuation and newlines. Latin
// terminators only end a sentence when followed by space or the end of text,
// so "3.5" and "e.g" stay intact.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		switch r {
		// 。(3002), ！(FF01), ？(FF1F)
		case '。', '！', '？', '\n':
			flush()
		case '.', '!', '?':
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()
	return sentences
}
