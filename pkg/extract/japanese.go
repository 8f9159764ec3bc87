package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Token represents a single analyzed unit of text.
type Token struct {
	Surface       string   // The text as it appears (e.g. "行っ")
	BaseForm      string   // The dictionary form (e.g. "行く")
	Reading       string   // The pronunciation (katakana, e.g. "イッ")
	PartsOfSpeech []string // e.g. ["動詞", "自立", "*", "*"] (Kagome POS labels)
	PrimaryPOS    string
}

// Analyzer segments Japanese text with the IPA dictionary.
type Analyzer struct {
	t      *tokenizer.Tokenizer
	minLen int
}

// NewAnalyzer creates a new tokenizer instance.
func NewAnalyzer(minWordLength int) (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	if minWordLength <= 0 {
		minWordLength = 2
	}
	return &Analyzer{t: t, minLen: minWordLength}, nil
}

// Analyze breaks text into tokens with readings and base forms.
func (a *Analyzer) Analyze(text string) []Token {
	var result []Token
	for _, token := range a.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// IPA features: 0-3 POS and sub-POS, 4-5 conjugation,
		// 6 base form, 7 reading, 8 pronunciation.
		features := token.Features()
		base := token.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}
		primaryPOS := ""
		if len(features) > 0 {
			primaryPOS = features[0]
		}

		result = append(result, Token{
			Surface:       token.Surface,
			BaseForm:      base,
			Reading:       reading,
			PartsOfSpeech: features,
			PrimaryPOS:    primaryPOS,
		})
	}
	return result
}

var contentPOS = map[string]bool{"名詞": true, "動詞": true, "形容詞": true}

// Sub-categories that carry no vocabulary value: numbers, pronouns,
// dependent nouns/verbs and suffixes.
var functionalSubPOS = map[string]bool{"数": true, "代名詞": true, "非自立": true, "接尾": true}

// Words returns the base forms of the content words in sentence.
func (a *Analyzer) Words(sentence string) []string {
	var out []string
	for _, tok := range a.Analyze(sentence) {
		if !contentPOS[tok.PrimaryPOS] {
			continue
		}
		if len(tok.PartsOfSpeech) > 1 && functionalSubPOS[tok.PartsOfSpeech[1]] {
			continue
		}
		if utf8.RuneCountInString(tok.BaseForm) < a.minLen || japaneseStopwords[tok.BaseForm] {
			continue
		}
		out = append(out, tok.BaseForm)
	}
	return out
}
