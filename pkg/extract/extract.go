// Package extract finds quiz candidate words in HTML pages.
package extract

import (
	"io"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-shiori/dom"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/text/language"
)

// ProcessedAttr marks elements whose text has already been extracted.
const ProcessedAttr = "data-vocabloom-processed"

// ProgressAttr holds how many words of an element were consumed when the
// candidate cap cut extraction short.
const ProgressAttr = "data-vocabloom-progress"

// Candidate is one word found on a page with the sentence it came from.
// Node points into the Document tree and is not owned by the Candidate.
type Candidate struct {
	Node        *html.Node `json:"-"`
	Word        string     `json:"word"`
	Sentence    string     `json:"sentence"`
	Translation string     `json:"translation,omitempty"`
}

// Config tunes extraction. Zero values produce defaults.
type Config struct {
	MinTextLength         int      // zero → 20 runes of direct element text
	MinSentenceLength     int      // zero → 10 runes
	MinWordLength         int      // zero → 4 runes
	MinJapaneseWordLength int      // zero → 2 runes
	MaxCandidates         int      // zero → 50
	Language              string   // forces the tokenizer language; empty → <html lang>, then "en"
	DenyPatterns          []string // hostname regexps added to the built-in denylist
}

func (c Config) withDefaults() Config {
	if c.MinTextLength <= 0 {
		c.MinTextLength = 20
	}
	if c.MinSentenceLength <= 0 {
		c.MinSentenceLength = 10
	}
	if c.MinWordLength <= 0 {
		c.MinWordLength = 4
	}
	if c.MinJapaneseWordLength <= 0 {
		c.MinJapaneseWordLength = 2
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 50
	}
	c.Language = normalizeLang(c.Language)
	return c
}

var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "textarea": true,
	"input": true, "select": true, "option": true, "button": true, "code": true, "pre": true,
	"svg": true, "math": true, "iframe": true, "head": true, "rt": true, "rp": true,
}

// Extractor is safe for concurrent use on different documents.
type Extractor struct {
	cfg  Config
	deny denylist
	log  logrus.FieldLogger

	jaOnce sync.Once
	ja     *Analyzer
	jaErr  error
}

// New builds an Extractor; invalid deny patterns are an error.
func New(cfg Config, log logrus.FieldLogger) (*Extractor, error) {
	deny, err := compileDenylist(cfg.DenyPatterns)
	if err != nil {
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Extractor{cfg: cfg.withDefaults(), deny: deny, log: log}, nil
}

// Denied reports whether extraction is refused for host.
func (e *Extractor) Denied(host string) bool {
	_, ok := e.deny.match(strings.ToLower(host))
	return ok
}

// Extract returns up to MaxCandidates distinct words from doc, marking the
// elements it reads so a second call on the same tree finds nothing new.
// Pages on denylisted hosts yield nil.
func (e *Extractor) Extract(doc *Document) []Candidate {
	if doc == nil || doc.Root == nil {
		return nil
	}
	if pattern, denied := e.deny.match(doc.Host()); denied {
		e.log.WithFields(logrus.Fields{"host": doc.Host(), "pattern": pattern}).Info("extraction refused for sensitive site")
		return nil
	}

	lang := e.Language(doc)
	tok := e.tokenizer(lang)
	seen := make(map[string]bool)
	var out []Candidate

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(out) >= e.cfg.MaxCandidates {
			return
		}
		if n.Type == html.ElementNode {
			if skipTags[dom.TagName(n)] || hidden(n) {
				return
			}
			if !dom.HasAttribute(n, ProcessedAttr) {
				text := strings.TrimSpace(ownText(n))
				if utf8.RuneCountInString(text) >= e.cfg.MinTextLength {
					out = e.collect(n, text, tok, seen, out)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc.Root)

	e.log.WithFields(logrus.Fields{"url": doc.URL, "language": lang, "candidates": len(out)}).Debug("extracted candidates")
	return out
}

// Language picks the tokenizer language for doc.
func (e *Extractor) Language(doc *Document) string {
	switch {
	case e.cfg.Language != "":
		return e.cfg.Language
	case doc != nil && doc.Lang != "":
		return doc.Lang
	default:
		return "en"
	}
}

// collect appends the words of n after those consumed by earlier calls.
// n is marked processed once every word is consumed; otherwise its
// progress is recorded for the next call.
func (e *Extractor) collect(n *html.Node, text string, tok Tokenizer, seen map[string]bool, out []Candidate) []Candidate {
	skip, _ := strconv.Atoi(dom.GetAttribute(n, ProgressAttr))
	pos := 0
	for _, sentence := range splitSentences(text) {
		if utf8.RuneCountInString(sentence) < e.cfg.MinSentenceLength {
			continue
		}
		for _, w := range tok.Words(sentence) {
			if len(out) >= e.cfg.MaxCandidates {
				dom.SetAttribute(n, ProgressAttr, strconv.Itoa(pos))
				return out
			}
			pos++
			if pos <= skip || seen[w] {
				continue
			}
			seen[w] = true
			out = append(out, Candidate{Node: n, Word: w, Sentence: sentence})
		}
	}
	dom.RemoveAttribute(n, ProgressAttr)
	dom.SetAttribute(n, ProcessedAttr, "true")
	return out
}

func (e *Extractor) tokenizer(lang string) Tokenizer {
	if lang == "ja" {
		e.jaOnce.Do(func() {
			e.ja, e.jaErr = NewAnalyzer(e.cfg.MinJapaneseWordLength)
		})
		if e.jaErr == nil {
			return e.ja
		}
		e.log.WithError(e.jaErr).Warn("japanese analyzer unavailable, falling back to plain tokenizer")
	}
	return newLatinTokenizer(lang, e.cfg.MinWordLength)
}

// ownText joins the element's direct text-node children.
func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// hidden reports whether n is not rendered: hidden attributes or inline
// display:none, visibility:hidden or zero opacity.
func hidden(n *html.Node) bool {
	if dom.HasAttribute(n, "hidden") {
		return true
	}
	if strings.EqualFold(dom.GetAttribute(n, "aria-hidden"), "true") {
		return true
	}
	if strings.EqualFold(dom.GetAttribute(n, "type"), "hidden") {
		return true
	}
	style := dom.GetAttribute(n, "style")
	if style == "" {
		return false
	}
	for _, decl := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.ToLower(strings.TrimSpace(value))
		value = strings.TrimSpace(strings.TrimSuffix(value, "!important"))
		switch prop {
		case "display":
			if value == "none" {
				return true
			}
		case "visibility":
			if value == "hidden" || value == "collapse" {
				return true
			}
		case "opacity":
			if f, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64); err == nil && f == 0 {
				return true
			}
		}
	}
	return false
}

func normalizeLang(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	base, _ := tag.Base()
	return base.String()
}
