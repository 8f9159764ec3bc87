package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-shiori/dom"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// MaxDocumentSize bounds how much HTML Parse and Fetch will read.
const MaxDocumentSize = 10 * 1024 * 1024

// ErrTooLarge is returned for documents over MaxDocumentSize.
var ErrTooLarge = errors.New("extract: document exceeds size limit")

// Document is a parsed page. Root is mutated by Extract, which marks the
// elements it has processed.
type Document struct {
	URL      string
	Root     *html.Node
	Title    string
	SiteName string
	Lang     string // from <html lang>, base code only
	Text     string // readable article text, when readability found one
}

// Host returns the lower-cased hostname of the document URL.
func (d *Document) Host() string {
	u, err := url.Parse(d.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Parse reads an HTML page. pageURL is used for the denylist and to
// resolve metadata; it may be empty for local files.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(raw) > MaxDocumentSize {
		return nil, ErrTooLarge
	}
	// Furigana would otherwise be read as part of the text.
	raw = SanitizeRuby(raw)

	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc := &Document{URL: pageURL, Root: root}
	if el := dom.QuerySelector(root, "html"); el != nil {
		doc.Lang = normalizeLang(dom.GetAttribute(el, "lang"))
	}

	base, err := url.Parse(pageURL)
	if err != nil || pageURL == "" {
		base = &url.URL{Scheme: "http", Host: "localhost", Path: "/"}
	}
	if article, err := readability.FromReader(bytes.NewReader(raw), base); err == nil {
		doc.Title = strings.TrimSpace(article.Title)
		doc.SiteName = strings.TrimSpace(article.SiteName)
		doc.Text = article.TextContent
	}
	if doc.Title == "" {
		if t := dom.QuerySelector(root, "title"); t != nil {
			doc.Title = strings.TrimSpace(dom.TextContent(t))
		}
	}
	return doc, nil
}

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses (<rp>...</rp>)
// from HTML content, so "漢字" does not become "漢字かんじ".
// It operates on bytes and is safe for Shift_JIS as well, because <, >, r, t, p
// are ASCII and < is not a trailing byte in Shift_JIS.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}
