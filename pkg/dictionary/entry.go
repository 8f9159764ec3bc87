// Package dictionary resolves words to translations through a fallback chain
// of user-defined entries, bundled per-language dictionaries and an external
// translation provider.
package dictionary

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by lookups that have no entry for a word.
var ErrNotFound = errors.New("dictionary: entry not found")

// Source names where an Entry came from.
type Source string

const (
	SourceCustom   Source = "custom"
	SourceBundled  Source = "bundled"
	SourceExternal Source = "external"
	SourceFallback Source = "fallback"
)

// Entry is one dictionary word with its translations. Bundled entries are
// shared and must be treated as read-only.
type Entry struct {
	Word         string   `json:"word"`
	Translations []string `json:"translations"`
	PartOfSpeech string   `json:"partOfSpeech,omitempty"`
	Difficulty   int      `json:"difficulty,omitempty"`
	Examples     []string `json:"examples,omitempty"`
	Source       Source   `json:"-"`
}

// Primary returns the first translation, or the word itself when there is none.
func (e Entry) Primary() string {
	for _, t := range e.Translations {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return e.Word
}

// Clone returns a deep copy so callers may modify the result freely.
func (e Entry) Clone() Entry {
	out := e
	out.Translations = append([]string(nil), e.Translations...)
	out.Examples = append([]string(nil), e.Examples...)
	return out
}

// fallbackEntry is what every failed lookup degrades to.
func fallbackEntry(word string) Entry {
	return Entry{Word: word, Translations: []string{word}, Source: SourceFallback}
}

// CustomStore holds user-owned entries keyed by (language, word).
type CustomStore interface {
	// Lookup returns ErrNotFound when the user has no entry for word.
	Lookup(ctx context.Context, language, word string) (Entry, error)
	List(ctx context.Context, language string) ([]Entry, error)
	Put(ctx context.Context, language string, e Entry) error
	// Delete returns ErrNotFound when the user has no entry for word.
	Delete(ctx context.Context, language, word string) error
}

func normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
