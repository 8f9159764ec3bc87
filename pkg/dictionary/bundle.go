package dictionary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Bundle is one read-only per-language dictionary file. Its entries map
// words of the Source language to translations in Language.
type Bundle struct {
	Language string
	Source   string

	index        map[string]Entry
	translations []string
}

// Lookup finds the entry for word. Katakana and hiragana spellings match.
func (b *Bundle) Lookup(word string) (Entry, bool) {
	e, ok := b.index[indexKey(word)]
	return e, ok
}

// Len is the number of distinct indexed words.
func (b *Bundle) Len() int { return len(b.index) }

// Translations returns every distinct translation in the bundle, sorted.
func (b *Bundle) Translations() []string {
	return append([]string(nil), b.translations...)
}

func newBundle(language, source string, entries []Entry) *Bundle {
	b := &Bundle{Language: language, Source: source, index: make(map[string]Entry, len(entries))}
	seen := make(map[string]bool)
	for _, e := range entries {
		key := indexKey(e.Word)
		if key == "" || len(e.Translations) == 0 {
			continue
		}
		// First entry for a word wins.
		if _, dup := b.index[key]; !dup {
			e.Source = SourceBundled
			b.index[key] = e
		}
		for _, t := range e.Translations {
			t = strings.TrimSpace(t)
			if t == "" || seen[strings.ToLower(t)] {
				continue
			}
			seen[strings.ToLower(t)] = true
			b.translations = append(b.translations, t)
		}
	}
	sort.Strings(b.translations)
	return b
}

// bundleFile is the wrapped on-disk form. Bare JSON arrays of entries and
// jmdict-simplified files ({"words": [...]}) are accepted too.
type bundleFile struct {
	Language string        `json:"language"`
	Source   string        `json:"source"`
	Entries  []Entry       `json:"entries"`
	Words    []JMdictEntry `json:"words"`
}

// ParseBundle decodes a bundle for language from r.
func ParseBundle(r io.Reader, language string) (*Bundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var f bundleFile
	// Try parsing as full object wrapper first.
	if err := json.Unmarshal(data, &f); err == nil {
		switch {
		case len(f.Entries) > 0:
			return newBundle(language, f.Source, f.Entries), nil
		case len(f.Words) > 0:
			source := f.Source
			if source == "" {
				source = "ja"
			}
			return newBundle(language, source, FromJMdict(f.Words)), nil
		}
	}

	var entries []Entry
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary as object or array: %w", err)
	}
	return newBundle(language, "", entries), nil
}

// Bundles lazily loads <language>.json files from a directory and keeps
// them in memory. Concurrent first lookups of a language share one load.
type Bundles struct {
	fsys fs.FS
	log  logrus.FieldLogger

	group  singleflight.Group
	mu     sync.RWMutex
	loaded map[string]*Bundle
}

// NewBundles reads bundles from fsys. A nil fsys yields only empty bundles.
func NewBundles(fsys fs.FS, log logrus.FieldLogger) *Bundles {
	return &Bundles{fsys: fsys, log: orDiscard(log), loaded: make(map[string]*Bundle)}
}

// NewBundlesDir reads bundles from dir on disk.
func NewBundlesDir(dir string, log logrus.FieldLogger) *Bundles {
	if dir == "" {
		return NewBundles(nil, log)
	}
	return NewBundles(os.DirFS(dir), log)
}

// Get returns the bundle for language, loading it on first use. A missing
// file yields an empty bundle; a corrupt one an error, and the next call
// tries again.
func (b *Bundles) Get(ctx context.Context, language string) (*Bundle, error) {
	b.mu.RLock()
	bun, ok := b.loaded[language]
	b.mu.RUnlock()
	if ok {
		return bun, nil
	}

	ch := b.group.DoChan(language, func() (any, error) {
		b.mu.RLock()
		bun, ok := b.loaded[language]
		b.mu.RUnlock()
		if ok {
			return bun, nil
		}
		bun, err := b.load(language)
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		b.loaded[language] = bun
		b.mu.Unlock()
		return bun, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Bundle), nil
	}
}

func (b *Bundles) load(language string) (*Bundle, error) {
	if b.fsys == nil || language == "" {
		return newBundle(language, "", nil), nil
	}
	name := language + ".json"
	f, err := b.fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		b.log.WithField("language", language).Debug("no bundled dictionary")
		return newBundle(language, "", nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	bun, err := ParseBundle(f, language)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	b.log.WithFields(logrus.Fields{"language": language, "entries": bun.Len()}).Info("bundled dictionary loaded")
	return bun, nil
}

// indexKey folds case, surrounding space and katakana so spellings match.
func indexKey(word string) string {
	return ToHiragana(normalize(word))
}

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}
