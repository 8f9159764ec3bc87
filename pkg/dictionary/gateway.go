package dictionary

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
)

const defaultCacheSize = 1000

// Options configures a Gateway. Every collaborator is optional.
type Options struct {
	Custom          CustomStore
	Bundles         *Bundles
	Provider        Provider
	Limiter         Limiter
	ProviderTimeout time.Duration // zero → 5s
	CacheSize       int           // zero → 1000
	Logger          logrus.FieldLogger
}

type cacheKey struct {
	sourceLang string
	targetLang string
	word       string
}

func (k cacheKey) String() string {
	return k.sourceLang + "\x00" + k.targetLang + "\x00" + k.word
}

type cacheItem struct {
	entry Entry
	seq   uint64
}

// Gateway resolves words through custom, bundled and external translators,
// in that order, and never fails: every miss degrades to a fallback entry
// whose translation is the word itself.
type Gateway struct {
	custom      CustomStore
	bundles     *Bundles
	translators []Translator
	log         logrus.FieldLogger

	flight        singleflight.Group
	lookupTimeout time.Duration
	mu            sync.Mutex
	cache         map[cacheKey]cacheItem
	seq           uint64
	maxCache      int
}

func NewGateway(opts Options) *Gateway {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 5 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	return &Gateway{
		custom:  opts.Custom,
		bundles: opts.Bundles,
		translators: []Translator{
			Custom{Store: opts.Custom},
			Bundled{Bundles: opts.Bundles},
			External{Provider: opts.Provider, Limiter: opts.Limiter, Timeout: opts.ProviderTimeout},
		},
		log:           orDiscard(opts.Logger),
		lookupTimeout: opts.ProviderTimeout,
		cache:         make(map[cacheKey]cacheItem),
		maxCache:      opts.CacheSize,
	}
}

// GetWordData returns the entry for word (written in sourceLanguage)
// translated into language.
func (g *Gateway) GetWordData(ctx context.Context, word, language, sourceLanguage string) Entry {
	key := cacheKey{sourceLang: normalizeLang(sourceLanguage), targetLang: normalizeLang(language), word: normalize(word)}
	if key.word == "" {
		return fallbackEntry(word)
	}
	if e, ok := g.cached(key); ok {
		return e
	}

	// The shared lookup outlives any one caller; each caller stops waiting
	// on its own context.
	ch := g.flight.DoChan(key.String(), func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.lookupTimeout)
		defer cancel()
		return g.resolve(lctx, key), nil
	})
	var e Entry
	select {
	case <-ctx.Done():
		return fallbackEntry(word)
	case res := <-ch:
		e = res.Val.(Entry)
	}
	if e.Source == SourceFallback {
		return fallbackEntry(word)
	}
	return e.Clone()
}

// GetTranslations returns the translations of word from one language to another.
func (g *Gateway) GetTranslations(ctx context.Context, word, from, to string) []string {
	return g.GetWordData(ctx, word, to, from).Translations
}

func (g *Gateway) resolve(ctx context.Context, key cacheKey) Entry {
	for _, t := range g.translators {
		e, err := t.Lookup(ctx, key.word, key.sourceLang, key.targetLang)
		if err == nil {
			e.Source = t.Source()
			g.store(key, e)
			return e.Clone()
		}
		fields := logrus.Fields{"word": key.word, "language": key.targetLang, "source": t.Source()}
		if errors.Is(err, ErrNotFound) {
			g.log.WithFields(fields).Trace("no entry")
			continue
		}
		g.log.WithFields(fields).WithError(err).Warn("lookup failed")
	}
	g.log.WithFields(logrus.Fields{"word": key.word, "language": key.targetLang}).Debug("using fallback translation")
	return fallbackEntry(key.word)
}

func (g *Gateway) cached(key cacheKey) (Entry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	it, ok := g.cache[key]
	if !ok {
		return Entry{}, false
	}
	return it.entry.Clone(), true
}

// store inserts e, first evicting the oldest fifth of the cache when full.
func (g *Gateway) store(key cacheKey, e Entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.cache[key]; !ok && len(g.cache) >= g.maxCache {
		g.evictLocked()
	}
	g.seq++
	g.cache[key] = cacheItem{entry: e.Clone(), seq: g.seq}
}

func (g *Gateway) evictLocked() {
	n := len(g.cache) / 5
	if n < 1 {
		n = 1
	}
	keys := lo.Keys(g.cache)
	sort.Slice(keys, func(i, j int) bool { return g.cache[keys[i]].seq < g.cache[keys[j]].seq })
	for _, k := range keys[:n] {
		delete(g.cache, k)
	}
	g.log.WithField("evicted", n).Debug("translation cache pruned")
}

// CacheLen reports how many entries are cached.
func (g *Gateway) CacheLen() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.cache)
}

// Vocabulary lists the distinct translations known for language, from
// bundled and custom entries. It is the distractor pool for quizzes.
func (g *Gateway) Vocabulary(ctx context.Context, language string) []string {
	language = normalizeLang(language)
	var words []string
	if g.bundles != nil {
		bun, err := g.bundles.Get(ctx, language)
		if err != nil {
			g.log.WithError(err).WithField("language", language).Warn("bundled vocabulary unavailable")
		} else {
			words = append(words, bun.Translations()...)
		}
	}
	if g.custom != nil {
		entries, err := g.custom.List(ctx, language)
		if err != nil {
			g.log.WithError(err).WithField("language", language).Warn("custom vocabulary unavailable")
		}
		for _, e := range entries {
			words = append(words, e.Translations...)
		}
	}
	words = lo.Filter(lo.Map(words, func(w string, _ int) string { return strings.TrimSpace(w) }),
		func(w string, _ int) bool { return w != "" })
	return lo.UniqBy(words, strings.ToLower)
}

// PutCustom stores a user entry for word in language and drops any cached
// lookup it overrides.
func (g *Gateway) PutCustom(ctx context.Context, language string, e Entry) error {
	if g.custom == nil {
		return errors.New("dictionary: no custom store configured")
	}
	e.Word = normalize(e.Word)
	if e.Word == "" {
		return errors.New("dictionary: empty word")
	}
	e.Translations = lo.Filter(lo.Map(e.Translations, func(t string, _ int) string { return strings.TrimSpace(t) }),
		func(t string, _ int) bool { return t != "" })
	if len(e.Translations) == 0 {
		return errors.New("dictionary: entry needs at least one translation")
	}
	language = normalizeLang(language)
	if err := g.custom.Put(ctx, language, e); err != nil {
		return err
	}
	g.invalidate(language, e.Word)
	return nil
}

// DeleteCustom removes a user entry. It returns ErrNotFound when there is none.
func (g *Gateway) DeleteCustom(ctx context.Context, language, word string) error {
	if g.custom == nil {
		return ErrNotFound
	}
	language, word = normalizeLang(language), normalize(word)
	if err := g.custom.Delete(ctx, language, word); err != nil {
		return err
	}
	g.invalidate(language, word)
	return nil
}

func (g *Gateway) invalidate(targetLang, word string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k := range g.cache {
		if k.targetLang == targetLang && k.word == word {
			delete(g.cache, k)
		}
	}
}

// normalizeLang reduces a tag to its base language ("pt-BR" → "pt").
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

func orDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
