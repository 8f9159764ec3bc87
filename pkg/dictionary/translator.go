package dictionary

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrRateLimited is returned by the External translator when the limiter
// denies a request.
var ErrRateLimited = errors.New("dictionary: rate limited")

// Translator is one stage of the lookup chain. Lookup returns ErrNotFound
// when the stage has nothing for word; any other error is a failure that
// the Gateway logs before moving on.
type Translator interface {
	Source() Source
	Lookup(ctx context.Context, word, sourceLang, targetLang string) (Entry, error)
}

// Provider translates a single word through an external service.
type Provider interface {
	Translate(ctx context.Context, word, sourceLang, targetLang string) (string, error)
}

// Limiter gates outbound requests; *usage.Governor satisfies it.
type Limiter interface {
	Allow(ctx context.Context) bool
}

// Custom resolves words from the user's own entries.
type Custom struct {
	Store CustomStore
}

func (c Custom) Source() Source { return SourceCustom }

func (c Custom) Lookup(ctx context.Context, word, sourceLang, targetLang string) (Entry, error) {
	if c.Store == nil {
		return Entry{}, ErrNotFound
	}
	e, err := c.Store.Lookup(ctx, targetLang, word)
	if err != nil {
		return Entry{}, err
	}
	if len(e.Translations) == 0 {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Bundled resolves words from the per-language dictionary files.
type Bundled struct {
	Bundles *Bundles
}

func (b Bundled) Source() Source { return SourceBundled }

func (b Bundled) Lookup(ctx context.Context, word, sourceLang, targetLang string) (Entry, error) {
	if b.Bundles == nil {
		return Entry{}, ErrNotFound
	}
	bun, err := b.Bundles.Get(ctx, targetLang)
	if err != nil {
		return Entry{}, err
	}
	if bun.Source != "" && sourceLang != "" && bun.Source != sourceLang {
		return Entry{}, ErrNotFound
	}
	e, ok := bun.Lookup(word)
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e.Clone(), nil
}

// External asks a Provider, one request per lookup, when the Limiter allows.
type External struct {
	Provider Provider
	Limiter  Limiter
	Timeout  time.Duration
}

func (x External) Source() Source { return SourceExternal }

func (x External) Lookup(ctx context.Context, word, sourceLang, targetLang string) (Entry, error) {
	if x.Provider == nil {
		return Entry{}, ErrNotFound
	}
	if x.Limiter != nil && !x.Limiter.Allow(ctx) {
		return Entry{}, ErrRateLimited
	}
	if x.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.Timeout)
		defer cancel()
	}
	t, err := x.Provider.Translate(ctx, word, sourceLang, targetLang)
	if err != nil {
		return Entry{}, err
	}
	t = strings.TrimSpace(t)
	if t == "" {
		return Entry{}, ErrNotFound
	}
	return Entry{Word: word, Translations: []string{t}}, nil
}
