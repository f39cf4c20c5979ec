// Package translation holds the message bundles found in pack lang folders.
package translation

import (
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/text/language"
)

// Registry is an in-memory locale -> key -> message store.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	bundles map[string]map[string]string
}

// NewRegistry returns an empty registry. A nil logger discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		logger:  logger.With("component", "translation"),
		bundles: make(map[string]map[string]string),
	}
}

// Canonical returns the BCP 47 form of locale ("en_us" -> "en-US").
// Unparseable locales are returned unchanged.
func Canonical(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return locale
	}
	return tag.String()
}

// Reset drops every bundle.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bundles = make(map[string]map[string]string)
}

// AddTranslation merges messages into the bundle for locale. Keys already
// present are replaced, so later packs override earlier ones.
func (r *Registry) AddTranslation(locale string, messages map[string]string) {
	loc := Canonical(locale)

	r.mu.Lock()
	defer r.mu.Unlock()
	bundle, ok := r.bundles[loc]
	if !ok {
		bundle = make(map[string]string, len(messages))
		r.bundles[loc] = bundle
	}
	for k, v := range messages {
		bundle[k] = v
	}
	r.logger.Debug("added translation", "locale", loc, "messages", len(messages))
}

// Lookup returns the message for key in locale.
func (r *Registry) Lookup(locale, key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, ok := r.bundles[Canonical(locale)][key]
	return msg, ok
}

// Locales returns every registered locale, sorted.
func (r *Registry) Locales() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.bundles))
	for loc := range r.bundles {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// Messages returns a copy of the bundle for locale.
func (r *Registry) Messages(locale string) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bundle := r.bundles[Canonical(locale)]
	out := make(map[string]string, len(bundle))
	for k, v := range bundle {
		out[k] = v
	}
	return out
}
