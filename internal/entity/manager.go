// Package entity serves entity templates parsed from the entity XML files
// the indexer content-cached.
package entity

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agentic-research/packdex/internal/xmltree"
)

var ErrUnknownEntity = errors.New("unknown entity")

// DefaultCacheSize bounds the number of parsed templates kept in memory.
const DefaultCacheSize = 256

// Source lists the known entities as id -> content hash.
type Source interface {
	Entities() map[string]string
	EntityHash(id string) (string, bool)
}

// Store returns cached content by hash.
type Store interface {
	GetCachedString(hash string) (string, error)
}

// template is a parsed entity, cached under the hash of its XML so an
// edited file is parsed again after a re-index.
type template struct {
	id  string
	tpl map[string]any
}

// Manager parses templates on first use and keeps the most recently used ones.
type Manager struct {
	src       Source
	store     Store
	templates *lru.Cache[string, template]
	logger    *slog.Logger
}

// NewManager creates a Manager. size <= 0 means DefaultCacheSize.
func NewManager(src Source, store Store, size int, logger *slog.Logger) (*Manager, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	templates, err := lru.New[string, template](size)
	if err != nil {
		return nil, fmt.Errorf("entity: template cache: %w", err)
	}
	return &Manager{
		src:       src,
		store:     store,
		templates: templates,
		logger:    logger.With("component", "entity"),
	}, nil
}

// Template returns the template for id as produced by xmltree's ToMap.
// The returned map is shared; use Instance for a copy safe to modify.
func (m *Manager) Template(id string) (map[string]any, error) {
	hash, ok := m.src.EntityHash(id)
	if !ok {
		m.logger.Info("entity not found", "id", id)
		return nil, fmt.Errorf("entity: %w: %s", ErrUnknownEntity, id)
	}
	if t, ok := m.templates.Get(hash); ok {
		m.logger.Debug("template cache hit", "id", id)
		return t.tpl, nil
	}
	content, err := m.store.GetCachedString(hash)
	if err != nil {
		return nil, fmt.Errorf("entity: %s: %w", id, err)
	}
	doc := xmltree.ParseString(content)
	if !doc.Valid {
		m.logger.Error("failed to parse entity XML", "id", id, "hash", hash, "error", doc.Message)
		return nil, fmt.Errorf("entity: parse %s: %s", id, doc.Message)
	}

	tpl := doc.Root.ToMap()
	m.templates.Add(hash, template{id: id, tpl: tpl})
	m.logger.Debug("loaded entity template", "id", id)
	return tpl, nil
}

// Instance returns a deep copy of the template for id.
func (m *Manager) Instance(id string) (map[string]any, error) {
	tpl, err := m.Template(id)
	if err != nil {
		return nil, err
	}
	return deepCopy(tpl).(map[string]any), nil
}

// Available returns every known entity id, sorted.
func (m *Manager) Available() []string {
	entities := m.src.Entities()
	out := make([]string, 0, len(entities))
	for id := range entities {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Cached returns the ids of the templates currently held in memory.
func (m *Manager) Cached() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, t := range m.templates.Values() {
		if !seen[t.id] {
			seen[t.id] = true
			ids = append(ids, t.id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Dump writes the cached and available template ids to w.
func (m *Manager) Dump(w io.Writer) error {
	cached := m.Cached()
	if _, err := fmt.Fprintf(w, "Cached templates: %d\n", len(cached)); err != nil {
		return err
	}
	for _, id := range cached {
		if _, err := fmt.Fprintf(w, "  - %s\n", id); err != nil {
			return err
		}
	}
	available := m.Available()
	if _, err := fmt.Fprintf(w, "Available entities: %d\n", len(available)); err != nil {
		return err
	}
	for _, id := range available {
		if _, err := fmt.Fprintf(w, "  - %s\n", id); err != nil {
			return err
		}
	}
	return nil
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
