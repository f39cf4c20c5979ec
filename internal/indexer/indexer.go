// Package indexer maps asset identifiers to file paths across an ordered
// set of asset packs.
//
// A pack is laid out as <pack>/<group>/<asset-type>/... . The base pack
// is scanned first, then every immediate subdirectory of the external
// root in name order; a later pack silently replaces an identifier
// registered by an earlier one.
package indexer

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"
	billy "github.com/go-git/go-billy/v5"

	"github.com/agentic-research/packdex/internal/identifier"
)

// TranslationRegistry receives every lang bundle found while indexing.
// Each full build resets it and re-adds the bundles in pack order.
type TranslationRegistry interface {
	Reset()
	AddTranslation(locale string, messages map[string]string)
}

// ContentCache stores patch data and entity files found while indexing.
// It must read from the same filesystem as the Indexer.
type ContentCache interface {
	CacheFile(path string) (string, error)
}

// Config configures an Indexer. Empty roots are skipped.
type Config struct {
	BasePack     string
	ExternalRoot string
	Cache        ContentCache
	Translations TranslationRegistry
	Logger       *slog.Logger
}

// Location is a resolved resource.
type Location struct {
	Path        string
	ContentType string
}

// PatchEntry is one content-cached patch file of a gamemode.
type PatchEntry struct {
	Category string
	Name     string
	Path     string
	Hash     string
}

// Collision is an identifier registered by more than one pack.
// Packs are listed in scan order; the last one wins.
type Collision struct {
	ID    string
	Packs []string
}

type buildState int

const (
	stateEmpty buildState = iota
	stateBuilding
	stateReady
)

// Indexer is safe for concurrent use. The first lookup builds the index
// while holding the write lock, so concurrent first callers wait for that
// one build instead of repeating it.
type Indexer struct {
	fs     billy.Filesystem
	cfg    Config
	cache  ContentCache
	tr     TranslationRegistry
	logger *slog.Logger

	mu      sync.RWMutex
	state   buildState
	packs   []string
	assets  map[string]string
	owners  map[string]*roaring.Bitmap
	entity  map[string]string
	patches map[string][]PatchEntry
}

// New creates an Indexer. Nothing is scanned until the first lookup.
func New(fs billy.Filesystem, cfg Config) *Indexer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Indexer{
		fs:      fs,
		cfg:     cfg,
		cache:   cfg.Cache,
		tr:      cfg.Translations,
		logger:  logger.With("component", "indexer"),
		assets:  make(map[string]string),
		owners:  make(map[string]*roaring.Bitmap),
		entity:  make(map[string]string),
		patches: make(map[string][]PatchEntry),
	}
}

// IndexFiles builds the index if it has not been built yet.
func (ix *Indexer) IndexFiles() {
	ix.mu.RLock()
	ready := ix.state == stateReady
	ix.mu.RUnlock()
	if ready {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.buildLocked()
}

// ReIndexFiles discards the index and rebuilds it from disk. Clearing and
// rescanning happen under one lock, so no caller observes the cleared map.
func (ix *Indexer) ReIndexFiles() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.state = stateEmpty
	ix.buildLocked()
}

func (ix *Indexer) buildLocked() {
	if ix.state == stateReady {
		return
	}
	ix.state = stateBuilding

	b := newBuild(ix)
	if ix.cfg.BasePack != "" {
		b.indexPack(ix.cfg.BasePack)
	}
	if ix.cfg.ExternalRoot != "" {
		for _, p := range ix.externalPacks(b) {
			b.indexPack(p)
		}
	}

	ix.packs = b.packs
	ix.assets = b.assets
	ix.owners = b.owners
	ix.entity = b.entity
	ix.patches = b.patches
	if ix.tr != nil {
		ix.tr.Reset()
		for _, l := range b.lang {
			ix.tr.AddTranslation(l.locale, l.messages)
		}
	}
	ix.state = stateReady

	collisions := 0
	for _, bm := range ix.owners {
		if bm.GetCardinality() > 1 {
			collisions++
		}
	}
	ix.logger.Info("index built",
		"packs", len(ix.packs),
		"assets", len(ix.assets),
		"entities", len(ix.entity),
		"collisions", collisions)
}

// externalPacks lists the immediate subdirectories of the external root, sorted.
func (ix *Indexer) externalPacks(b *build) []string {
	entries, ok := b.readDir(ix.cfg.ExternalRoot)
	if !ok {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, ix.fs.Join(ix.cfg.ExternalRoot, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

// GetAssetPath returns the file registered for id, or "" when there is none.
func (ix *Indexer) GetAssetPath(id identifier.Identifier) string {
	if !id.Valid() {
		ix.logger.Info("invalid identifier")
		return ""
	}
	ix.IndexFiles()

	key := id.String()
	ix.mu.RLock()
	p, ok := ix.assets[key]
	ix.mu.RUnlock()
	if !ok {
		ix.logger.Info("asset not found in index", "id", key)
		return ""
	}
	return p
}

// ResolveResource resolves "<scheme>://group:name". The second result is
// false when the URI does not parse or nothing is registered for it.
func (ix *Indexer) ResolveResource(uri string) (Location, bool) {
	id := identifier.ForResource(uri)
	if !id.Valid() {
		ix.logger.Info("invalid resource identifier", "uri", uri)
		return Location{}, false
	}
	p := ix.GetAssetPath(id.ContentIdentifier())
	if p == "" {
		ix.logger.Info("resource not found", "uri", uri)
		return Location{}, false
	}
	return Location{Path: p, ContentType: id.ContentType()}, true
}

// AssetMap returns a copy of the identifier -> path index.
func (ix *Indexer) AssetMap() map[string]string {
	ix.IndexFiles()

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]string, len(ix.assets))
	for k, v := range ix.assets {
		out[k] = v
	}
	return out
}

// Packs returns the pack roots that were scanned, in scan order.
func (ix *Indexer) Packs() []string {
	ix.IndexFiles()

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]string(nil), ix.packs...)
}

// Collisions returns every identifier registered by more than one pack, sorted by ID.
func (ix *Indexer) Collisions() []Collision {
	ix.IndexFiles()

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []Collision
	for id, bm := range ix.owners {
		if bm.GetCardinality() < 2 {
			continue
		}
		c := Collision{ID: id}
		it := bm.Iterator()
		for it.HasNext() {
			c.Packs = append(c.Packs, ix.packs[it.Next()])
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Provenance returns, for every identifier registered by more than one
// pack, a bitmap of the ordinals (indexes into Packs) that registered it.
func (ix *Indexer) Provenance() map[string]*roaring.Bitmap {
	ix.IndexFiles()

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]*roaring.Bitmap)
	for id, bm := range ix.owners {
		if bm.GetCardinality() > 1 {
			out[id] = bm.Clone()
		}
	}
	return out
}

// Entities returns a copy of the entity id -> content hash map.
func (ix *Indexer) Entities() map[string]string {
	ix.IndexFiles()

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]string, len(ix.entity))
	for k, v := range ix.entity {
		out[k] = v
	}
	return out
}

// EntityHash returns the content hash of the entity file declaring id.
func (ix *Indexer) EntityHash(id string) (string, bool) {
	ix.IndexFiles()

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	h, ok := ix.entity[id]
	return h, ok
}

// PatchData returns the cached patch files keyed by gamemode content identifier.
func (ix *Indexer) PatchData() map[string][]PatchEntry {
	ix.IndexFiles()

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string][]PatchEntry, len(ix.patches))
	for k, v := range ix.patches {
		out[k] = append([]PatchEntry(nil), v...)
	}
	return out
}

// Dump writes the index to w, one "id : path" line per entry, sorted by id.
func (ix *Indexer) Dump(w io.Writer) error {
	assets := ix.AssetMap()
	keys := make([]string, 0, len(assets))
	for k := range assets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if _, err := fmt.Fprintf(w, "Asset map with size %d\n", len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s : %s\n", k, assets[k]); err != nil {
			return err
		}
	}
	return nil
}
