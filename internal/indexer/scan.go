package indexer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/RoaringBitmap/roaring"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/packdex/internal/identifier"
	"github.com/agentic-research/packdex/internal/xmltree"
)

const (
	importSuffix = ".import"
	binarySuffix = ".bin"
	jsonExt      = ".json"
	xmlExt       = ".xml"
	manifestFile = "manifest.json"
)

// build is the state of one full scan. It is only touched while the
// Indexer's write lock is held and is swapped in when the scan finishes.
type build struct {
	fs     billy.Filesystem
	cache  ContentCache
	tr     TranslationRegistry
	logger *slog.Logger

	pack    uint32 // ordinal of the pack being scanned
	root    string // root of the pack being scanned
	packs   []string
	assets  map[string]string
	owners  map[string]*roaring.Bitmap
	entity  map[string]string
	patches map[string][]PatchEntry
	lang    []langBundle
}

// langBundle is one lang file, handed to the registry when the build is swapped in.
type langBundle struct {
	locale   string
	messages map[string]string
}

func newBuild(ix *Indexer) *build {
	return &build{
		fs:      ix.fs,
		cache:   ix.cache,
		tr:      ix.tr,
		logger:  ix.logger,
		assets:  make(map[string]string),
		owners:  make(map[string]*roaring.Bitmap),
		entity:  make(map[string]string),
		patches: make(map[string][]PatchEntry),
	}
}

// readDir lists dir, logging and swallowing any failure.
func (b *build) readDir(dir string) ([]os.FileInfo, bool) {
	entries, err := b.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			b.logger.Info("directory not found", "dir", dir)
		} else {
			b.logger.Warn("failed to open directory", "dir", dir, "error", err)
		}
		return nil, false
	}
	return entries, true
}

// register records id -> p, later packs replacing earlier ones.
func (b *build) register(id identifier.Identifier, p string) {
	key := id.String()
	if key == "" {
		b.logger.Warn("skipping invalid identifier", "path", p)
		return
	}
	b.assets[key] = p

	bm, ok := b.owners[key]
	if !ok {
		bm = roaring.New()
		b.owners[key] = bm
	}
	bm.Add(b.pack)
	b.logger.Debug("indexed asset", "id", key, "path", p)
}

// indexPack scans every group directory under root.
func (b *build) indexPack(root string) {
	entries, ok := b.readDir(root)
	if !ok {
		return
	}
	b.pack = uint32(len(b.packs))
	b.root = root
	b.packs = append(b.packs, root)
	b.logger.Info("indexing asset pack", "pack", root)

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		b.indexGroup(e.Name())
	}
}

func (b *build) indexGroup(group string) {
	entries, ok := b.readDir(b.fs.Join(b.root, group))
	if !ok {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		kind := KindOf(e.Name())
		b.logger.Debug("indexing asset type", "pack", b.root, "group", group, "kind", kind, "folder", e.Name())
		handlers[kind](b, group, e.Name())
	}
}

// stem strips the packaging suffix and the extension from a file name.
func stem(name string) string {
	name = strings.TrimSuffix(name, importSuffix)
	return strings.TrimSuffix(name, path.Ext(name))
}

// indexResources registers group:<folder>/<stem> for every leaf file below folder.
func (b *build) indexResources(group, folder string) {
	dir := b.fs.Join(b.root, group, folder)
	entries, ok := b.readDir(dir)
	if !ok {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			b.indexResources(group, folder+"/"+name)
			continue
		}
		if strings.HasSuffix(name, binarySuffix) {
			continue
		}
		name = strings.TrimSuffix(name, importSuffix)
		b.register(identifier.FromValues(group, folder+"/"+stem(name)), b.fs.Join(dir, name))
	}
}

// indexFonts registers group:fonts/<stem> for every file directly in fonts/.
func (b *build) indexFonts(group, folder string) {
	dir := b.fs.Join(b.root, group, folder)
	entries, ok := b.readDir(dir)
	if !ok {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.TrimSuffix(e.Name(), importSuffix)
		b.register(identifier.FromValues(group, folder+"/"+stem(name)), b.fs.Join(dir, name))
	}
}

// loadLang collects every <locale>.json bundle for the translation registry.
func (b *build) loadLang(group, folder string) {
	if b.tr == nil {
		b.logger.Debug("no translation registry, skipping lang", "pack", b.root, "group", group)
		return
	}
	dir := b.fs.Join(b.root, group, folder)
	entries, ok := b.readDir(dir)
	if !ok {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), jsonExt) {
			continue
		}
		p := b.fs.Join(dir, e.Name())
		messages, err := b.readMessages(p)
		if err != nil {
			b.logger.Warn("failed to load lang file", "path", p, "error", err)
			continue
		}
		locale := strings.TrimSuffix(e.Name(), jsonExt)
		b.lang = append(b.lang, langBundle{locale: locale, messages: messages})
		b.logger.Debug("loaded translation", "locale", locale, "messages", len(messages), "path", p)
	}
}

func (b *build) readMessages(p string) (map[string]string, error) {
	data, err := util.ReadFile(b.fs, p)
	if err != nil {
		return nil, err
	}
	v, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", v)
	}
	messages := make(map[string]string, len(obj))
	for k, val := range obj {
		if s, ok := val.(string); ok {
			messages[k] = s
		} else {
			messages[k] = oj.JSON(val)
		}
	}
	return messages, nil
}

// cachePatchData registers each gamemode manifest and content-caches its patch files.
func (b *build) cachePatchData(group, folder string) {
	dir := b.fs.Join(b.root, group, folder)
	entries, ok := b.readDir(dir)
	if !ok {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		gamemode := e.Name()
		id := identifier.ForResource("gamemode://" + group + ":" + gamemode).ContentIdentifier()
		if !id.Valid() {
			b.logger.Warn("failed to create manifest identifier", "group", group, "gamemode", gamemode)
			continue
		}
		gmDir := b.fs.Join(dir, gamemode)
		b.register(id, b.fs.Join(gmDir, manifestFile))

		if b.cache == nil {
			b.logger.Debug("no content cache, skipping patch data", "gamemode", id.String())
			continue
		}
		for _, category := range patchCategories {
			b.cachePatchCategory(id.String(), gmDir, category)
		}
	}
}

func (b *build) cachePatchCategory(key, gmDir, category string) {
	dir := b.fs.Join(gmDir, category)
	entries, err := b.fs.ReadDir(dir)
	if err != nil {
		// categories are optional
		b.logger.Debug("patch category not present", "dir", dir)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), jsonExt) {
			continue
		}
		p := b.fs.Join(dir, e.Name())
		hash, err := b.cache.CacheFile(p)
		if err != nil {
			b.logger.Warn("failed to cache patch file", "path", p, "error", err)
			continue
		}
		b.patches[key] = append(b.patches[key], PatchEntry{
			Category: category,
			Name:     strings.TrimSuffix(e.Name(), jsonExt),
			Path:     p,
			Hash:     hash,
		})
		b.logger.Debug("cached patch file", "path", p, "hash", hash)
	}
}

// cacheEntities content-caches every entity XML that carries a root id.
func (b *build) cacheEntities(group, folder string) {
	if b.cache == nil {
		b.logger.Debug("no content cache, skipping entities", "pack", b.root, "group", group)
		return
	}
	dir := b.fs.Join(b.root, group, folder)
	files, err := xmltree.ListFiles(b.fs, dir, xmlExt)
	if err != nil {
		b.logger.Warn("failed to open entities directory", "dir", dir, "error", err)
		return
	}
	for _, p := range files {
		doc := xmltree.ParseFile(b.fs, p)
		if !doc.Valid {
			b.logger.Error("failed to load entity XML", "path", p, "error", doc.Message)
			continue
		}
		id, ok := doc.Root.Attr("id")
		if !ok || id.Raw == "" {
			b.logger.Error("entity XML missing id attribute", "path", p)
			continue
		}
		hash, err := b.cache.CacheFile(p)
		if err != nil {
			b.logger.Warn("failed to cache entity file", "path", p, "error", err)
			continue
		}
		b.entity[id.Raw] = hash
		b.logger.Debug("cached entity", "id", id.Raw, "path", p, "hash", hash)
	}
}
