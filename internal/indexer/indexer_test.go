package indexer

import (
	"bytes"
	"sync"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/packdex/internal/datacache"
	"github.com/agentic-research/packdex/internal/identifier"
)

type fakeTranslations struct {
	mu      sync.Mutex
	bundles map[string]map[string]string
}

func (f *fakeTranslations) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundles = nil
}

func (f *fakeTranslations) AddTranslation(locale string, messages map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bundles == nil {
		f.bundles = make(map[string]map[string]string)
	}
	f.bundles[locale] = messages
}

func writeFiles(t *testing.T, fs billy.Filesystem, files map[string]string) {
	t.Helper()
	for p, content := range files {
		require.NoError(t, util.WriteFile(fs, p, []byte(content), 0o644))
	}
}

func newTestIndexer(t *testing.T, fs billy.Filesystem) (*Indexer, *datacache.Cache, *fakeTranslations) {
	t.Helper()
	cache, err := datacache.New(fs, datacache.Config{Dir: "/cache"})
	require.NoError(t, err)
	tr := &fakeTranslations{}
	ix := New(fs, Config{
		BasePack:     "/base",
		ExternalRoot: "/external",
		Cache:        cache,
		Translations: tr,
	})
	return ix, cache, tr
}

func TestOverride_ExternalWins(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/base/g/textures/n.png":           "A",
		"/base/g/textures/only_base.png":   "A",
		"/external/mod/g/textures/n.png":   "B",
		"/external/mod/g/textures/new.png": "B",
	})
	ix, _, _ := newTestIndexer(t, fs)

	assert.Equal(t, "/external/mod/g/textures/n.png", ix.GetAssetPath(identifier.FromString("g:textures/n")))
	assert.Equal(t, "/base/g/textures/only_base.png", ix.GetAssetPath(identifier.FromString("g:textures/only_base")))
	assert.Equal(t, "/external/mod/g/textures/new.png", ix.GetAssetPath(identifier.FromString("g:textures/new")))

	assert.Equal(t, []string{"/base", "/external/mod"}, ix.Packs())
	assert.Equal(t, []Collision{{ID: "g:textures/n", Packs: []string{"/base", "/external/mod"}}}, ix.Collisions())
}

func TestExternalPacks_NameOrder(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/external/b_pack/g/data/x.json": "{}",
		"/external/a_pack/g/data/x.json": "{}",
		"/external/stray.txt":            "not a pack",
	})
	ix, _, _ := newTestIndexer(t, fs)

	assert.Equal(t, "/external/b_pack/g/data/x.json", ix.GetAssetPath(identifier.FromString("g:data/x")))
	assert.Equal(t, []string{"/external/a_pack", "/external/b_pack"}, ix.Packs())
}

func TestIndexFiles_MissingAndGarbledPacks(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/external/good/g/sounds/boom.ogg":       "ogg",
		"/external/flat_file_pack":               "not a directory",
		"/external/empty_groups/readme.md":       "no groups here",
		"/external/broken/g/entities/bad.xml":    "<entity",
		"/external/broken/g/entities/noid.xml":   "<entity hp=\"1\"/>",
		"/external/broken/g/lang/en.json":        "[not, an, object",
		"/external/broken/g/patchdata/readme.md": "not a gamemode",
	})
	ix, _, tr := newTestIndexer(t, fs)

	assert.NotPanics(t, ix.IndexFiles)
	assert.Equal(t, "/external/good/g/sounds/boom.ogg", ix.GetAssetPath(identifier.FromString("g:sounds/boom")))
	assert.Empty(t, ix.Entities())
	assert.Empty(t, tr.bundles)
}

func TestIndexFiles_NoRoots(t *testing.T) {
	ix := New(memfs.New(), Config{BasePack: "/nope", ExternalRoot: "/also_nope"})
	ix.IndexFiles()
	assert.Empty(t, ix.AssetMap())
	assert.Empty(t, ix.Packs())
	assert.Equal(t, "", ix.GetAssetPath(identifier.FromString("g:n")))
}

func TestResources_Recursive(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/base/core/textures/ui/button.png":        "png",
		"/base/core/textures/ui/button.png.import": "import",
		"/base/core/textures/ui/atlas.bin":         "bin",
		"/base/core/textures/sky.jpg":              "jpg",
		"/base/core/maps/arena/layout.json":        "{}",
	})
	ix, _, _ := newTestIndexer(t, fs)

	assert.Equal(t, map[string]string{
		"core:textures/ui/button": "/base/core/textures/ui/button.png",
		"core:textures/sky":       "/base/core/textures/sky.jpg",
		"core:maps/arena/layout":  "/base/core/maps/arena/layout.json",
	}, ix.AssetMap())
}

func TestFonts(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/base/core/fonts/Roboto.ttf.import": "import",
		"/base/core/fonts/Mono.otf":          "otf",
		"/base/core/fonts/nested/skip.ttf":   "nested fonts are not indexed",
	})
	ix, _, _ := newTestIndexer(t, fs)

	assert.Equal(t, "/base/core/fonts/Roboto.ttf", ix.GetAssetPath(identifier.FromString("core:fonts/Roboto")))
	assert.Equal(t, "/base/core/fonts/Mono.otf", ix.GetAssetPath(identifier.FromString("core:fonts/Mono")))
	assert.Equal(t, "", ix.GetAssetPath(identifier.FromString("core:fonts/skip")))
	assert.Len(t, ix.AssetMap(), 2)
}

func TestLang(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/base/core/lang/en.json":   `{"greeting": "Hello", "count": 3}`,
		"/base/core/lang/de.json":   `{"greeting": "Hallo"}`,
		"/base/core/lang/notes.txt": "ignored",
		"/base/core/lang/list.json": `["not", "a", "map"]`,
	})
	ix, _, tr := newTestIndexer(t, fs)
	ix.IndexFiles()

	require.Len(t, tr.bundles, 2)
	assert.Equal(t, map[string]string{"greeting": "Hello", "count": "3"}, tr.bundles["en"])
	assert.Equal(t, "Hallo", tr.bundles["de"]["greeting"])
	assert.Empty(t, ix.AssetMap(), "lang bundles are not assets")
}

func TestPatchData(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/base/core/patchdata/arena/manifest.json":        `{"name": "Arena"}`,
		"/base/core/patchdata/arena/units/cannon.json":    `{"hp": 450}`,
		"/base/core/patchdata/arena/items/sword.json":     `{"damage": 12}`,
		"/base/core/patchdata/arena/items/readme.txt":     "skip",
		"/base/core/patchdata/arena/unknown/ignored.json": `{}`,
	})
	ix, cache, _ := newTestIndexer(t, fs)

	loc, ok := ix.ResolveResource("gamemode://core:arena")
	require.True(t, ok)
	assert.Equal(t, Location{Path: "/base/core/patchdata/arena/manifest.json", ContentType: "gamemodes"}, loc)

	patches := ix.PatchData()["core:gamemodes/arena"]
	require.Len(t, patches, 2)
	assert.Equal(t, "units", patches[0].Category)
	assert.Equal(t, "cannon", patches[0].Name)
	assert.Equal(t, "items", patches[1].Category)

	hp, err := cache.QueryCachedJSON(patches[0].Hash, "$.hp")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(450)}, hp)
	assert.Equal(t, 2, cache.Len())
}

func TestEntities(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/base/core/entities/cannon.xml":         `<entity id="cannon_minion" hp="450"/>`,
		"/base/core/entities/minions/archer.xml": `<entity id="archer" hp="200"/>`,
		"/base/core/entities/noid.xml":           `<entity hp="1"/>`,
		"/base/core/entities/broken.xml":         `<entity id="x"`,
		"/external/mod/core/entities/cannon.xml": `<entity id="cannon_minion" hp="900"/>`,
	})
	ix, cache, _ := newTestIndexer(t, fs)

	entities := ix.Entities()
	require.Len(t, entities, 2)
	assert.Contains(t, entities, "archer")

	xml, err := cache.GetCachedString(entities["cannon_minion"])
	require.NoError(t, err)
	assert.Contains(t, xml, `hp="900"`)
}

func TestReIndexFiles_DropsDeleted(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/base/g/textures/keep.png": "x",
		"/base/g/textures/gone.png": "x",
	})
	ix, _, _ := newTestIndexer(t, fs)
	require.Len(t, ix.AssetMap(), 2)

	require.NoError(t, fs.Remove("/base/g/textures/gone.png"))
	writeFiles(t, fs, map[string]string{"/base/g/textures/added.png": "x"})
	assert.Len(t, ix.AssetMap(), 2, "index is not rebuilt implicitly")

	ix.ReIndexFiles()
	assert.Equal(t, map[string]string{
		"g:textures/keep":  "/base/g/textures/keep.png",
		"g:textures/added": "/base/g/textures/added.png",
	}, ix.AssetMap())
}

func TestReIndexFiles_ResetsTranslationsAndEntities(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/base/core/lang/en.json":        `{"greeting": "Hello"}`,
		"/base/core/lang/de.json":        `{"greeting": "Hallo"}`,
		"/base/core/entities/cannon.xml": `<entity id="cannon" hp="450"/>`,
	})
	ix, _, tr := newTestIndexer(t, fs)
	oldHash, ok := ix.EntityHash("cannon")
	require.True(t, ok)
	require.Len(t, tr.bundles, 2)

	require.NoError(t, fs.Remove("/base/core/lang/de.json"))
	writeFiles(t, fs, map[string]string{
		"/base/core/lang/en.json":        `{"greeting": "Hi"}`,
		"/base/core/entities/cannon.xml": `<entity id="cannon" hp="999"/>`,
	})
	ix.ReIndexFiles()

	assert.Equal(t, map[string]map[string]string{"en": {"greeting": "Hi"}}, tr.bundles)
	newHash, ok := ix.EntityHash("cannon")
	require.True(t, ok)
	assert.NotEqual(t, oldHash, newHash)
	_, ok = ix.EntityHash("ghost")
	assert.False(t, ok)
}

func TestReIndexFiles_ReadersNeverSeeEmptyIndex(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/base/g/textures/n.png":      "x",
		"/external/mod/g/fonts/f.ttf": "x",
	})
	ix, _, _ := newTestIndexer(t, fs)
	ix.IndexFiles()

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if p := ix.GetAssetPath(identifier.FromString("g:textures/n")); p != "/base/g/textures/n.png" {
					t.Errorf("texture resolved to %q during re-index", p)
					return
				}
				if p := ix.GetAssetPath(identifier.FromString("g:fonts/f")); p != "/external/mod/g/fonts/f.ttf" {
					t.Errorf("font resolved to %q during re-index", p)
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		ix.ReIndexFiles()
	}
	close(done)
	wg.Wait()
}

func TestResolveResource(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/base/g/textures/n.png":  "png",
		"/base/g/fonts/Sans.ttf":  "ttf",
		"/base/g/data/units.json": "{}",
	})
	ix, _, _ := newTestIndexer(t, fs)

	tests := []struct {
		uri  string
		want Location
		ok   bool
	}{
		{uri: "textures://g:n", want: Location{Path: "/base/g/textures/n.png", ContentType: "textures"}, ok: true},
		{uri: "texture://g:n", want: Location{Path: "/base/g/textures/n.png", ContentType: "textures"}, ok: true},
		{uri: "font://g:Sans", want: Location{Path: "/base/g/fonts/Sans.ttf", ContentType: "fonts"}, ok: true},
		{uri: "json://g:data/units", want: Location{Path: "/base/g/data/units.json", ContentType: "json"}, ok: true},
		{uri: "textures://g:missing"},
		{uri: "bogus://g:n"},
		{uri: "textures://nocolon"},
		{uri: "g:textures/n"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, ok := ix.ResolveResource(tt.uri)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConcurrentFirstAccess(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{"/base/g/textures/n.png": "x"})
	ix, _, _ := newTestIndexer(t, fs)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "/base/g/textures/n.png", ix.GetAssetPath(identifier.FromString("g:textures/n")))
		}()
	}
	wg.Wait()
}

func TestGetAssetPath_Invalid(t *testing.T) {
	ix := New(memfs.New(), Config{})
	assert.Equal(t, "", ix.GetAssetPath(identifier.FromString("invalid")))
}

func TestDump(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{"/base/g/textures/n.png": "x"})
	ix, _, _ := newTestIndexer(t, fs)

	var buf bytes.Buffer
	require.NoError(t, ix.Dump(&buf))
	assert.Equal(t, "Asset map with size 1\ng:textures/n : /base/g/textures/n.png\n", buf.String())
}

func TestKindTable(t *testing.T) {
	for k := Kind(0); k < numKinds; k++ {
		assert.NotNil(t, handlers[k], "kind %s has no handler", k)
	}
	assert.Equal(t, KindLang, KindOf("lang"))
	assert.Equal(t, KindFonts, KindOf("fonts"))
	assert.Equal(t, KindPatchData, KindOf("patchdata"))
	assert.Equal(t, KindEntities, KindOf("entities"))
	assert.Equal(t, KindResources, KindOf("textures"))
	assert.Equal(t, KindResources, KindOf(""))
	assert.Equal(t, "resources", KindResources.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
