package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/packdex/api"
	"github.com/agentic-research/packdex/internal/config"
	"github.com/agentic-research/packdex/internal/service"
)

func newTools(t *testing.T) *tools {
	t.Helper()
	fs := memfs.New()
	files := map[string]string{
		"/assets/core/textures/icon.png":                 "png",
		"/assets/core/lang/en_us.json":                   `{"unit.cannon": "Cannon"}`,
		"/assets/core/entities/cannon.xml":               `<entity id="cannon_minion" hp="450"/>`,
		"/assets/core/patchdata/arena/manifest.json":     `{}`,
		"/assets/core/patchdata/arena/units/cannon.json": `{"hp": 450}`,
	}
	for p, c := range files {
		require.NoError(t, util.WriteFile(fs, p, []byte(c), 0o644))
	}
	cfg := config.Default()
	cfg.BasePack = "/assets"
	cfg.ExternalPacks = ""
	cfg.CacheDir = "/cache"
	svc, err := service.New(fs, cfg, nil)
	require.NoError(t, err)
	return &tools{svc: svc}
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	default:
		t.Fatalf("unexpected content %T", res.Content[0])
		return ""
	}
}

func TestResolve(t *testing.T) {
	tl := newTools(t)
	ctx := context.Background()

	res, err := tl.resolve(ctx, call(map[string]any{"uri": "texture://core:icon"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var got api.Resolution
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	assert.Equal(t, api.Resolution{URI: "texture://core:icon", Path: "/assets/core/textures/icon.png", ContentType: "textures"}, got)

	res, err = tl.resolve(ctx, call(map[string]any{"uri": "texture://core:missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = tl.resolve(ctx, call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestEntitiesAndPatches(t *testing.T) {
	tl := newTools(t)
	ctx := context.Background()

	res, err := tl.listEntities(ctx, call(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `["cannon_minion"]`, text(t, res))

	res, err = tl.getEntity(ctx, call(map[string]any{"id": "cannon_minion"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "cannon_minion", "hp": 450}`, text(t, res))

	res, err = tl.getEntity(ctx, call(map[string]any{"id": "ghost"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = tl.patches(ctx, call(map[string]any{"uri": "gamemode://core:arena"}))
	require.NoError(t, err)
	var files []api.PatchFile
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &files))
	require.Len(t, files, 1)

	res, err = tl.queryJSON(ctx, call(map[string]any{"hash": files[0].Hash, "path": "$.hp"}))
	require.NoError(t, err)
	assert.JSONEq(t, `[450]`, text(t, res))

	res, err = tl.getCached(ctx, call(map[string]any{"hash": files[0].Hash}))
	require.NoError(t, err)
	assert.Equal(t, `{"hp": 450}`, text(t, res))

	res, err = tl.getCached(ctx, call(map[string]any{"hash": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSummaryAndReindex(t *testing.T) {
	tl := newTools(t)
	ctx := context.Background()

	res, err := tl.summary(ctx, call(nil))
	require.NoError(t, err)
	var sum api.IndexSummary
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &sum))
	assert.Equal(t, []string{"/assets"}, sum.Packs)
	assert.Equal(t, 2, sum.Assets)
	assert.Equal(t, 1, sum.Entities)

	require.NoError(t, tl.svc.FS.Remove("/assets/core/textures/icon.png"))
	res, err = tl.reindex(ctx, call(nil))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &sum))
	assert.Equal(t, 1, sum.Assets)
}

func TestNew_RegistersTools(t *testing.T) {
	s := New(newTools(t).svc, "test")
	require.NotNil(t, s)
}

func TestTranslate(t *testing.T) {
	tl := newTools(t)
	ctx := context.Background()

	res, err := tl.translate(ctx, call(map[string]any{"locale": "en-US", "key": "unit.cannon"}))
	require.NoError(t, err)
	assert.Equal(t, "Cannon", text(t, res))

	res, err = tl.translate(ctx, call(map[string]any{"locale": "en-US", "key": "unit.ghost"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestReindex_RefreshesEntitiesAndTranslations(t *testing.T) {
	tl := newTools(t)
	ctx := context.Background()

	res, err := tl.getEntity(ctx, call(map[string]any{"id": "cannon_minion"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "cannon_minion", "hp": 450}`, text(t, res))
	res, err = tl.translate(ctx, call(map[string]any{"locale": "en_us", "key": "unit.cannon"}))
	require.NoError(t, err)
	assert.Equal(t, "Cannon", text(t, res))

	require.NoError(t, util.WriteFile(tl.svc.FS, "/assets/core/entities/cannon.xml", []byte(`<entity id="cannon_minion" hp="999"/>`), 0o644))
	require.NoError(t, tl.svc.FS.Remove("/assets/core/lang/en_us.json"))
	_, err = tl.reindex(ctx, call(nil))
	require.NoError(t, err)

	res, err = tl.getEntity(ctx, call(map[string]any{"id": "cannon_minion"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "cannon_minion", "hp": 999}`, text(t, res))

	res, err = tl.translate(ctx, call(map[string]any{"locale": "en_us", "key": "unit.cannon"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
