// Package mcpserver exposes packdex lookups as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agentic-research/packdex/internal/datacache"
	"github.com/agentic-research/packdex/internal/entity"
	"github.com/agentic-research/packdex/internal/service"
)

const serverName = "packdex"

// tools binds the tool handlers to one Service.
type tools struct {
	svc *service.Service
}

// New builds an MCP server with every packdex tool registered.
func New(svc *service.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(serverName, version, server.WithToolCapabilities(true))
	t := &tools{svc: svc}

	s.AddTool(mcp.NewTool("resolve_resource",
		mcp.WithDescription("Resolve a resource URI such as textures://group:name to a file path and content type"),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Resource URI, <scheme>://group:name")),
	), t.resolve)

	s.AddTool(mcp.NewTool("index_summary",
		mcp.WithDescription("Describe the asset index: scanned packs, asset counts and identifier collisions"),
	), t.summary)

	s.AddTool(mcp.NewTool("reindex",
		mcp.WithDescription("Rescan every asset pack and the content cache directory"),
	), t.reindex)

	s.AddTool(mcp.NewTool("get_cached",
		mcp.WithDescription("Return the content cached under a hash"),
		mcp.WithString("hash", mcp.Required(), mcp.Description("Hex digest returned by the cache")),
	), t.getCached)

	s.AddTool(mcp.NewTool("query_cached_json",
		mcp.WithDescription("Evaluate a JSONPath expression against a cached JSON entry"),
		mcp.WithString("hash", mcp.Required(), mcp.Description("Hex digest of a cached JSON entry")),
		mcp.WithString("path", mcp.Required(), mcp.Description("JSONPath expression, e.g. $.units[*].hp")),
	), t.queryJSON)

	s.AddTool(mcp.NewTool("list_entities",
		mcp.WithDescription("List the ids of every entity template"),
	), t.listEntities)

	s.AddTool(mcp.NewTool("get_entity",
		mcp.WithDescription("Return an entity template as JSON"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id from the root id attribute")),
	), t.getEntity)

	s.AddTool(mcp.NewTool("gamemode_patches",
		mcp.WithDescription("List the cached patch files of a gamemode"),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Gamemode URI, gamemode://group:name")),
	), t.patches)

	s.AddTool(mcp.NewTool("translate",
		mcp.WithDescription("Look up a translated message"),
		mcp.WithString("locale", mcp.Required(), mcp.Description("Locale tag, e.g. en or en_US")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Message key")),
	), t.translate)

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(svc *service.Service, version string) error {
	return server.ServeStdio(New(svc, version))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (t *tools) resolve(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, err := req.RequireString("uri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, ok := t.svc.Resolve(uri)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("resource not found: %s", uri)), nil
	}
	return jsonResult(res)
}

func (t *tools) summary(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.svc.Summary(true))
}

func (t *tools) reindex(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.svc.Cache.ReIndexFiles()
	t.svc.Index.ReIndexFiles()
	return jsonResult(t.svc.Summary(false))
}

func (t *tools) getCached(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hash, err := req.RequireString("hash")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := t.svc.Cache.GetCachedString(hash)
	if errors.Is(err, datacache.ErrNotCached) {
		return mcp.NewToolResultError(fmt.Sprintf("hash not cached: %s", hash)), nil
	}
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(content), nil
}

func (t *tools) queryJSON(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hash, err := req.RequireString("hash")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := t.svc.Cache.QueryCachedJSON(hash, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (t *tools) listEntities(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.svc.Entities.Available())
}

func (t *tools) getEntity(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tpl, err := t.svc.Entities.Template(id)
	if errors.Is(err, entity.ErrUnknownEntity) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown entity: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tpl)
}

func (t *tools) patches(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, err := req.RequireString("uri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	files, ok := t.svc.Patches(uri)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown gamemode: %s", uri)), nil
	}
	return jsonResult(files)
}

func (t *tools) translate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	locale, err := req.RequireString("locale")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// Bundles are registered while the index is built.
	t.svc.Index.IndexFiles()
	msg, ok := t.svc.Translations.Lookup(locale, key)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no message %q for locale %q", key, locale)), nil
	}
	return mcp.NewToolResultText(msg), nil
}
