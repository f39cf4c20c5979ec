// Package resolver turns resource URIs into loaded resources.
//
// A URI is resolved through the asset index, then handed either to an
// external loader that already knows the concrete path or to one of the
// terminal loaders picked by content type.
package resolver

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"golang.org/x/image/font/sfnt"

	"github.com/agentic-research/packdex/internal/identifier"
	"github.com/agentic-research/packdex/internal/indexer"
)

var (
	ErrNotFound    = errors.New("resource not found")
	ErrUnsupported = errors.New("unsupported resource type")
)

// AssetResolver maps a resource URI to a concrete location.
type AssetResolver interface {
	ResolveResource(uri string) (indexer.Location, bool)
}

// Loader is a host loader that may already handle a concrete path.
type Loader interface {
	Exists(path string) bool
	Load(path string) (any, error)
}

// Resource is a loaded resource. Value holds *image.NRGBA for textures,
// *sfnt.Font for fonts, the parsed document for JSON, or whatever the
// external loader returned.
type Resource struct {
	URI         string
	Path        string
	ContentType string
	Value       any
}

// Texture returns the decoded image, if Value is one.
func (r Resource) Texture() (*image.NRGBA, bool) {
	img, ok := r.Value.(*image.NRGBA)
	return img, ok
}

// Font returns the parsed font, if Value is one.
func (r Resource) Font() (*sfnt.Font, bool) {
	f, ok := r.Value.(*sfnt.Font)
	return f, ok
}

// Config configures a Handler. External and Logger are optional.
type Config struct {
	Assets   AssetResolver
	FS       billy.Filesystem
	External Loader
	Logger   *slog.Logger
}

// Handler loads resources addressed by URI.
type Handler struct {
	assets   AssetResolver
	fs       billy.Filesystem
	external Loader
	logger   *slog.Logger
}

func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		assets:   cfg.Assets,
		fs:       cfg.FS,
		external: cfg.External,
		logger:   logger.With("component", "resolver"),
	}
}

// RecognizePath reports whether p starts with a registered content type
// or resource prefix followed by "://".
func (h *Handler) RecognizePath(p string) bool {
	for _, scheme := range identifier.ContentTypes() {
		if strings.HasPrefix(p, scheme+"://") {
			return true
		}
	}
	for _, scheme := range identifier.ResourcePrefixes() {
		if strings.HasPrefix(p, scheme+"://") {
			return true
		}
	}
	return false
}

// Load resolves uri and loads what it points at.
func (h *Handler) Load(uri string) (Resource, error) {
	loc, ok := h.assets.ResolveResource(uri)
	if !ok {
		return Resource{}, fmt.Errorf("resolver: %w: %s", ErrNotFound, uri)
	}
	res := Resource{URI: uri, Path: loc.Path, ContentType: loc.ContentType}

	if h.external != nil && h.external.Exists(loc.Path) {
		h.logger.Debug("loading through external loader", "uri", uri, "path", loc.Path)
		v, err := h.external.Load(loc.Path)
		if err != nil {
			return Resource{}, fmt.Errorf("resolver: external load %s: %w", loc.Path, err)
		}
		res.Value = v
		return res, nil
	}

	h.logger.Debug("loading resource", "uri", uri, "path", loc.Path, "content_type", loc.ContentType)
	var err error
	switch {
	case loc.ContentType == "textures":
		res.Value, err = LoadTexture(h.fs, loc.Path)
	case loc.ContentType == "fonts":
		res.Value, err = LoadFont(h.fs, loc.Path)
	case strings.EqualFold(path.Ext(loc.Path), ".json"):
		res.Value, err = LoadJSON(h.fs, loc.Path)
	default:
		return Resource{}, fmt.Errorf("resolver: %w: %s (%s)", ErrUnsupported, loc.Path, loc.ContentType)
	}
	if err != nil {
		h.logger.Warn("failed to load resource", "uri", uri, "path", loc.Path, "error", err)
		return Resource{}, err
	}
	return res, nil
}
