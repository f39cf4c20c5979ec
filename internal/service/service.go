// Package service wires the cache, translation registry, indexer,
// resolver and entity manager into one value owned by the caller.
package service

import (
	"fmt"
	"log/slog"

	billy "github.com/go-git/go-billy/v5"

	"github.com/agentic-research/packdex/internal/config"
	"github.com/agentic-research/packdex/internal/datacache"
	"github.com/agentic-research/packdex/internal/entity"
	"github.com/agentic-research/packdex/internal/indexer"
	"github.com/agentic-research/packdex/internal/resolver"
	"github.com/agentic-research/packdex/internal/translation"
)

// Service holds one instance of every component. All paths in the config
// are interpreted on FS.
type Service struct {
	FS           billy.Filesystem
	Cache        *datacache.Cache
	Translations *translation.Registry
	Index        *indexer.Indexer
	Resolver     *resolver.Handler
	Entities     *entity.Manager
	Logger       *slog.Logger
}

// New validates cfg and builds the components. Nothing is scanned yet.
func New(fs billy.Filesystem, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cache, err := datacache.New(fs, datacache.Config{
		Dir:       cfg.CacheDir,
		Algorithm: datacache.Algorithm(cfg.HashAlgorithm),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	tr := translation.NewRegistry(logger)
	ix := indexer.New(fs, indexer.Config{
		BasePack:     cfg.BasePack,
		ExternalRoot: cfg.ExternalPacks,
		Cache:        cache,
		Translations: tr,
		Logger:       logger,
	})

	entities, err := entity.NewManager(ix, cache, cfg.TemplateCacheSize, logger)
	if err != nil {
		return nil, err
	}

	return &Service{
		FS:           fs,
		Cache:        cache,
		Translations: tr,
		Index:        ix,
		Resolver:     resolver.New(resolver.Config{Assets: ix, FS: fs, Logger: logger}),
		Entities:     entities,
		Logger:       logger,
	}, nil
}
