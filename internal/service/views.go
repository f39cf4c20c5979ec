package service

import (
	"sort"

	"github.com/agentic-research/packdex/api"
	"github.com/agentic-research/packdex/internal/identifier"
)

// Summary builds (if needed) and describes the asset index.
func (s *Service) Summary(withCollisions bool) api.IndexSummary {
	sum := api.IndexSummary{
		Packs:     s.Index.Packs(),
		Assets:    len(s.Index.AssetMap()),
		Entities:  len(s.Index.Entities()),
		Gamemodes: len(s.Index.PatchData()),
	}
	if withCollisions {
		for _, c := range s.Index.Collisions() {
			sum.Collisions = append(sum.Collisions, api.Collision{ID: c.ID, Packs: c.Packs})
		}
	}
	return sum
}

// Resolve resolves a resource URI without loading it.
func (s *Service) Resolve(uri string) (api.Resolution, bool) {
	loc, ok := s.Index.ResolveResource(uri)
	if !ok {
		return api.Resolution{}, false
	}
	return api.Resolution{URI: uri, Path: loc.Path, ContentType: loc.ContentType}, true
}

// CacheEntries lists the content cache, sorted by hash.
func (s *Service) CacheEntries() []api.CacheEntry {
	entries := s.Cache.Entries()
	out := make([]api.CacheEntry, 0, len(entries))
	for h, p := range entries {
		out = append(out, api.CacheEntry{Hash: h, Path: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

// Patches lists the cached patch files of a gamemode given as
// "gamemode://group:name". The second result is false for an unknown gamemode.
func (s *Service) Patches(uri string) ([]api.PatchFile, bool) {
	id := identifier.ForResource(uri).ContentIdentifier()
	if !id.Valid() {
		return nil, false
	}
	entries, ok := s.Index.PatchData()[id.String()]
	if !ok {
		return nil, false
	}
	out := make([]api.PatchFile, 0, len(entries))
	for _, e := range entries {
		out = append(out, api.PatchFile{Category: e.Category, Name: e.Name, Hash: e.Hash})
	}
	return out, true
}
