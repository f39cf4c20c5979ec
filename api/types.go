// Package api defines the JSON documents packdex prints and serves.
package api

// Resolution is a resource URI resolved to a file.
type Resolution struct {
	URI         string `json:"uri"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
}

// Collision is an identifier registered by more than one pack.
// The last pack listed wins.
type Collision struct {
	ID    string   `json:"id"`
	Packs []string `json:"packs"`
}

// IndexSummary describes a built asset index.
type IndexSummary struct {
	Packs      []string    `json:"packs"`
	Assets     int         `json:"assets"`
	Entities   int         `json:"entities"`
	Gamemodes  int         `json:"gamemodes"`
	Collisions []Collision `json:"collisions,omitempty"`
}

// CacheEntry is one content cache blob.
type CacheEntry struct {
	Hash string `json:"hash"`
	Path string `json:"path"`
}

// PatchFile is one content-cached patch file of a gamemode.
type PatchFile struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Hash     string `json:"hash"`
}
