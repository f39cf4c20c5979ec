// Package datacache is a content-addressed store: files and strings are
// kept under the hex digest of their bytes, one blob per digest.
//
// Layout on the backing filesystem:
//
//	<Dir>/<digest>
//
// Re-caching identical content is a no-op returning the same digest. The
// in-memory digest index is built lazily from the directory listing, so
// blobs written by an earlier process are found without re-hashing.
package datacache

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Config configures a Cache.
type Config struct {
	// Dir is the blob directory on the backing filesystem.
	Dir string
	// Algorithm defaults to SHA256.
	Algorithm Algorithm
	Logger    *slog.Logger
}

type buildState int

const (
	stateEmpty buildState = iota
	stateBuilding
	stateReady
)

// Cache is safe for concurrent use. The whole index build and every blob
// write run under the write lock; lookups take the read lock.
type Cache struct {
	fs     billy.Filesystem
	dir    string
	alg    Algorithm
	logger *slog.Logger

	mu      sync.RWMutex
	state   buildState
	entries map[string]string // digest -> blob path
}

// New creates a Cache rooted at cfg.Dir. The directory is created on the
// first write, not here.
func New(fs billy.Filesystem, cfg Config) (*Cache, error) {
	if fs == nil {
		return nil, errors.New("datacache: filesystem is required")
	}
	if cfg.Dir == "" {
		return nil, errors.New("datacache: Dir is required")
	}
	alg, err := ParseAlgorithm(string(cfg.Algorithm))
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		fs:      fs,
		dir:     cfg.Dir,
		alg:     alg,
		logger:  logger.With("component", "datacache"),
		entries: make(map[string]string),
	}, nil
}

// Algorithm returns the digest algorithm in use.
func (c *Cache) Algorithm() Algorithm { return c.alg }

// Dir returns the blob directory.
func (c *Cache) Dir() string { return c.dir }

// IndexFiles builds the digest index from the blob directory once.
func (c *Cache) IndexFiles() {
	c.mu.RLock()
	ready := c.state == stateReady
	c.mu.RUnlock()
	if ready {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.buildLocked()
}

// ReIndexFiles drops the index and rescans the blob directory.
func (c *Cache) ReIndexFiles() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = stateEmpty
	c.entries = make(map[string]string)
	c.buildLocked()
}

// buildLocked must be called with c.mu held for writing.
func (c *Cache) buildLocked() {
	if c.state == stateReady {
		return
	}
	c.state = stateBuilding

	entries, err := c.fs.ReadDir(c.dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.logger.Debug("cache directory does not exist yet", "dir", c.dir)
	case err != nil:
		c.logger.Warn("failed to list cache directory", "dir", c.dir, "error", err)
	}

	for _, e := range entries {
		if e.IsDir() || !IsDigest(e.Name()) {
			continue
		}
		c.entries[e.Name()] = c.fs.Join(c.dir, e.Name())
	}

	c.state = stateReady
	c.logger.Debug("indexed cache directory", "dir", c.dir, "entries", len(c.entries))
}

// CacheFile stores the contents of path and returns its digest.
func (c *Cache) CacheFile(path string) (string, error) {
	data, err := util.ReadFile(c.fs, path)
	if err != nil {
		return "", fmt.Errorf("datacache: read %s: %w", path, err)
	}
	return c.store(data)
}

// CacheString stores the UTF-8 bytes of s and returns their digest.
func (c *Cache) CacheString(s string) (string, error) {
	return c.store([]byte(s))
}

func (c *Cache) store(data []byte) (string, error) {
	hash := c.alg.Sum(data)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.buildLocked()

	if _, ok := c.entries[hash]; ok {
		return hash, nil
	}

	blob := c.fs.Join(c.dir, hash)
	if _, err := c.fs.Stat(blob); err == nil {
		// written by another process after our scan
		c.entries[hash] = blob
		return hash, nil
	}

	if err := c.writeBlob(blob, data); err != nil {
		return "", err
	}
	c.entries[hash] = blob
	c.logger.Debug("cached content", "hash", hash, "bytes", len(data))
	return hash, nil
}

// writeBlob writes through a temp file and renames it into place so a
// blob is never visible half-written.
func (c *Cache) writeBlob(blob string, data []byte) error {
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("datacache: create %s: %w", c.dir, err)
	}

	tmp, err := c.fs.TempFile(c.dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("datacache: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = c.fs.Remove(tmpName)
		return fmt.Errorf("datacache: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = c.fs.Remove(tmpName)
		return fmt.Errorf("datacache: close %s: %w", tmpName, err)
	}
	if err := c.fs.Rename(tmpName, blob); err != nil {
		_ = c.fs.Remove(tmpName)
		return fmt.Errorf("datacache: rename %s: %w", blob, err)
	}
	return nil
}

// IsCached reports whether hash has an entry, building the index first if needed.
func (c *Cache) IsCached(hash string) bool {
	_, ok := c.lookup(hash)
	return ok
}

func (c *Cache) lookup(hash string) (string, bool) {
	if !IsDigest(hash) {
		return "", false
	}
	c.IndexFiles()

	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[hash]
	return p, ok
}

// GetCachedBytes returns the raw content stored under hash.
func (c *Cache) GetCachedBytes(hash string) ([]byte, error) {
	p, ok := c.lookup(hash)
	if !ok {
		c.logger.Info("hash not found in cache", "hash", hash)
		return nil, fmt.Errorf("datacache: %w: %s", ErrNotCached, hash)
	}
	data, err := util.ReadFile(c.fs, p)
	if err != nil {
		return nil, fmt.Errorf("datacache: read %s: %w", p, err)
	}
	return data, nil
}

// GetCachedString returns the content stored under hash as text.
func (c *Cache) GetCachedString(hash string) (string, error) {
	data, err := c.GetCachedBytes(hash)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetCachedJSON parses the content stored under hash as JSON. Objects
// decode to map[string]any, arrays to []any, integers to int64.
func (c *Cache) GetCachedJSON(hash string) (any, error) {
	data, err := c.GetCachedBytes(hash)
	if err != nil {
		return nil, err
	}
	v, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("datacache: %w: %s: %v", ErrInvalidJSON, hash, err)
	}
	return v, nil
}

// QueryCachedJSON evaluates a JSONPath expression against a cached JSON entry.
func (c *Cache) QueryCachedJSON(hash, path string) ([]any, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("datacache: invalid jsonpath %q: %w", path, err)
	}
	data, err := c.GetCachedJSON(hash)
	if err != nil {
		return nil, err
	}
	return x.Get(data), nil
}

// FileHash hashes the contents of path without caching them.
func (c *Cache) FileHash(path string) (string, error) {
	data, err := util.ReadFile(c.fs, path)
	if err != nil {
		return "", fmt.Errorf("datacache: read %s: %w", path, err)
	}
	return c.alg.Sum(data), nil
}

// StringHash hashes s without caching it.
func (c *Cache) StringHash(s string) string {
	return c.alg.Sum([]byte(s))
}

// Entries returns a copy of the digest -> blob path index.
func (c *Cache) Entries() map[string]string {
	c.IndexFiles()

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Len returns the number of indexed entries.
func (c *Cache) Len() int {
	c.IndexFiles()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Dump writes the index to w, one "digest : path" line per entry.
func (c *Cache) Dump(w io.Writer) error {
	entries := c.Entries()
	hashes := make([]string, 0, len(entries))
	for h := range entries {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	if _, err := fmt.Fprintf(w, "Hash map with size %d\n", len(hashes)); err != nil {
		return err
	}
	for _, h := range hashes {
		if _, err := fmt.Fprintf(w, "%s : %s\n", h, entries[h]); err != nil {
			return err
		}
	}
	return nil
}
