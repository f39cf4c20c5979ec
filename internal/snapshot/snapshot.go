// Package snapshot persists a built asset index and the content cache
// index to a single SQLite file, and reads it back.
package snapshot

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"sort"

	"github.com/RoaringBitmap/roaring"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/packdex/internal/datacache"
	"github.com/agentic-research/packdex/internal/indexer"
)

// Snapshot is everything a build produced.
type Snapshot struct {
	Algorithm string
	Packs     []string
	Assets    map[string]string
	// Provenance holds pack ordinals for identifiers registered by more than one pack.
	Provenance map[string]*roaring.Bitmap
	Entities   map[string]string
	Patches    map[string][]indexer.PatchEntry
	Cache      map[string]string
}

// Capture builds a Snapshot from a built index and its content cache.
func Capture(ix *indexer.Indexer, cache *datacache.Cache) *Snapshot {
	return &Snapshot{
		Algorithm:  string(cache.Algorithm()),
		Packs:      ix.Packs(),
		Assets:     ix.AssetMap(),
		Provenance: ix.Provenance(),
		Entities:   ix.Entities(),
		Patches:    ix.PatchData(),
		Cache:      cache.Entries(),
	}
}

// Collisions expands Provenance into pack roots, sorted by ID.
func (s *Snapshot) Collisions() []indexer.Collision {
	var out []indexer.Collision
	for id, bm := range s.Provenance {
		c := indexer.Collision{ID: id}
		it := bm.Iterator()
		for it.HasNext() {
			ord := it.Next()
			if int(ord) < len(s.Packs) {
				c.Packs = append(c.Packs, s.Packs[ord])
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

const schema = `
CREATE TABLE meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE packs (
	ordinal INTEGER PRIMARY KEY,
	root TEXT NOT NULL
);
CREATE TABLE assets (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL
);
CREATE TABLE collisions (
	id TEXT PRIMARY KEY,
	packs BLOB NOT NULL
);
CREATE TABLE entities (
	id TEXT PRIMARY KEY,
	hash TEXT NOT NULL
);
CREATE TABLE patches (
	gamemode TEXT NOT NULL,
	seq INTEGER NOT NULL,
	category TEXT NOT NULL,
	name TEXT NOT NULL,
	path TEXT NOT NULL,
	hash TEXT NOT NULL,
	PRIMARY KEY (gamemode, seq)
);
CREATE TABLE cache_entries (
	hash TEXT PRIMARY KEY,
	path TEXT NOT NULL
) WITHOUT ROWID;
`

// Write replaces dbPath with a new snapshot database. All rows go in one
// transaction.
func Write(dbPath string, s *Snapshot) error {
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old snapshot %s: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		return err
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op once committed

	if _, err := tx.Exec("INSERT INTO meta (key, value) VALUES ('hash_algorithm', ?)", s.Algorithm); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}
	for i, root := range s.Packs {
		if _, err := tx.Exec("INSERT INTO packs (ordinal, root) VALUES (?, ?)", i, root); err != nil {
			return fmt.Errorf("insert pack %s: %w", root, err)
		}
	}
	if err := insertPairs(tx, "INSERT INTO assets (id, path) VALUES (?, ?)", s.Assets); err != nil {
		return fmt.Errorf("insert assets: %w", err)
	}
	if err := insertPairs(tx, "INSERT INTO entities (id, hash) VALUES (?, ?)", s.Entities); err != nil {
		return fmt.Errorf("insert entities: %w", err)
	}
	if err := insertPairs(tx, "INSERT INTO cache_entries (hash, path) VALUES (?, ?)", s.Cache); err != nil {
		return fmt.Errorf("insert cache entries: %w", err)
	}

	var buf bytes.Buffer
	for id, bm := range s.Provenance {
		buf.Reset()
		if _, err := bm.WriteTo(&buf); err != nil {
			return fmt.Errorf("serialize bitmap for %s: %w", id, err)
		}
		if _, err := tx.Exec("INSERT INTO collisions (id, packs) VALUES (?, ?)", id, buf.Bytes()); err != nil {
			return fmt.Errorf("insert collision %s: %w", id, err)
		}
	}

	patchStmt, err := tx.Prepare(`INSERT INTO patches (gamemode, seq, category, name, path, hash) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare patches insert: %w", err)
	}
	defer func() { _ = patchStmt.Close() }()
	for gm, entries := range s.Patches {
		for i, e := range entries {
			if _, err := patchStmt.Exec(gm, i, e.Category, e.Name, e.Path, e.Hash); err != nil {
				return fmt.Errorf("insert patch %s: %w", e.Path, err)
			}
		}
	}

	return tx.Commit()
}

func insertPairs(tx *sql.Tx, query string, pairs map[string]string) error {
	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for k, v := range pairs {
		if _, err := stmt.Exec(k, v); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
	}
	return nil
}

// Read loads a snapshot written by Write.
func Read(dbPath string) (*Snapshot, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	s := &Snapshot{
		Provenance: make(map[string]*roaring.Bitmap),
		Patches:    make(map[string][]indexer.PatchEntry),
	}

	if err := db.QueryRow("SELECT value FROM meta WHERE key = 'hash_algorithm'").Scan(&s.Algorithm); err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}

	rows, err := db.Query("SELECT root FROM packs ORDER BY ordinal")
	if err != nil {
		return nil, fmt.Errorf("query packs: %w", err)
	}
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan pack: %w", err)
		}
		s.Packs = append(s.Packs, root)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.Assets, err = readPairs(db, "SELECT id, path FROM assets"); err != nil {
		return nil, fmt.Errorf("read assets: %w", err)
	}
	if s.Entities, err = readPairs(db, "SELECT id, hash FROM entities"); err != nil {
		return nil, fmt.Errorf("read entities: %w", err)
	}
	if s.Cache, err = readPairs(db, "SELECT hash, path FROM cache_entries"); err != nil {
		return nil, fmt.Errorf("read cache entries: %w", err)
	}
	if err := readCollisions(db, s); err != nil {
		return nil, err
	}
	if err := readPatches(db, s); err != nil {
		return nil, err
	}
	return s, nil
}

func readPairs(db *sql.DB, query string) (map[string]string, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func readCollisions(db *sql.DB, s *Snapshot) error {
	rows, err := db.Query("SELECT id, packs FROM collisions")
	if err != nil {
		return fmt.Errorf("query collisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return fmt.Errorf("scan collision: %w", err)
		}
		bm := roaring.New()
		if err := bm.UnmarshalBinary(blob); err != nil {
			return fmt.Errorf("decode bitmap for %s: %w", id, err)
		}
		s.Provenance[id] = bm
	}
	return rows.Err()
}

func readPatches(db *sql.DB, s *Snapshot) error {
	rows, err := db.Query("SELECT gamemode, category, name, path, hash FROM patches ORDER BY gamemode, seq")
	if err != nil {
		return fmt.Errorf("query patches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var gm string
		var e indexer.PatchEntry
		if err := rows.Scan(&gm, &e.Category, &e.Name, &e.Path, &e.Hash); err != nil {
			return fmt.Errorf("scan patch: %w", err)
		}
		s.Patches[gm] = append(s.Patches[gm], e)
	}
	return rows.Err()
}
