package atlas

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultBatchSize is the number of pending maps that triggers a flush.
const DefaultBatchSize = 100

// Entry is a single rendered map.
type Entry struct {
	Recipe string
	Seed   int64
	Data   []byte // PNG data, gzip-compressed in the database
}

type mapKey struct {
	recipe string
	seed   int64
}

// Writer writes maps to an atlas database. It is safe for concurrent use.
//
// Maps are buffered per (recipe, seed); writing the same key twice before a
// flush keeps only the last data. Close records the recipes and map count of
// the whole database in the metadata table.
type Writer struct {
	db        *sql.DB
	metadata  Metadata
	pending   map[mapKey][]byte
	batchSize int
	mu        sync.Mutex
}

// New opens or creates the atlas at path and replaces its metadata.
func New(path string, metadata Metadata) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err := replaceMetadata(db, metadata.ToMap()); err != nil {
		db.Close()
		return nil, err
	}

	return &Writer{
		db:        db,
		metadata:  metadata,
		pending:   make(map[mapKey][]byte, DefaultBatchSize),
		batchSize: DefaultBatchSize,
	}, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS metadata (
		name TEXT NOT NULL PRIMARY KEY,
		value TEXT
	);

	CREATE TABLE IF NOT EXISTS maps (
		recipe TEXT NOT NULL,
		seed INTEGER NOT NULL,
		map_data BLOB NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS map_index ON maps (recipe, seed);
`

func replaceMetadata(db *sql.DB, values map[string]string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin metadata transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	for key, value := range values {
		if _, err := tx.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}
	return tx.Commit()
}

// WriteMap queues a map and flushes once enough maps are pending.
func (w *Writer) WriteMap(recipe string, seed int64, pngData []byte) error {
	if recipe == "" {
		return errors.New("atlas: empty recipe name")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[mapKey{recipe, seed}] = pngData
	if len(w.pending) >= w.batchSize {
		return w.flushLocked()
	}
	return nil
}

// Flush writes pending maps to the database.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO maps (recipe, seed, map_data) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for k, data := range w.pending {
		compressed, err := gzipCompress(data)
		if err != nil {
			return fmt.Errorf("failed to compress map %s/%d: %w", k.recipe, k.seed, err)
		}
		if _, err := stmt.Exec(k.recipe, k.seed, compressed); err != nil {
			return fmt.Errorf("failed to insert map %s/%d: %w", k.recipe, k.seed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	clear(w.pending)
	return nil
}

// Close flushes pending maps, records the atlas contents in the metadata and
// closes the database.
func (w *Writer) Close() error {
	err := w.Flush()
	if err == nil {
		err = w.recordContents()
	}
	if cerr := w.db.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close database: %w", cerr)
	}
	return err
}

// recordContents stores the recipe names and the total map count, including
// maps written by earlier runs against the same file.
func (w *Writer) recordContents() error {
	rows, err := w.db.Query("SELECT recipe, COUNT(*) FROM maps GROUP BY recipe")
	if err != nil {
		return fmt.Errorf("failed to count maps: %w", err)
	}
	defer rows.Close()

	var (
		recipes []string
		total   int
	)
	for rows.Next() {
		var (
			recipe string
			n      int
		)
		if err := rows.Scan(&recipe, &n); err != nil {
			return fmt.Errorf("failed to scan map count: %w", err)
		}
		recipes = append(recipes, recipe)
		total += n
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating map counts: %w", err)
	}
	sort.Strings(recipes)

	for key, value := range map[string]string{
		"recipes": strings.Join(recipes, ","),
		"maps":    strconv.Itoa(total),
	} {
		if _, err := w.db.Exec("INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("failed to record %s: %w", key, err)
		}
	}
	return nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
