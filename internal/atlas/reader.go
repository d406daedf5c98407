package atlas

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
)

// Reader reads maps from an atlas database.
type Reader struct {
	db   *sql.DB
	path string
}

// OpenReader opens an atlas database for reading.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='maps'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain maps table")
	}

	return &Reader{
		db:   db,
		path: path,
	}, nil
}

// ReadMap returns the PNG data stored for recipe and seed.
// A missing map yields an error wrapping ErrNotFound.
func (r *Reader) ReadMap(recipe string, seed int64) ([]byte, error) {
	var compressed []byte
	err := r.db.QueryRow(
		"SELECT map_data FROM maps WHERE recipe=? AND seed=?",
		recipe, seed,
	).Scan(&compressed)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%d", ErrNotFound, recipe, seed)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query map: %w", err)
	}

	data, err := gzipDecompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress map: %w", err)
	}
	return data, nil
}

// Seeds lists the stored seeds of a recipe in ascending order.
func (r *Reader) Seeds(recipe string) ([]int64, error) {
	rows, err := r.db.Query("SELECT seed FROM maps WHERE recipe=? ORDER BY seed", recipe)
	if err != nil {
		return nil, fmt.Errorf("failed to query seeds: %w", err)
	}
	defer rows.Close()

	var seeds []int64
	for rows.Next() {
		var seed int64
		if err := rows.Scan(&seed); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, seed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seeds: %w", err)
	}
	return seeds, nil
}

// Metadata reads metadata from the database.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	return metadataFromMap(values), nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	return io.ReadAll(gr)
}
