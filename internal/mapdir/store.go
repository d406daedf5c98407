// Package mapdir stores rendered maps as <recipe>/<seed>.png files in a
// directory tree.
package mapdir

import (
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	billy "gopkg.in/src-d/go-billy.v4"
)

// Store reads and writes maps on a filesystem. Writes go to a temporary file
// that is renamed into place, so readers never see a partial PNG.
type Store struct {
	Filesystem billy.Filesystem
}

// New returns a store rooted at fs.
func New(fs billy.Filesystem) *Store {
	return &Store{Filesystem: fs}
}

// Path returns the location of a map relative to the store root.
func Path(recipe string, seed int64) string {
	return path.Join(recipe, strconv.FormatInt(seed, 10)+".png")
}

// WriteMap stores data for recipe and seed, replacing any previous map.
func (s *Store) WriteMap(recipe string, seed int64, data []byte) error {
	if !validRecipe(recipe) {
		return fmt.Errorf("invalid recipe name %q", recipe)
	}
	if err := s.Filesystem.MkdirAll(recipe, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", recipe, err)
	}

	loc := Path(recipe, seed)
	temp, err := s.Filesystem.OpenFile(loc+".partial", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", loc, err)
	}

	if _, err = temp.Write(data); err != nil {
		err = multierr.Append(err, temp.Close())
		return multierr.Append(fmt.Errorf("failed to write %s: %w", loc, err), s.Filesystem.Remove(temp.Name()))
	}
	if err = temp.Close(); err != nil {
		return multierr.Append(fmt.Errorf("failed to write %s: %w", loc, err), s.Filesystem.Remove(temp.Name()))
	}

	// Some filesystems refuse to rename over an existing file.
	if _, statErr := s.Filesystem.Stat(loc); statErr == nil {
		if err := s.Filesystem.Remove(loc); err != nil {
			return multierr.Append(fmt.Errorf("failed to replace %s: %w", loc, err), s.Filesystem.Remove(temp.Name()))
		}
	}
	return s.Filesystem.Rename(temp.Name(), loc)
}

// ReadMap returns the stored map. Missing maps report an error matching
// os.ErrNotExist.
func (s *Store) ReadMap(recipe string, seed int64) ([]byte, error) {
	if !validRecipe(recipe) {
		return nil, fmt.Errorf("invalid recipe name %q: %w", recipe, os.ErrNotExist)
	}

	f, err := s.Filesystem.Open(Path(recipe, seed))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// Seeds lists the seeds stored for recipe in ascending order.
func (s *Store) Seeds(recipe string) ([]int64, error) {
	entries, err := s.Filesystem.ReadDir(recipe)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var seeds []int64
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".png")
		if !ok || e.IsDir() {
			continue
		}
		seed, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			continue
		}
		seeds = append(seeds, seed)
	}
	sort.Slice(seeds, func(i, j int) bool { return seeds[i] < seeds[j] })
	return seeds, nil
}

func validRecipe(recipe string) bool {
	return recipe != "" && recipe != "." && recipe != ".." && !strings.ContainsAny(recipe, `/\`)
}
