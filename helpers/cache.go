package helpers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spektr-org/shoplens/engine"
)

// SaveCache writes view to path as flat CSV. The file is written next to
// its destination and renamed into place, so readers never see a partial
// cache.
func SaveCache(path string, view engine.RecordView) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, view); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

// LoadCache reads a cache written by SaveCache. A missing file returns an
// error matching os.ErrNotExist.
func LoadCache(path string) (*engine.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	defer f.Close()

	store, err := ParseCSVStore(f)
	if err != nil {
		return nil, fmt.Errorf("load cache %s: %w", path, err)
	}
	return store, nil
}
