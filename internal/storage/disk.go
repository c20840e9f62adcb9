package storage

import (
	"os"
	"path/filepath"
)

// Footprint returns the on-disk size of each named data file (corpus database, embedding
// matrix, lexicon...) and their total. Directories are summed recursively; missing or
// empty paths count as 0.
func Footprint(paths map[string]string) (map[string]int64, int64, error) {
	sizes := make(map[string]int64, len(paths))
	var total int64
	for name, p := range paths {
		n, err := sizeOf(p)
		if err != nil {
			return nil, 0, err
		}
		sizes[name] = n
		total += n
	}
	return sizes, total, nil
}

func sizeOf(path string) (int64, error) {
	if path == "" || path == ":memory:" {
		return 0, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.Walk(path, func(_ string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi != nil && !fi.IsDir() {
			total += fi.Size()
		}
		return nil
	})
	return total, err
}
