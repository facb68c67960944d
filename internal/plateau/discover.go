package plateau

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
)

// Discover returns every regular file under dir, at any depth, whose base
// name matches pattern. Paths are sorted. A missing dir yields no files.
func Discover(dir, pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, eris.Wrapf(err, "plateau: pattern %q", pattern)
	}

	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipAll
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "plateau: discover %s in %s", pattern, dir)
	}

	sort.Strings(matches)
	return matches, nil
}
