package inflate

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Index is a snapshot of the regular files under a directory, in lexical
// walk order. It is taken before any rotated copy is written so lookups
// never see the inflator's own output.
type Index struct {
	paths []string
}

// BuildIndex walks root recursively.
func BuildIndex(root string) (*Index, error) {
	ix := &Index{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			ix.paths = append(ix.paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ix, nil
}

// Len returns the number of indexed files.
func (ix *Index) Len() int { return len(ix.paths) }

// Find returns the first file named exactly name, or failing that the first
// file whose name contains the stem of name.
func (ix *Index) Find(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, p := range ix.paths {
		if filepath.Base(p) == name {
			return p, true
		}
	}
	stem := Stem(name)
	if stem == "" {
		return "", false
	}
	for _, p := range ix.paths {
		if strings.Contains(filepath.Base(p), stem) {
			return p, true
		}
	}
	return "", false
}

// Stem returns name up to its first dot.
func Stem(name string) string {
	stem, _, _ := strings.Cut(name, ".")
	return stem
}
