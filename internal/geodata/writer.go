package geodata

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Writer serializes collections under a fixed base directory.
type Writer struct {
	BaseDir string
}

// NewWriter returns a Writer rooted at baseDir.
func NewWriter(baseDir string) *Writer {
	return &Writer{BaseDir: baseDir}
}

// Path resolves a dataset-relative path against the base directory.
func (w *Writer) Path(rel string) string {
	return filepath.Join(w.BaseDir, filepath.FromSlash(rel))
}

// Write encodes fc as indented UTF-8 GeoJSON at rel under the base
// directory and returns the full path. Non-ASCII text is written as-is.
// The file is replaced atomically so readers never see a partial document.
func (w *Writer) Write(rel string, fc *FeatureCollection) (string, error) {
	path := w.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", eris.Wrapf(err, "geodata: create directory for %s", path)
	}

	data, err := Encode(fc)
	if err != nil {
		return "", eris.Wrapf(err, "geodata: encode %s", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.geojson")
	if err != nil {
		return "", eris.Wrapf(err, "geodata: create temp file for %s", path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", eris.Wrapf(err, "geodata: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrapf(err, "geodata: close %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", eris.Wrapf(err, "geodata: rename into %s", path)
	}

	return path, nil
}

// Encode renders fc as two-space indented JSON without HTML escaping.
func Encode(fc *FeatureCollection) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
