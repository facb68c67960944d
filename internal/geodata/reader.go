package geodata

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeError reports a GeoJSON file that could not be decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ReadFile loads a FeatureCollection from path. Files with a byte-order
// mark are decoded accordingly; files that are not valid UTF-8 are read as
// Shift_JIS, which some municipal exports still use.
func ReadFile(path string) (*FeatureCollection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geodata: read %s", path)
	}

	data, err := normalizeText(raw)
	if err != nil {
		return nil, eris.Wrap(&DecodeError{Path: path, Err: err}, "geodata: decode text")
	}

	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(&DecodeError{Path: path, Err: err}, "geodata: decode geojson")
	}
	return &fc, nil
}

func normalizeText(raw []byte) ([]byte, error) {
	data, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return nil, err
	}
	if utf8.Valid(data) {
		return data, nil
	}
	data, _, err = transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return nil, err
	}
	return data, nil
}
