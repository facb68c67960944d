// Package geodata holds the GeoJSON document type every dataset is converted
// into, along with its on-disk reader and writer.
package geodata

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Metadata is the foreign "metadata" member written alongside the features
// of merged collections.
type Metadata struct {
	Source   string `json:"source"`
	Year     string `json:"year"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// FeatureCollection is a GeoJSON FeatureCollection with optional metadata.
// Feature order is significant and preserved through encoding. Foreign
// members are kept verbatim; a "metadata" member that does not fit
// Metadata stays in Foreign.
type FeatureCollection struct {
	Features []*Feature
	Metadata *Metadata
	Foreign  map[string]json.RawMessage
}

// Len returns the number of features.
func (fc *FeatureCollection) Len() int {
	if fc == nil {
		return 0
	}
	return len(fc.Features)
}

// MarshalJSON implements json.Marshaler.
func (fc *FeatureCollection) MarshalJSON() ([]byte, error) {
	features := fc.Features
	if features == nil {
		features = []*Feature{}
	}
	encoded, err := marshalUnescaped(features)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":"FeatureCollection"`)
	writeMember(&buf, "features", encoded)

	reserved := []string{"type", "features"}
	if fc.Metadata != nil {
		meta, err := marshalUnescaped(fc.Metadata)
		if err != nil {
			return nil, err
		}
		writeMember(&buf, "metadata", meta)
		reserved = append(reserved, "metadata")
	}
	writeForeign(&buf, fc.Foreign, reserved...)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (fc *FeatureCollection) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}

	var typ string
	if raw, ok := members["type"]; ok {
		if err := json.Unmarshal(raw, &typ); err != nil {
			return eris.Wrap(err, "geodata: collection type")
		}
	}
	if typ != "FeatureCollection" {
		return eris.Errorf("geodata: expected FeatureCollection, got %q", typ)
	}

	*fc = FeatureCollection{}
	if raw, ok := members["features"]; ok {
		if err := json.Unmarshal(raw, &fc.Features); err != nil {
			return err
		}
	}

	for k, v := range members {
		switch k {
		case "type", "features":
			continue
		case "metadata":
			var meta Metadata
			dec := json.NewDecoder(bytes.NewReader(v))
			dec.DisallowUnknownFields()
			if !isNull(v) && dec.Decode(&meta) == nil {
				fc.Metadata = &meta
				continue
			}
		}
		if fc.Foreign == nil {
			fc.Foreign = make(map[string]json.RawMessage)
		}
		fc.Foreign[k] = v
	}
	return nil
}
