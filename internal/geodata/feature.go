package geodata

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Feature is a GeoJSON Feature that survives a read/write cycle unchanged:
// the id keeps its JSON form, numeric properties are held as json.Number,
// and members other than type, id, geometry and properties (bbox included)
// are carried through verbatim in Foreign.
type Feature struct {
	ID         json.RawMessage
	Geometry   geom.T
	Properties map[string]any
	Foreign    map[string]json.RawMessage
}

// NewPointFeature builds a Point feature at (lon, lat). Longitude comes
// first, as GeoJSON requires.
func NewPointFeature(lon, lat float64, props map[string]any) *Feature {
	return &Feature{
		Geometry:   geom.NewPointFlat(geom.XY, []float64{lon, lat}),
		Properties: props,
	}
}

// MarshalJSON implements json.Marshaler.
func (f *Feature) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"Feature"`)

	if len(f.ID) > 0 {
		writeMember(&buf, "id", f.ID)
	}

	geometry, err := geojson.Marshal(f.Geometry)
	if err != nil {
		return nil, eris.Wrap(err, "geodata: encode geometry")
	}
	writeMember(&buf, "geometry", geometry)

	props := []byte("null")
	if f.Properties != nil {
		if props, err = marshalUnescaped(f.Properties); err != nil {
			return nil, eris.Wrap(err, "geodata: encode properties")
		}
	}
	writeMember(&buf, "properties", props)

	writeForeign(&buf, f.Foreign, "type", "id", "geometry", "properties")
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Feature) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}

	var typ string
	if raw, ok := members["type"]; ok {
		if err := json.Unmarshal(raw, &typ); err != nil {
			return eris.Wrap(err, "geodata: feature type")
		}
	}
	if typ != "Feature" {
		return eris.Errorf("geodata: expected Feature, got %q", typ)
	}

	*f = Feature{}
	if raw, ok := members["id"]; ok && !isNull(raw) {
		f.ID = raw
	}
	if raw, ok := members["geometry"]; ok {
		if err := geojson.Unmarshal(raw, &f.Geometry); err != nil {
			return eris.Wrap(err, "geodata: feature geometry")
		}
	}
	if raw, ok := members["properties"]; ok && !isNull(raw) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&f.Properties); err != nil {
			return eris.Wrap(err, "geodata: feature properties")
		}
	}

	for k, v := range members {
		switch k {
		case "type", "id", "geometry", "properties":
			continue
		}
		if f.Foreign == nil {
			f.Foreign = make(map[string]json.RawMessage)
		}
		f.Foreign[k] = v
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// marshalUnescaped encodes v like json.Marshal but leaves <, > and & as-is.
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeMember(buf *bytes.Buffer, key string, value []byte) {
	k, _ := marshalUnescaped(key)
	buf.WriteByte(',')
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(value)
}

// writeForeign appends foreign members in key order, skipping reserved keys.
func writeForeign(buf *bytes.Buffer, foreign map[string]json.RawMessage, reserved ...string) {
	keys := make([]string, 0, len(foreign))
	for k := range foreign {
		skip := false
		for _, r := range reserved {
			if k == r {
				skip = true
				break
			}
		}
		if !skip {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeMember(buf, k, foreign[k])
	}
}
