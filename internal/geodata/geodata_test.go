package geodata

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const sampleCollection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [135.7681, 35.0116]}, "properties": {"名称": "二条城", "kind": "landmark"}},
    {"type": "Feature", "id": 7, "geometry": {"type": "LineString", "coordinates": [[135.0, 35.0], [135.1, 35.1]]}, "properties": {"road": "国道1号"}},
    {"type": "Feature", "geometry": null, "properties": null}
  ]
}`

func TestFeatureCollection_Unmarshal(t *testing.T) {
	var fc FeatureCollection
	require.NoError(t, json.Unmarshal([]byte(sampleCollection), &fc))
	require.Equal(t, 3, fc.Len())

	p, ok := fc.Features[0].Geometry.(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, 135.7681, p.X(), 1e-9)
	assert.InDelta(t, 35.0116, p.Y(), 1e-9)
	assert.Equal(t, "二条城", fc.Features[0].Properties["名称"])

	assert.Equal(t, json.RawMessage("7"), fc.Features[1].ID)
	_, ok = fc.Features[1].Geometry.(*geom.LineString)
	assert.True(t, ok)

	assert.Nil(t, fc.Features[2].Geometry)
	assert.Nil(t, fc.Features[2].Properties)
	assert.Nil(t, fc.Metadata)
}

func TestFeatureCollection_UnmarshalWrongType(t *testing.T) {
	var fc FeatureCollection
	err := json.Unmarshal([]byte(`{"type":"Feature","features":[]}`), &fc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected FeatureCollection")
}

func TestEncode_EmptyCollection(t *testing.T) {
	data, err := Encode(&FeatureCollection{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}

func TestEncode_PointAndMetadata(t *testing.T) {
	fc := &FeatureCollection{
		Features: []*Feature{
			NewPointFeature(135.7, 35.0, map[string]any{"amenity": "cafe", "name": "喫茶店"}),
		},
		Metadata: &Metadata{Source: "PLATEAU", Year: "2024", Category: "避難所", Count: 1},
	}

	data, err := Encode(fc)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "FeatureCollection",
		"features": [{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [135.7, 35.0]},
			"properties": {"amenity": "cafe", "name": "喫茶店"}
		}],
		"metadata": {"source": "PLATEAU", "year": "2024", "category": "避難所", "count": 1}
	}`, string(data))

	// Japanese text stays verbatim and the document is indented.
	assert.Contains(t, string(data), "喫茶店")
	assert.Contains(t, string(data), "避難所")
	assert.NotContains(t, string(data), `\u`)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"type\""))
}

func TestWriter_WriteAndReadBack(t *testing.T) {
	w := NewWriter(t.TempDir())
	fc := &FeatureCollection{
		Features: []*Feature{
			NewPointFeature(135.0, 35.1, map[string]any{"historic": "yes", "name": "金閣寺"}),
			NewPointFeature(135.5, 35.2, map[string]any{"tourism": "museum"}),
		},
	}

	path, err := w.Write("osm/tourism_temples.geojson", fc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.BaseDir, "osm", "tourism_temples.geojson"), path)

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "金閣寺", got.Features[0].Properties["name"])
	assert.Equal(t, "museum", got.Features[1].Properties["tourism"])

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriter_Overwrites(t *testing.T) {
	w := NewWriter(t.TempDir())
	_, err := w.Write("plateau/parks.geojson", &FeatureCollection{
		Features: []*Feature{NewPointFeature(1, 2, map[string]any{"a": "b"})},
	})
	require.NoError(t, err)

	path, err := w.Write("plateau/parks.geojson", &FeatureCollection{})
	require.NoError(t, err)

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestReadFile_UTF8BOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.geojson")
	require.NoError(t, os.WriteFile(path, append([]byte{0xEF, 0xBB, 0xBF}, sampleCollection...), 0o644))

	fc, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, fc.Len())
	assert.Equal(t, "二条城", fc.Features[0].Properties["名称"])
}

func TestReadFile_ShiftJIS(t *testing.T) {
	sjis, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(sampleCollection))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sjis.geojson")
	require.NoError(t, os.WriteFile(path, sjis, 0o644))

	fc, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 3, fc.Len())
	assert.Equal(t, "二条城", fc.Features[0].Properties["名称"])
	assert.Equal(t, "国道1号", fc.Features[1].Properties["road"])
}

func TestReadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[{`), 0o644))

	_, err := ReadFile(path)
	require.Error(t, err)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, path, de.Path)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.geojson"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFeatureCollection_RoundTripKeepsSourceMembers(t *testing.T) {
	in := `{
		"type": "FeatureCollection",
		"name": "26101_shelter",
		"crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:OGC:1.3:CRS84"}},
		"features": [
			{"type": "Feature", "id": 7, "bbox": [135.7, 35.0, 135.7, 35.0],
			 "geometry": {"type": "Point", "coordinates": [135.7, 35.0]},
			 "properties": {"code": 12345678901234567890, "ratio": 0.125, "note": "A&B <1>", "名称": "小学校"},
			 "source_ref": {"lod": 1}},
			{"type": "Feature", "id": "shelter-2", "geometry": null, "properties": null}
		]
	}`

	var fc FeatureCollection
	require.NoError(t, json.Unmarshal([]byte(in), &fc))
	require.Equal(t, 2, fc.Len())
	assert.Equal(t, json.Number("12345678901234567890"), fc.Features[0].Properties["code"])
	assert.Contains(t, fc.Foreign, "crs")
	assert.Contains(t, fc.Features[0].Foreign, "source_ref")

	out, err := Encode(&fc)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
	assert.Contains(t, string(out), `"id": 7`)
	assert.Contains(t, string(out), "12345678901234567890")
	assert.Contains(t, string(out), `"A&B <1>"`)
	assert.Contains(t, string(out), `"id": "shelter-2"`)
}

func TestFeatureCollection_ForeignMetadataKept(t *testing.T) {
	in := `{"type":"FeatureCollection","features":[],"metadata":{"source":"city","version":3,"updated":"2024-04-01"}}`

	var fc FeatureCollection
	require.NoError(t, json.Unmarshal([]byte(in), &fc))
	assert.Nil(t, fc.Metadata)
	require.Contains(t, fc.Foreign, "metadata")

	out, err := Encode(&fc)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestFeature_UnmarshalWrongType(t *testing.T) {
	var f Feature
	err := json.Unmarshal([]byte(`{"type":"Point","coordinates":[1,2]}`), &f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected Feature")
}
