package osm

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/kyoto-geodata/internal/geodata"
)

// GeometryMode selects how a way is represented.
type GeometryMode int

const (
	// GeometryFirstPoint places a way at its first resolvable node. The
	// way's shape is discarded; output is always Point features.
	GeometryFirstPoint GeometryMode = iota
	// GeometryShape keeps a way's resolved nodes: a LineString, or a
	// Polygon when the way is closed. A way with a single resolvable node
	// is still a Point.
	GeometryShape
)

// ParseGeometryMode converts "first-point" or "shape" into a GeometryMode.
func ParseGeometryMode(s string) (GeometryMode, bool) {
	switch s {
	case "", "first-point":
		return GeometryFirstPoint, true
	case "shape":
		return GeometryShape, true
	default:
		return 0, false
	}
}

// String returns the flag spelling of the mode.
func (m GeometryMode) String() string {
	if m == GeometryShape {
		return "shape"
	}
	return "first-point"
}

// Convert flattens Overpass elements into a FeatureCollection.
//
// Every node is indexed by id first. Then, in input order, each tagged node
// becomes a Point at (lon, lat) and each tagged way is resolved through the
// index, dropping ids that are not present; a way with no resolvable nodes
// emits nothing. Untagged elements and relations emit nothing. A "name:ja"
// tag overwrites "name" in the emitted properties.
//
// A node that has to be placed but lacks coordinates, or an element
// without a type, yields a *MalformedElementError.
func Convert(elements []Element, mode GeometryMode) (*geodata.FeatureCollection, error) {
	index := make(map[int64]int, len(elements))
	for i, el := range elements {
		if el.Type == "" {
			return nil, &MalformedElementError{Index: i, ID: el.ID, Reason: "missing type"}
		}
		if el.Type == NodeType {
			index[el.ID] = i
		}
	}

	fc := &geodata.FeatureCollection{Features: []*geodata.Feature{}}
	for i, el := range elements {
		if len(el.Tags) == 0 {
			continue
		}

		switch el.Type {
		case NodeType:
			if !el.hasCoords() {
				return nil, &MalformedElementError{Index: i, ID: el.ID, Type: el.Type, Reason: "missing lat/lon"}
			}
			fc.Features = append(fc.Features, geodata.NewPointFeature(*el.Lon, *el.Lat, properties(el.Tags)))

		case WayType:
			coords, err := resolveWay(elements, index, el.Nodes)
			if err != nil {
				return nil, err
			}
			if len(coords) == 0 {
				continue
			}
			fc.Features = append(fc.Features, &geodata.Feature{
				Geometry:   wayGeometry(el.Nodes, coords, mode),
				Properties: properties(el.Tags),
			})
		}
	}

	return fc, nil
}

// resolveWay looks up each node id in order and returns the coordinates of
// those present in the index.
func resolveWay(elements []Element, index map[int64]int, ids []int64) ([]float64, error) {
	flat := make([]float64, 0, 2*len(ids))
	for _, id := range ids {
		pos, ok := index[id]
		if !ok {
			continue
		}
		node := elements[pos]
		if !node.hasCoords() {
			return nil, &MalformedElementError{Index: pos, ID: node.ID, Type: node.Type, Reason: "missing lat/lon"}
		}
		flat = append(flat, *node.Lon, *node.Lat)
	}
	return flat, nil
}

func wayGeometry(ids []int64, flat []float64, mode GeometryMode) geom.T {
	n := len(flat) / 2
	if mode == GeometryFirstPoint || n == 1 {
		return geom.NewPointFlat(geom.XY, flat[:2])
	}

	closed := ids[0] == ids[len(ids)-1] &&
		flat[0] == flat[len(flat)-2] && flat[1] == flat[len(flat)-1]
	if closed && n >= 4 {
		return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
	}
	return geom.NewLineStringFlat(geom.XY, flat)
}

// properties copies tags into a feature property map, preferring the
// Japanese name.
func properties(tags map[string]string) map[string]any {
	props := make(map[string]any, len(tags)+1)
	for k, v := range tags {
		props[k] = v
	}
	if ja, ok := tags["name:ja"]; ok {
		props["name"] = ja
	}
	return props
}

// ConvertResponse is Convert over a decoded Overpass response.
func ConvertResponse(resp *Response, mode GeometryMode) (*geodata.FeatureCollection, error) {
	if resp == nil {
		return nil, &MalformedElementError{Index: -1, Reason: "empty response"}
	}
	return Convert(resp.Elements, mode)
}
