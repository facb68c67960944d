// Package osm converts OpenStreetMap data returned by the Overpass API into
// point features and builds the Overpass QL queries that fetch it.
package osm

import "fmt"

// ElementType is the kind of an Overpass element.
type ElementType string

// Element kinds the converter understands. Relations are fetched by some
// queries but carry no geometry of their own and are skipped.
const (
	NodeType     ElementType = "node"
	WayType      ElementType = "way"
	RelationType ElementType = "relation"
)

// Element is one entry of an Overpass JSON "elements" array. Lat and Lon
// are pointers so a node without coordinates can be told apart from one at
// (0, 0).
type Element struct {
	Type  ElementType       `json:"type"`
	ID    int64             `json:"id"`
	Lat   *float64          `json:"lat,omitempty"`
	Lon   *float64          `json:"lon,omitempty"`
	Nodes []int64           `json:"nodes,omitempty"`
	Tags  map[string]string `json:"tags,omitempty"`
}

// Response is the Overpass JSON envelope.
type Response struct {
	Version   float64   `json:"version,omitempty"`
	Generator string    `json:"generator,omitempty"`
	Remark    string    `json:"remark,omitempty"`
	Elements  []Element `json:"elements"`
}

// MalformedElementError reports an element the converter cannot use, such
// as a node without coordinates. Index is the element's position in the
// input, or -1 when the whole response is unusable.
type MalformedElementError struct {
	Index  int
	ID     int64
	Type   ElementType
	Reason string
}

func (e *MalformedElementError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("osm: malformed response: %s", e.Reason)
	}
	return fmt.Sprintf("osm: malformed %s %d at index %d: %s", e.Type, e.ID, e.Index, e.Reason)
}

func (e Element) hasCoords() bool {
	return e.Lat != nil && e.Lon != nil
}
