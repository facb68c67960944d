package osm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryBuilder_Build(t *testing.T) {
	q := NewQueryBuilder("京都市", "7").
		WithTimeout(120).
		With(TagFilter{Key: "amenity", Values: []string{"cafe"}}, NodeType, WayType).
		Build()

	want := "[out:json][timeout:120];\n" +
		"area[\"name\"=\"京都市\"][\"admin_level\"=\"7\"]->.searchArea;\n" +
		"(\n" +
		"  node[\"amenity\"=\"cafe\"](area.searchArea);\n" +
		"  way[\"amenity\"=\"cafe\"](area.searchArea);\n" +
		");\n" +
		"out body;\n>;\nout skel qt;\n"
	assert.Equal(t, want, q)
}

func TestQueryBuilder_DefaultTimeout(t *testing.T) {
	q := NewQueryBuilder("京都市", "7").WithTimeout(0).Build()
	assert.True(t, strings.HasPrefix(q, "[out:json][timeout:180];\n"))
	assert.Contains(t, q, "(\n);\n")
}

func TestQueryBuilder_TagFilterForms(t *testing.T) {
	tests := []struct {
		name string
		tag  TagFilter
		want string
	}{
		{"key only", TagFilter{Key: "tourism"}, `node["tourism"](area.searchArea);`},
		{"one value", TagFilter{Key: "shop", Values: []string{"convenience"}}, `node["shop"="convenience"](area.searchArea);`},
		{"alternation", TagFilter{Key: "tourism", Values: []string{"hotel", "hostel", "guest_house"}}, `node["tourism"~"hotel|hostel|guest_house"](area.searchArea);`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueryBuilder("A", "7").With(tt.tag, NodeType).Build()
			assert.Contains(t, q, tt.want)
		})
	}
}

func TestQueryBuilder_QuotesAreEscaped(t *testing.T) {
	q := NewQueryBuilder(`Say "hi"\`, "7").Build()
	assert.Contains(t, q, `area["name"="Say \"hi\"\\"]`)
}
