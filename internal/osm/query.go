package osm

import (
	"fmt"
	"strings"
)

// TagFilter matches elements by tag. No values matches any element that has
// the key, one value an exact match, several values an alternation.
type TagFilter struct {
	Key    string
	Values []string
}

// ElementFilter selects elements of one kind by tag.
type ElementFilter struct {
	Type ElementType
	Tag  TagFilter
}

// QueryBuilder builds Overpass QL queries scoped to a named administrative
// area. Output includes the matched elements with tags followed by the
// coordinates of every node they reference.
type QueryBuilder struct {
	timeout    int
	areaName   string
	adminLevel string
	filters    []ElementFilter
}

// NewQueryBuilder creates a builder for the area with the given name and
// admin_level.
func NewQueryBuilder(areaName, adminLevel string) *QueryBuilder {
	return &QueryBuilder{
		timeout:    180,
		areaName:   areaName,
		adminLevel: adminLevel,
	}
}

// WithTimeout sets the server-side query timeout in seconds.
func (b *QueryBuilder) WithTimeout(seconds int) *QueryBuilder {
	if seconds > 0 {
		b.timeout = seconds
	}
	return b
}

// With adds one filter per element type for tag.
func (b *QueryBuilder) With(tag TagFilter, types ...ElementType) *QueryBuilder {
	for _, t := range types {
		b.filters = append(b.filters, ElementFilter{Type: t, Tag: tag})
	}
	return b
}

// Build generates the query string.
func (b *QueryBuilder) Build() string {
	var q strings.Builder

	fmt.Fprintf(&q, "[out:json][timeout:%d];\n", b.timeout)
	fmt.Fprintf(&q, "area[%s=%s][%s=%s]->.searchArea;\n",
		quote("name"), quote(b.areaName), quote("admin_level"), quote(b.adminLevel))

	q.WriteString("(\n")
	for _, f := range b.filters {
		fmt.Fprintf(&q, "  %s%s(area.searchArea);\n", f.Type, buildTagFilter(f.Tag))
	}
	q.WriteString(");\n")

	// Tagged elements, then the skeleton of every node a way points at.
	q.WriteString("out body;\n>;\nout skel qt;\n")

	return q.String()
}

func buildTagFilter(f TagFilter) string {
	switch len(f.Values) {
	case 0:
		return fmt.Sprintf("[%s]", quote(f.Key))
	case 1:
		return fmt.Sprintf("[%s=%s]", quote(f.Key), quote(f.Values[0]))
	default:
		return fmt.Sprintf("[%s~%s]", quote(f.Key), quote(strings.Join(f.Values, "|")))
	}
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}
