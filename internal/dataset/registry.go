package dataset

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/kyoto-geodata/internal/catalog"
	"github.com/sells-group/kyoto-geodata/internal/geodata"
	"github.com/sells-group/kyoto-geodata/internal/osm"
	"github.com/sells-group/kyoto-geodata/internal/plateau"
)

// Deps are the collaborators shared by catalog-built datasets.
type Deps struct {
	Overpass     *osm.Client
	AreaName     string
	AdminLevel   string
	TimeoutSecs  int // Overpass server timeout when a dataset sets none
	GeometryMode osm.GeometryMode

	Archives *plateau.Archives
	Year     string

	Writer *geodata.Writer
}

// Registry maps dataset names to their implementations.
type Registry struct {
	datasets map[string]Dataset
	order    []string // insertion order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{datasets: make(map[string]Dataset)}
}

// FromCatalog creates a registry holding every catalog dataset: the OSM
// queries in catalog order, then each PLATEAU archive followed by the
// categories merged from it.
func FromCatalog(c *catalog.Catalog, deps Deps) (*Registry, error) {
	r := NewRegistry()

	for _, d := range c.OSM.Datasets {
		if err := r.Register(NewOSM(d, deps)); err != nil {
			return nil, err
		}
	}

	for _, a := range c.Plateau.Archives {
		if err := r.Register(NewArchive(a, deps)); err != nil {
			return nil, err
		}
	}
	for _, cat := range c.Plateau.Categories {
		if err := r.Register(NewCategory(cat, deps)); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register adds a dataset to the registry. Names must be unique.
func (r *Registry) Register(d Dataset) error {
	name := d.Name()
	if _, ok := r.datasets[name]; ok {
		return eris.Errorf("dataset: duplicate dataset %q", name)
	}
	r.datasets[name] = d
	r.order = append(r.order, name)
	return nil
}

// Get returns a dataset by name.
func (r *Registry) Get(name string) (Dataset, error) {
	d, ok := r.datasets[name]
	if !ok {
		return nil, eris.Errorf("dataset: unknown dataset %q (known: %s)", name, strings.Join(r.names(), ", "))
	}
	return d, nil
}

// Select returns datasets matching the given criteria.
// If source is non-empty, only datasets from that source are returned.
// If names is non-empty, only those named datasets are returned, in the
// order given; a name from another source is an error.
func (r *Registry) Select(source Source, names []string) ([]Dataset, error) {
	if len(names) > 0 {
		var result []Dataset
		for _, name := range names {
			d, err := r.Get(name)
			if err != nil {
				return nil, err
			}
			if source != "" && d.Source() != source {
				return nil, eris.Errorf("dataset: %q is a %s dataset, not %s", name, d.Source(), source)
			}
			result = append(result, d)
		}
		return result, nil
	}

	if source != "" {
		return r.BySource(source), nil
	}

	return r.All(), nil
}

// BySource returns all datasets from the given source, in registration order.
func (r *Registry) BySource(source Source) []Dataset {
	var result []Dataset
	for _, name := range r.order {
		if r.datasets[name].Source() == source {
			result = append(result, r.datasets[name])
		}
	}
	return result
}

// All returns all datasets in registration order.
func (r *Registry) All() []Dataset {
	result := make([]Dataset, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.datasets[name])
	}
	return result
}

// names returns all registered dataset names in registration order.
func (r *Registry) names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
