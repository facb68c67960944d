// Package catalog holds the list of datasets the fetcher knows how to build:
// Overpass queries for OpenStreetMap POIs and the PLATEAU archives and
// categories merged from them.
package catalog

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

// Catalog is the top-level dataset catalog.
type Catalog struct {
	OSM     OSMSection     `yaml:"osm"`
	Plateau PlateauSection `yaml:"plateau"`
}

// OSMSection lists the Overpass datasets in run order.
type OSMSection struct {
	Datasets []OSMDataset `yaml:"datasets"`
}

// OSMDataset is one Overpass query and the file it is written to.
type OSMDataset struct {
	Name        string     `yaml:"name"`
	Label       string     `yaml:"label"`
	File        string     `yaml:"file"`
	TimeoutSecs int        `yaml:"timeout_secs"`
	Selectors   []Selector `yaml:"selectors"`
}

// Selector matches elements of the listed kinds by tag. No values matches
// any element carrying Key.
type Selector struct {
	Kinds  []string `yaml:"kinds"`
	Key    string   `yaml:"key"`
	Values []string `yaml:"values,omitempty"`
}

// PlateauSection lists the PLATEAU archives and the categories merged out
// of them.
type PlateauSection struct {
	Archives   []Archive  `yaml:"archives"`
	Categories []Category `yaml:"categories"`
}

// Archive is a remote ZIP of per-locality GeoJSON files.
type Archive struct {
	Name  string `yaml:"name"`
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// Category merges every file in Archive matching Pattern into File.
type Category struct {
	Name    string `yaml:"name"`
	Label   string `yaml:"label"`
	Archive string `yaml:"archive"`
	Pattern string `yaml:"pattern"`
	File    string `yaml:"file"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(embedded)
}

// LoadFile parses a catalog from disk in place of the embedded one.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document. Missing output files
// default to osm/<name>.geojson and plateau/<name>.geojson.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "catalog: parse")
	}

	for i := range c.OSM.Datasets {
		if c.OSM.Datasets[i].File == "" {
			c.OSM.Datasets[i].File = filepath.ToSlash(filepath.Join("osm", c.OSM.Datasets[i].Name+".geojson"))
		}
	}
	for i := range c.Plateau.Categories {
		if c.Plateau.Categories[i].File == "" {
			c.Plateau.Categories[i].File = filepath.ToSlash(filepath.Join("plateau", c.Plateau.Categories[i].Name+".geojson"))
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks names are present and unique, every OSM dataset has at
// least one well-formed selector, and every category points at a known
// archive with a pattern. All problems are reported together.
func (c *Catalog) Validate() error {
	var errs []string
	names := make(map[string]bool)

	seen := func(kind, name string) {
		if name == "" {
			errs = append(errs, kind+" with empty name")
			return
		}
		if names[kind+"/"+name] {
			errs = append(errs, "duplicate "+kind+" "+name)
		}
		names[kind+"/"+name] = true
	}

	for _, d := range c.OSM.Datasets {
		seen("osm dataset", d.Name)
		if len(d.Selectors) == 0 {
			errs = append(errs, "osm dataset "+d.Name+" has no selectors")
		}
		for _, s := range d.Selectors {
			if s.Key == "" {
				errs = append(errs, "osm dataset "+d.Name+" has a selector without key")
			}
			if len(s.Kinds) == 0 {
				errs = append(errs, "osm dataset "+d.Name+" selector "+s.Key+" has no kinds")
			}
			for _, k := range s.Kinds {
				switch k {
				case "node", "way", "relation":
				default:
					errs = append(errs, "osm dataset "+d.Name+" has unknown kind "+k)
				}
			}
		}
	}

	for _, a := range c.Plateau.Archives {
		seen("plateau archive", a.Name)
		if a.URL == "" {
			errs = append(errs, "plateau archive "+a.Name+" has no url")
		}
	}
	for _, cat := range c.Plateau.Categories {
		seen("plateau category", cat.Name)
		if cat.Pattern == "" {
			errs = append(errs, "plateau category "+cat.Name+" has no pattern")
		} else if _, err := filepath.Match(cat.Pattern, ""); err != nil {
			errs = append(errs, "plateau category "+cat.Name+" has a bad pattern")
		}
		if !names["plateau archive/"+cat.Archive] {
			errs = append(errs, "plateau category "+cat.Name+" references unknown archive "+cat.Archive)
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("catalog: %s", strings.Join(errs, "; "))
	}
	return nil
}

// OSMDataset returns the dataset with the given name.
func (c *Catalog) OSMDataset(name string) (OSMDataset, bool) {
	for _, d := range c.OSM.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return OSMDataset{}, false
}

// Archive returns the PLATEAU archive with the given name.
func (c *Catalog) Archive(name string) (Archive, bool) {
	for _, a := range c.Plateau.Archives {
		if a.Name == name {
			return a, true
		}
	}
	return Archive{}, false
}
