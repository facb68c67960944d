// Package plateau merges PLATEAU derived GeoJSON files into one collection
// per semantic category and manages the archives they come from.
package plateau

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/kyoto-geodata/internal/geodata"
)

// Source is the data_source value stamped on every merged feature.
const Source = "PLATEAU"

// Property keys written or read by the normalizer.
const (
	KeyDataSource = "data_source"
	KeyCategory   = "category"
	KeyName       = "name"
	KeyNameJa     = "名称"
)

// Category identifies one merge target.
type Category struct {
	Name  string // key stamped into each feature's "category"
	Label string // human-readable label recorded in metadata
	Year  string
}

// MergeCategory reads files in order and concatenates their features into
// one collection. Each feature gets data_source and category overwritten,
// and 名称 is copied to name when name is absent. The result carries
// metadata with the total count.
//
// It returns nil and no error when there is nothing to write: no files, or
// files holding no features.
func MergeCategory(cat Category, files []string) (*geodata.FeatureCollection, error) {
	var features []*geodata.Feature
	for _, path := range files {
		fc, err := geodata.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "plateau: merge %s", cat.Name)
		}
		for _, f := range fc.Features {
			if f == nil {
				continue
			}
			Normalize(f, cat.Name)
			features = append(features, f)
		}
		zap.L().Debug("plateau: merged file",
			zap.String("category", cat.Name),
			zap.String("path", path),
			zap.Int("features", fc.Len()),
		)
	}

	if len(features) == 0 {
		return nil, nil
	}

	return &geodata.FeatureCollection{
		Features: features,
		Metadata: &geodata.Metadata{
			Source:   Source,
			Year:     cat.Year,
			Category: cat.Label,
			Count:    len(features),
		},
	}, nil
}

// Normalize stamps provenance onto f's properties in place.
func Normalize(f *geodata.Feature, category string) {
	if f.Properties == nil {
		f.Properties = make(map[string]interface{})
	}
	f.Properties[KeyDataSource] = Source
	f.Properties[KeyCategory] = category
	if _, ok := f.Properties[KeyName]; !ok {
		if ja, ok := f.Properties[KeyNameJa]; ok {
			f.Properties[KeyName] = ja
		}
	}
}
