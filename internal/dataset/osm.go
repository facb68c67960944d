package dataset

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/kyoto-geodata/internal/catalog"
	"github.com/sells-group/kyoto-geodata/internal/geodata"
	"github.com/sells-group/kyoto-geodata/internal/osm"
)

// OSM fetches one Overpass query and writes its elements as features.
type OSM struct {
	def        catalog.OSMDataset
	client     *osm.Client
	areaName   string
	adminLevel string
	timeout    int
	mode       osm.GeometryMode
	writer     *geodata.Writer
}

// NewOSM builds the dataset for a catalog entry.
func NewOSM(def catalog.OSMDataset, deps Deps) *OSM {
	timeout := def.TimeoutSecs
	if timeout <= 0 {
		timeout = deps.TimeoutSecs
	}
	return &OSM{
		def:        def,
		client:     deps.Overpass,
		areaName:   deps.AreaName,
		adminLevel: deps.AdminLevel,
		timeout:    timeout,
		mode:       deps.GeometryMode,
		writer:     deps.Writer,
	}
}

// Name implements Dataset.
func (d *OSM) Name() string { return d.def.Name }

// Source implements Dataset.
func (d *OSM) Source() Source { return SourceOSM }

// Query returns the Overpass QL text for the dataset.
func (d *OSM) Query() string {
	b := osm.NewQueryBuilder(d.areaName, d.adminLevel).WithTimeout(d.timeout)
	for _, s := range d.def.Selectors {
		types := make([]osm.ElementType, 0, len(s.Kinds))
		for _, k := range s.Kinds {
			types = append(types, osm.ElementType(k))
		}
		b.With(osm.TagFilter{Key: s.Key, Values: s.Values}, types...)
	}
	return b.Build()
}

// Sync implements Dataset. The file is written even when the query
// matched nothing.
func (d *OSM) Sync(ctx context.Context, _ SyncOpts) (*Result, error) {
	log := zap.L().With(zap.String("component", "dataset.osm"), zap.String("dataset", d.def.Name))

	resp, err := d.client.Query(ctx, d.Query())
	if err != nil {
		return nil, eris.Wrapf(err, "osm: fetch %s", d.def.Name)
	}
	if resp.Remark != "" {
		log.Warn("overpass remark, result may be incomplete", zap.String("remark", resp.Remark))
	}

	fc, err := osm.ConvertResponse(resp, d.mode)
	if err != nil {
		return nil, eris.Wrapf(err, "osm: convert %s", d.def.Name)
	}

	path, err := d.writer.Write(d.def.File, fc)
	if err != nil {
		return nil, &WriteError{Path: d.writer.Path(d.def.File), Err: err}
	}

	log.Debug("converted elements",
		zap.Int("elements", len(resp.Elements)),
		zap.Int("features", fc.Len()),
	)
	return &Result{Features: fc.Len(), Path: path}, nil
}
