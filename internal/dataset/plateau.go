package dataset

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/kyoto-geodata/internal/catalog"
	"github.com/sells-group/kyoto-geodata/internal/geodata"
	"github.com/sells-group/kyoto-geodata/internal/plateau"
)

// Archive makes a PLATEAU archive available on disk for the categories
// that read from it.
type Archive struct {
	def      catalog.Archive
	archives *plateau.Archives
}

// NewArchive builds the dataset for a catalog archive.
func NewArchive(def catalog.Archive, deps Deps) *Archive {
	return &Archive{def: def, archives: deps.Archives}
}

// Name implements Dataset.
func (d *Archive) Name() string { return d.def.Name }

// Source implements Dataset.
func (d *Archive) Source() Source { return SourcePlateau }

// Sync implements Dataset. The result path is the extraction directory;
// archives carry no features of their own.
func (d *Archive) Sync(ctx context.Context, opts SyncOpts) (*Result, error) {
	if _, err := d.archives.Ensure(ctx, d.def.Name, d.def.URL, opts.Force); err != nil {
		return nil, err
	}
	return &Result{Path: d.archives.Dir(d.def.Name)}, nil
}

// Category merges the files of one PLATEAU category.
type Category struct {
	def      catalog.Category
	year     string
	archives *plateau.Archives
	writer   *geodata.Writer
}

// NewCategory builds the dataset for a catalog category.
func NewCategory(def catalog.Category, deps Deps) *Category {
	return &Category{def: def, year: deps.Year, archives: deps.Archives, writer: deps.Writer}
}

// Name implements Dataset.
func (d *Category) Name() string { return d.def.Name }

// Source implements Dataset.
func (d *Category) Source() Source { return SourcePlateau }

// Sync implements Dataset. A category with no matching files writes
// nothing and succeeds with an empty result.
func (d *Category) Sync(ctx context.Context, _ SyncOpts) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("component", "dataset.plateau"), zap.String("category", d.def.Name))

	files, err := plateau.Discover(d.archives.Dir(d.def.Archive), d.def.Pattern)
	if err != nil {
		return nil, err
	}

	fc, err := plateau.MergeCategory(plateau.Category{Name: d.def.Name, Label: d.def.Label, Year: d.year}, files)
	if err != nil {
		return nil, err
	}
	if fc == nil {
		log.Info("no matching features", zap.String("pattern", d.def.Pattern), zap.Int("files", len(files)))
		return &Result{}, nil
	}

	path, err := d.writer.Write(d.def.File, fc)
	if err != nil {
		return nil, &WriteError{Path: d.writer.Path(d.def.File), Err: err}
	}
	return &Result{Features: fc.Len(), Path: path}, nil
}
