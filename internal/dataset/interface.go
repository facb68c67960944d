// Package dataset runs the configured OpenStreetMap and PLATEAU datasets
// one after another, recording each outcome in the sync log.
package dataset

import (
	"context"

	"github.com/rotisserie/eris"
)

// Source groups datasets by where their data comes from.
type Source string

// Known sources.
const (
	SourceOSM     Source = "osm"
	SourcePlateau Source = "plateau"
)

// ParseSource converts "osm" or "plateau" into a Source.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceOSM, SourcePlateau:
		return Source(s), nil
	default:
		return "", eris.Errorf("unknown source: %q (valid: osm, plateau)", s)
	}
}

// SyncOpts are per-run options handed to every dataset.
type SyncOpts struct {
	Force bool // re-download archives that are already extracted
}

// Result is the outcome of one successful dataset sync. Path is empty
// when nothing was written.
type Result struct {
	Features int
	Path     string
}

// Dataset is one unit of work in a batch: fetch, convert, write.
type Dataset interface {
	// Name returns the unique dataset identifier.
	Name() string

	// Source returns the data source the dataset belongs to.
	Source() Source

	// Sync fetches, converts and writes the dataset.
	Sync(ctx context.Context, opts SyncOpts) (*Result, error)
}
