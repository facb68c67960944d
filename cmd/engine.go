package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/kyoto-geodata/internal/catalog"
	"github.com/sells-group/kyoto-geodata/internal/config"
	"github.com/sells-group/kyoto-geodata/internal/dataset"
	"github.com/sells-group/kyoto-geodata/internal/fetcher"
	"github.com/sells-group/kyoto-geodata/internal/geodata"
	"github.com/sells-group/kyoto-geodata/internal/osm"
	"github.com/sells-group/kyoto-geodata/internal/plateau"
	"github.com/sells-group/kyoto-geodata/internal/synclog"
)

// batchEnv bundles everything a batch command needs.
type batchEnv struct {
	Registry *dataset.Registry
	Engine   *dataset.Engine
	SyncLog  *synclog.Log
}

// Close releases the sync log, if one was opened.
func (e *batchEnv) Close() {
	if e.SyncLog != nil {
		_ = e.SyncLog.Close()
	}
}

// newFetchers builds the Overpass and PLATEAU fetchers. Overpass requests
// are spaced by the configured pause; archive downloads are not limited.
func newFetchers(c *config.Config) (overpass, archives fetcher.Fetcher) {
	overpass = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  c.Fetch.UserAgent,
		Timeout:    c.Overpass.Timeout(),
		MaxRetries: c.Fetch.MaxRetries,
		RateLimiters: map[string]*rate.Limiter{
			fetcher.HostOf(c.Overpass.URL): fetcher.PauseLimiter(c.Overpass.Pause()),
		},
	})
	archives = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  c.Fetch.UserAgent,
		Timeout:    c.Plateau.Timeout(),
		MaxRetries: c.Fetch.MaxRetries,
	})
	return overpass, archives
}

// loadCatalog reads catalog.path when set and the built-in catalog
// otherwise.
func loadCatalog(c *config.Config) (*catalog.Catalog, error) {
	if c.Catalog.Path != "" {
		return catalog.LoadFile(c.Catalog.Path)
	}
	return catalog.Load()
}

// newBatchEnv validates configuration and wires the registry and engine.
func newBatchEnv(ctx context.Context, c *config.Config, mode osm.GeometryMode) (*batchEnv, error) {
	if err := c.Validate("fetch"); err != nil {
		return nil, err
	}

	cat, err := loadCatalog(c)
	if err != nil {
		return nil, err
	}

	overpassFetcher, archiveFetcher := newFetchers(c)
	deps := dataset.Deps{
		Overpass:     osm.NewClient(c.Overpass.URL, overpassFetcher),
		AreaName:     c.Overpass.AreaName,
		AdminLevel:   c.Overpass.AdminLevel,
		TimeoutSecs:  c.Overpass.TimeoutSecs,
		GeometryMode: mode,
		Archives:     plateau.NewArchives(filepath.Join(c.Output.BaseDir, "plateau"), archiveFetcher),
		Year:         c.Plateau.Year,
		Writer:       geodata.NewWriter(c.Output.BaseDir),
	}

	reg, err := dataset.FromCatalog(cat, deps)
	if err != nil {
		return nil, err
	}

	env := &batchEnv{Registry: reg}
	var recorder dataset.SyncLog
	if c.SyncLog.Path != "" {
		sl, err := synclog.Open(ctx, c.SyncLog.Path)
		if err != nil {
			return nil, err
		}
		env.SyncLog = sl
		recorder = sl
	}
	env.Engine = dataset.NewEngine(reg, recorder)
	return env, nil
}

// runBatch runs the engine and prints the summary. Individual dataset
// failures are reported but do not make the command fail.
func runBatch(cmd *cobra.Command, mode osm.GeometryMode, opts dataset.RunOpts) error {
	ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := zap.L().With(zap.String("command", cmd.Name()))

	env, err := newBatchEnv(ctx, cfg, mode)
	if err != nil {
		return eris.Wrap(err, cmd.Name())
	}
	defer env.Close()

	log.Info("starting batch",
		zap.String("source", string(opts.Source)),
		zap.Strings("datasets", opts.Names),
		zap.Bool("force", opts.Force),
		zap.String("way_geometry", mode.String()),
		zap.String("base_dir", cfg.Output.BaseDir),
	)

	summary, err := env.Engine.Run(ctx, opts)
	if summary != nil {
		formatSummary(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		return eris.Wrap(err, cmd.Name())
	}
	return nil
}

// formatSummary writes one line per dataset and the cumulative total.
func formatSummary(out io.Writer, s *dataset.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATASET\tSOURCE\tSTATUS\tFEATURES\tELAPSED\tDETAIL")
	for _, o := range s.Outcomes {
		detail := o.Path
		if o.Err != nil {
			detail = string(o.Class) + ": " + truncate(o.Err.Error(), 80)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			o.Name, o.Source, o.Status, o.Features, o.Elapsed.Round(time.Millisecond), detail)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "Complete: %d features written (%d synced, %d empty, %d failed)\n",
		s.Features, s.Synced, s.Empty, s.Failed)
}

// parseNames splits a comma-separated flag value, dropping blanks.
func parseNames(s string) []string {
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func parseGeometryFlag(cmd *cobra.Command) (osm.GeometryMode, error) {
	s, _ := cmd.Flags().GetString("way-geometry")
	mode, ok := osm.ParseGeometryMode(s)
	if !ok {
		return 0, eris.Errorf("unknown --way-geometry %q (valid: first-point, shape)", s)
	}
	return mode, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
