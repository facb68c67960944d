package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/kyoto-geodata/internal/catalog"
	"github.com/sells-group/kyoto-geodata/internal/dataset"
	"github.com/sells-group/kyoto-geodata/internal/synclog"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve fetched datasets for the web map",
	Long: `Serves the output directory over HTTP so the web map can load it:

  GET /health          liveness
  GET /api/datasets    catalog entries, file paths and last sync (?source=osm|plateau)
  GET /api/runs        recent sync log entries (?limit=N)
  GET /data/*          GeoJSON files under output.base_dir`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}

		var runs runStore
		if cfg.SyncLog.Path != "" {
			sl, err := synclog.Open(ctx, cfg.SyncLog.Path)
			if err != nil {
				return eris.Wrap(err, "serve")
			}
			defer sl.Close() //nolint:errcheck
			runs = sl
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(cfg.Output.BaseDir, cat, runs),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", cfg.Server.Port),
			zap.String("base_dir", cfg.Output.BaseDir),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// runStore reads the sync log. *synclog.Log satisfies it.
type runStore interface {
	List(ctx context.Context, limit int) ([]synclog.Entry, error)
	LastSuccess(ctx context.Context, dataset string) (*time.Time, error)
}

// datasetEntry is one row of GET /api/datasets.
type datasetEntry struct {
	Name       string     `json:"name"`
	Source     string     `json:"source"`
	Label      string     `json:"label"`
	File       string     `json:"file"`
	URL        string     `json:"url"`
	ArchiveURL string     `json:"archive_url,omitempty"`
	LastSynced *time.Time `json:"last_synced,omitempty"`
}

// newRouter builds the preview server routes. runs may be nil when the
// sync log is disabled.
func newRouter(baseDir string, cat *catalog.Catalog, runs runStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/datasets", func(w http.ResponseWriter, req *http.Request) {
		var source dataset.Source
		if s := req.URL.Query().Get("source"); s != "" {
			var err error
			if source, err = dataset.ParseSource(s); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
		}

		entries := catalogEntries(cat, source)
		if runs != nil {
			for i := range entries {
				last, err := runs.LastSuccess(req.Context(), entries[i].Name)
				if err != nil {
					zap.L().Error("last success lookup failed", zap.String("dataset", entries[i].Name), zap.Error(err))
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sync log lookup failed"})
					return
				}
				entries[i].LastSynced = last
			}
		}
		writeJSON(w, http.StatusOK, entries)
	})

	r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		limit := 50
		if s := req.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}
		if runs == nil {
			writeJSON(w, http.StatusOK, []synclog.Entry{})
			return
		}
		entries, err := runs.List(req.Context(), limit)
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list runs failed"})
			return
		}
		writeJSON(w, http.StatusOK, entries)
	})

	files := http.StripPrefix("/data/", http.FileServer(http.Dir(baseDir)))
	r.Get("/data/*", func(w http.ResponseWriter, req *http.Request) {
		files.ServeHTTP(w, req)
	})

	return r
}

// catalogEntries lists the datasets that produce files, optionally limited
// to one source.
func catalogEntries(cat *catalog.Catalog, source dataset.Source) []datasetEntry {
	out := []datasetEntry{}
	if source == "" || source == dataset.SourceOSM {
		for _, d := range cat.OSM.Datasets {
			out = append(out, datasetEntry{
				Name: d.Name, Source: string(dataset.SourceOSM), Label: d.Label,
				File: d.File, URL: "/data/" + d.File,
			})
		}
	}
	if source == "" || source == dataset.SourcePlateau {
		for _, c := range cat.Plateau.Categories {
			e := datasetEntry{
				Name: c.Name, Source: string(dataset.SourcePlateau), Label: c.Label,
				File: c.File, URL: "/data/" + c.File,
			}
			if a, ok := cat.Archive(c.Archive); ok {
				e.ArchiveURL = a.URL
			}
			out = append(out, e)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
