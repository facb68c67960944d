package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/kyoto-geodata/internal/config"
	"github.com/sells-group/kyoto-geodata/internal/dataset"
	"github.com/sells-group/kyoto-geodata/internal/osm"
	"github.com/sells-group/kyoto-geodata/internal/synclog"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"osm", "plateau", "all", "status", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "kyoto-geodata", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd  string
		flag string
		def  string
	}{
		{"osm", "datasets", ""},
		{"osm", "way-geometry", "first-point"},
		{"plateau", "force", "false"},
		{"plateau", "datasets", ""},
		{"all", "force", "false"},
		{"all", "way-geometry", "first-point"},
		{"status", "limit", "20"},
		{"serve", "port", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd+"/"+tt.flag, func(t *testing.T) {
			c, _, err := rootCmd.Find([]string{tt.cmd})
			require.NoError(t, err)
			f := c.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestParseNames(t *testing.T) {
	assert.Nil(t, parseNames(""))
	assert.Equal(t, []string{"restaurants", "transport"}, parseNames(" restaurants, ,transport "))
}

func TestParseGeometryFlag(t *testing.T) {
	require.NoError(t, osmCmd.Flags().Set("way-geometry", "shape"))
	t.Cleanup(func() { _ = osmCmd.Flags().Set("way-geometry", "first-point") })

	mode, err := parseGeometryFlag(osmCmd)
	require.NoError(t, err)
	assert.Equal(t, osm.GeometryShape, mode)

	require.NoError(t, osmCmd.Flags().Set("way-geometry", "polygon"))
	_, err = parseGeometryFlag(osmCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "polygon")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	got := truncate("geodata: write /srv/京都市/osm/観光寺院.geojson", 20)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "geodata: write /s...", got)
	assert.Equal(t, "京都市の避難所", truncate("京都市の避難所", 7))
	assert.Equal(t, "京都市の...", truncate("京都市の避難所一覧", 7))
}

func TestFormatSummary(t *testing.T) {
	var buf bytes.Buffer
	formatSummary(&buf, &dataset.Summary{
		Synced:   1,
		Failed:   1,
		Features: 12,
		Outcomes: []dataset.Outcome{
			{Name: "restaurants", Source: dataset.SourceOSM, Status: dataset.StatusSynced, Features: 12, Path: "data/kyoto/osm/restaurants.geojson"},
			{Name: "transport", Source: dataset.SourceOSM, Status: dataset.StatusFailed, Class: dataset.ClassTransport, Err: errors.New("http 504")},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "restaurants")
	assert.Contains(t, out, "data/kyoto/osm/restaurants.geojson")
	assert.Contains(t, out, "transport: http 504")
	assert.Contains(t, out, "Complete: 12 features written (1 synced, 0 empty, 1 failed)")
}

func TestFormatStatusEntries(t *testing.T) {
	started := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	done := started.Add(3 * time.Second)

	var buf bytes.Buffer
	formatStatusEntries(&buf, []synclog.Entry{
		{Dataset: "restaurants", Source: "osm", Status: synclog.StatusComplete, StartedAt: started, CompletedAt: &done, Features: 812},
		{Dataset: "related", Source: "plateau", Status: synclog.StatusFailed, StartedAt: started, CompletedAt: &done, ErrorClass: "transport", Error: "http 404"},
		{Dataset: "parks", Source: "plateau", Status: synclog.StatusRunning, StartedAt: started},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "DATASET")
	assert.Contains(t, lines[2], "812")
	assert.Contains(t, lines[2], "3s")
	assert.Contains(t, lines[3], "transport: http 404")
	assert.Contains(t, lines[4], "-")
}

func TestRunBatch_OSM(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if strings.Contains(r.URL.Query().Get("data"), `"shop"="supermarket"`) {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"elements":[{"type":"node","id":1,"lat":35.0,"lon":135.7,"tags":{"name":"x"}}]}`))
	}))
	defer srv.Close()

	base := t.TempDir()
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = &config.Config{
		Output:   config.OutputConfig{BaseDir: base},
		Overpass: config.OverpassConfig{URL: srv.URL, TimeoutSecs: 5, AreaName: "京都市", AdminLevel: "7"},
		Plateau:  config.PlateauConfig{TimeoutSecs: 5, Year: "2024"},
		Fetch:    config.FetchConfig{UserAgent: "test", MaxRetries: 1},
		SyncLog:  config.SyncLogConfig{Path: filepath.Join(base, "sync_log.db")},
	}

	var out bytes.Buffer
	osmCmd.SetOut(&out)
	t.Cleanup(func() { osmCmd.SetOut(nil) })

	err := runBatch(osmCmd, osm.GeometryFirstPoint, dataset.RunOpts{Source: dataset.SourceOSM})
	require.NoError(t, err)
	assert.Equal(t, int32(8), calls.Load())
	assert.Contains(t, out.String(), "Complete: 7 features written (7 synced, 0 empty, 1 failed)")
	assert.FileExists(t, filepath.Join(base, "osm", "restaurants.geojson"))
	assert.NoFileExists(t, filepath.Join(base, "osm", "supermarkets.geojson"))
}

func TestRunBatch_InvalidConfig(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = &config.Config{Fetch: config.FetchConfig{MaxRetries: 1}}

	err := runBatch(osmCmd, osm.GeometryFirstPoint, dataset.RunOpts{Source: dataset.SourceOSM})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.base_dir is required")
}

func TestRunBatch_DatasetFromOtherSource(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"elements":[]}`))
	}))
	defer srv.Close()

	base := t.TempDir()
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = &config.Config{
		Output:   config.OutputConfig{BaseDir: base},
		Overpass: config.OverpassConfig{URL: srv.URL, TimeoutSecs: 5, AreaName: "京都市", AdminLevel: "7"},
		Plateau:  config.PlateauConfig{TimeoutSecs: 5, Year: "2024"},
		Fetch:    config.FetchConfig{UserAgent: "test", MaxRetries: 1},
	}

	var out bytes.Buffer
	osmCmd.SetOut(&out)
	t.Cleanup(func() { osmCmd.SetOut(nil) })

	err := runBatch(osmCmd, osm.GeometryFirstPoint, dataset.RunOpts{
		Source: dataset.SourceOSM,
		Names:  []string{"restaurants", "shelters"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"shelters" is a plateau dataset, not osm`)
	assert.Equal(t, int32(0), calls.Load())
}

func TestLoadCatalog(t *testing.T) {
	c, err := loadCatalog(&config.Config{})
	require.NoError(t, err)
	assert.Len(t, c.OSM.Datasets, 8)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
osm:
  datasets:
    - name: bakeries
      selectors:
        - kinds: [node]
          key: shop
          values: [bakery]
`), 0o644))

	c, err = loadCatalog(&config.Config{Catalog: config.CatalogConfig{Path: path}})
	require.NoError(t, err)
	require.Len(t, c.OSM.Datasets, 1)
	assert.Equal(t, "bakeries", c.OSM.Datasets[0].Name)
	assert.Empty(t, c.Plateau.Categories)

	_, err = loadCatalog(&config.Config{Catalog: config.CatalogConfig{Path: filepath.Join(t.TempDir(), "missing.yaml")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog: read")
}
