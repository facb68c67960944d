package plateau

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/kyoto-geodata/internal/fetcher"
)

// Archives downloads PLATEAU ZIP archives and unpacks them under
// <dir>/<name>/.
type Archives struct {
	dir     string
	fetcher fetcher.Fetcher
}

// NewArchives returns an archive manager rooted at dir.
func NewArchives(dir string, f fetcher.Fetcher) *Archives {
	return &Archives{dir: dir, fetcher: f}
}

// Dir returns the extraction directory for the named archive.
func (a *Archives) Dir(name string) string {
	return filepath.Join(a.dir, name)
}

// Ensure makes the named archive available on disk. An existing extraction
// directory is reused unless force is set. The archive is unpacked into a
// staging sibling and swapped in only once extraction succeeds, so a failed
// forced refresh keeps the previous extraction. The downloaded ZIP is
// removed afterwards. It reports whether a download happened.
func (a *Archives) Ensure(ctx context.Context, name, url string, force bool) (bool, error) {
	log := zap.L().With(zap.String("component", "plateau"), zap.String("archive", name))
	dest := a.Dir(name)

	info, err := os.Stat(dest)
	exists := err == nil && info.IsDir()
	if exists && !force {
		log.Info("archive already extracted", zap.String("dir", dest))
		return false, nil
	}

	zipPath := filepath.Join(a.dir, name+".zip")
	log.Info("downloading archive", zap.String("url", url))
	n, err := a.fetcher.DownloadToFile(ctx, url, zipPath)
	if err != nil {
		_ = os.Remove(zipPath)
		return false, eris.Wrapf(err, "plateau: download %s", name)
	}
	defer os.Remove(zipPath) //nolint:errcheck

	staging := dest + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return false, eris.Wrapf(err, "plateau: clear %s", staging)
	}
	files, err := fetcher.ExtractZIP(zipPath, staging)
	if err != nil {
		_ = os.RemoveAll(staging)
		return false, eris.Wrapf(err, "plateau: extract %s", name)
	}

	if err := swapDir(staging, dest, exists); err != nil {
		_ = os.RemoveAll(staging)
		return false, eris.Wrapf(err, "plateau: replace %s", dest)
	}

	log.Info("archive extracted",
		zap.Int64("bytes", n),
		zap.Int("files", len(files)),
		zap.String("dir", dest),
	)
	return true, nil
}

// swapDir moves staging into place at dest. A previous dest is set aside
// first and restored if the final rename fails.
func swapDir(staging, dest string, exists bool) error {
	if !exists {
		return os.Rename(staging, dest)
	}

	old := dest + ".old"
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	if err := os.Rename(dest, old); err != nil {
		return err
	}
	if err := os.Rename(staging, dest); err != nil {
		_ = os.Rename(old, dest)
		return err
	}
	return os.RemoveAll(old)
}
