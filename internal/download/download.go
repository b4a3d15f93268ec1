package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/trimlay/pkg/util"
)

// FileDownloader delivers finished outputs into a directory
type FileDownloader struct {
	dir    string
	logger zerolog.Logger

	mu   sync.Mutex
	last string
}

// NewFileDownloader creates a downloader writing into dir
func NewFileDownloader(logger zerolog.Logger, dir string) *FileDownloader {
	return &FileDownloader{
		dir:    dir,
		logger: logger.With().Str("component", "download").Logger(),
	}
}

// Download implements editor.Downloader. The file is written beside its
// destination and renamed so readers never observe a partial output.
func (d *FileDownloader) Download(ctx context.Context, name string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return fmt.Errorf("invalid output name %q", name)
	}

	if err := util.EnsureDir(d.dir); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, "."+base+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	dest := filepath.Join(d.dir, base)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("move output into place: %w", err)
	}

	d.mu.Lock()
	d.last = dest
	d.mu.Unlock()

	d.logger.Info().
		Str("path", dest).
		Str("size", humanize.Bytes(uint64(len(blob)))).
		Msg("output saved")

	return nil
}

// LastPath is the most recently written output, empty before the first one
func (d *FileDownloader) LastPath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}
