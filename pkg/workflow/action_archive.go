package workflow

import (
	"archive/tar"
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/api"
)

// ArchiveAction compresses the event's file into a timestamped archive in
// the destination directory.
type ArchiveAction struct {
	Destination  string
	Format       ArchiveFormat
	DeleteSource bool
}

func (a *ArchiveAction) Name() string { return "archive" }

func (a *ArchiveAction) Validate() error {
	if a.Destination == "" {
		return errx.With(api.ErrInvalidConfig, ": archive destination cannot be empty")
	}
	switch a.Format {
	case FormatTarGz, FormatZip, "":
	default:
		return errx.With(api.ErrInvalidConfig, ": unknown archive format %q", a.Format)
	}
	return nil
}

func (a *ArchiveAction) Execute(_ context.Context, event api.Event) (api.ActionResult, error) {
	source, ok := eventSubject(event)
	if !ok {
		return api.Fail("archive action only supports file creation/modification events"), nil
	}
	if _, err := os.Stat(source); err != nil {
		return api.Fail(fmt.Sprintf("source file does not exist: %s", source)), nil
	}

	if err := os.MkdirAll(a.Destination, 0o755); err != nil {
		return api.ActionResult{}, errx.Wrap(api.ErrActionFailed, err)
	}

	archivePath := a.archiveName(source)
	var err error
	switch a.Format {
	case FormatZip:
		err = createZip(source, archivePath)
	default:
		err = createTarGz(source, archivePath)
	}
	if err != nil {
		return api.ActionResult{}, errx.Wrap(api.ErrActionFailed, err)
	}

	if a.DeleteSource {
		if err := os.Remove(source); err != nil {
			return api.ActionResult{}, errx.Wrap(api.ErrActionFailed, err)
		}
	}
	return api.Succeed(fmt.Sprintf("archived to %s", archivePath)).WithPaths(archivePath), nil
}

func (a *ArchiveAction) archiveName(source string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "archive"
	}
	ext := "tar.gz"
	if a.Format == FormatZip {
		ext = "zip"
	}
	timestamp := time.Now().UTC().Format("20060102_150405")
	return filepath.Join(a.Destination, fmt.Sprintf("%s_%s.%s", stem, timestamp, ext))
}

func createTarGz(source, archivePath string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	info, err := os.Stat(source)
	if err != nil {
		return err
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.Base(source)
	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()
	if _, err := io.Copy(tw, in); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func createZip(source, archivePath string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	w, err := zw.Create(filepath.Base(source))
	if err != nil {
		return err
	}

	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()
	if _, err := io.Copy(w, in); err != nil {
		return err
	}
	return zw.Close()
}
