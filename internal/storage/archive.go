package storage

import (
	"archive/tar"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// ArchiveModTime is stamped on every tar entry in place of the file's own time.
var ArchiveModTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// ZipToTarGz repacks the zip at zipPath into a tar.gz written to w. Entries are
// sorted by name and every header field that could vary between two packings of
// the same content is fixed, so equal content produces equal bytes.
func ZipToTarGz(zipPath string, w io.Writer) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer zr.Close()

	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		name, ok := entryName(f.Name)
		if !ok {
			continue
		}
		f.Name = name
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	tw := tar.NewWriter(gz)

	for _, f := range files {
		if err := writeEntry(tw, f); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("closing gzip: %w", err)
	}
	return nil
}

// entryName cleans a zip entry name and drops entries that would escape the
// archive root or only carry OS metadata.
func entryName(name string) (string, bool) {
	dir := strings.HasSuffix(name, "/")
	name = path.Clean("/" + name)[1:]
	if name == "" || strings.HasPrefix(name, "__MACOSX") || path.Base(name) == ".DS_Store" {
		return "", false
	}
	if dir {
		name += "/"
	}
	return name, true
}

func writeEntry(tw *tar.Writer, f *zip.File) error {
	hdr := &tar.Header{
		Name:    f.Name,
		ModTime: ArchiveModTime,
		Uid:     0,
		Gid:     0,
	}

	if f.FileInfo().IsDir() {
		hdr.Typeflag = tar.TypeDir
		hdr.Mode = 0o755
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing header %s: %w", f.Name, err)
		}
		return nil
	}

	hdr.Typeflag = tar.TypeReg
	hdr.Mode = 0o644
	hdr.Size = int64(f.UncompressedSize64)
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing header %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	if _, err := io.Copy(tw, rc); err != nil {
		return fmt.Errorf("copying %s: %w", f.Name, err)
	}
	return nil
}
