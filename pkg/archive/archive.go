// Package archive builds the gzip(tar) application packages ("EAP" files)
// uploaded to the camera: a handful of small files, each with an explicit
// POSIX mode, concatenated into a single self-terminating stream.
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"time"
)

// File is one entry to be written into the archive.
type File struct {
	Path  string
	Bytes []byte
	Mode  int64
}

// NewFile builds a regular, non-executable entry (mode 0644).
func NewFile(path string, contents []byte) File {
	return File{Path: path, Bytes: contents, Mode: 0644}
}

// NewExecutable builds an executable entry (mode 0755).
func NewExecutable(path string, contents []byte) File {
	return File{Path: path, Bytes: contents, Mode: 0755}
}

// Build assembles files, in order, into a gzip-compressed tar stream. Every
// entry gets uid=gid=0 and the current wall-clock mtime (or the epoch, if
// the clock somehow reads before it); no directory entries are emitted.
//
// Build only fails if the underlying writers fail, which in practice means
// never: callers only ever pass short ASCII paths and in-memory byte
// slices.
func Build(files []File) ([]byte, error) {
	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	mtime := time.Now()
	if mtime.Before(time.Unix(0, 0)) {
		mtime = time.Unix(0, 0)
	}

	for _, f := range files {
		hdr := &tar.Header{
			Name:     f.Path,
			Mode:     f.Mode,
			Size:     int64(len(f.Bytes)),
			Typeflag: tar.TypeReg,
			Uid:      0,
			Gid:      0,
			ModTime:  mtime,
			Format:   tar.FormatGNU,
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("writing tar header for %q: %w", f.Path, err)
		}
		if _, err := tw.Write(f.Bytes); err != nil {
			return nil, fmt.Errorf("writing tar contents for %q: %w", f.Path, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}
