package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/klauspost/compress/flate"
)

// EntryErr reports a file that could not be added to an archive.
type EntryErr struct {
	Path string
	Err  error
}

func (e *EntryErr) Error() string {
	return fmt.Sprintf("archive entry %s: %v", e.Path, e.Err)
}

func (e *EntryErr) Unwrap() error {
	return e.Err
}

// Every entry is stamped with the same timestamp, the zip format's epoch.
// Archive bytes must depend on content only, never on build time.
var entryEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Writer assembles a reproducible zip archive: entries are sorted, stamped
// with a fixed timestamp, and carry normalized permission bits (0755 for
// executables, 0644 for everything else). Building the same file set twice
// yields byte-identical archives.
type Writer struct {
	root        string
	paths       []string
	executables map[string]struct{}
	destination string
}

func New() *Writer {
	return &Writer{executables: map[string]struct{}{}}
}

// WithRoot sets the directory the entry paths are resolved against.
func (w *Writer) WithRoot(root string) *Writer {
	w.root = root
	return w
}

// WithPaths sets the slash-separated relative paths to archive.
func (w *Writer) WithPaths(paths []string) *Writer {
	w.paths = paths
	return w
}

// WithExecutables marks entries whose mode is forced to 0755 regardless of
// the bits on disk.
func (w *Writer) WithExecutables(paths ...string) *Writer {
	for _, p := range paths {
		w.executables[p] = struct{}{}
	}
	return w
}

// WithDestination sets the final location of the archive.
func (w *Writer) WithDestination(path string) *Writer {
	w.destination = path
	return w
}

// Build writes the archive and returns its size in bytes. The archive is
// staged as a temporary file next to the destination and renamed into place
// only once complete, so a failed or cancelled build never leaves a partial
// artifact behind.
func (w *Writer) Build(ctx context.Context) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(w.destination), 0o755); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(w.destination), "."+filepath.Base(w.destination)+".*")
	if err != nil {
		return 0, err
	}

	size, err := w.write(ctx, tmp)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}

	if err := os.Rename(tmp.Name(), w.destination); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}

	return size, nil
}

func (w *Writer) write(ctx context.Context, f *os.File) (int64, error) {
	paths := slices.Clone(w.paths)
	sort.Strings(paths)
	paths = slices.Compact(paths)

	zw := zip.NewWriter(f)

	// Deflate output must not vary with the Go release, so the compressor
	// is pinned instead of using the library default.
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := w.writeEntry(zw, p); err != nil {
			return 0, err
		}
	}

	if err := zw.Close(); err != nil {
		return 0, err
	}

	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (w *Writer) writeEntry(zw *zip.Writer, p string) error {
	full := filepath.Join(w.root, filepath.FromSlash(p))

	fi, err := os.Stat(full)
	if err != nil {
		return &EntryErr{Path: p, Err: err}
	}

	_, forced := w.executables[p]
	mode := fs.FileMode(0o644)
	if forced || fi.Mode()&0o100 != 0 {
		mode = 0o755
	}

	hdr := &zip.FileHeader{
		Name:     p,
		Method:   zip.Deflate,
		Modified: entryEpoch,
	}
	hdr.SetMode(mode)

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return &EntryErr{Path: p, Err: err}
	}

	src, err := os.Open(full)
	if err != nil {
		return &EntryErr{Path: p, Err: err}
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return &EntryErr{Path: p, Err: err}
	}
	return nil
}
