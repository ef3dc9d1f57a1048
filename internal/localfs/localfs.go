// Package localfs provides sandboxed local filesystem access for Drive tools.
// Downloads land on disk and uploads are read from disk only through an FS
// instance, which enforces a directory allowlist using os.Root (Go 1.25+) for
// kernel-enforced path containment. Symlink escapes and ../ traversals are
// prevented by the OS, not by userspace path cleaning.
package localfs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Mode controls the access level for an allowed directory.
type Mode int

const (
	// ModeRead allows reading files from the directory.
	ModeRead Mode = iota
	// ModeReadWrite allows reading and writing files in the directory.
	ModeReadWrite
)

// Dir is an allowed directory with its access mode.
type Dir struct {
	Path string
	Mode Mode
}

// Entry describes a single directory entry returned by ListDir.
type Entry struct {
	Name  string
	Size  int64
	IsDir bool
}

type openDir struct {
	root *os.Root
	mode Mode
	path string // resolved absolute path, for error messages
}

// FS gates all local file access through a set of allowed directories.
// Each directory is backed by an os.Root. If no directories are configured,
// every operation returns an error: local file access is opt-in only.
type FS struct {
	dirs []openDir
}

// New opens each allowed directory as an os.Root and returns an FS.
// The caller should Close the FS when done with it.
func New(dirs []Dir) (*FS, error) {
	opened := make([]openDir, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(d.Path)
		if err != nil {
			return nil, fmt.Errorf("allowed dir %q: resolving path: %w", d.Path, err)
		}
		root, err := os.OpenRoot(abs)
		if err != nil {
			for _, o := range opened {
				o.root.Close()
			}
			return nil, fmt.Errorf("allowed dir %q: %w", d.Path, err)
		}
		opened = append(opened, openDir{root: root, mode: d.Mode, path: abs})
	}
	return &FS{dirs: opened}, nil
}

// Close releases all os.Root handles.
func (fs *FS) Close() error {
	var firstErr error
	for _, d := range fs.dirs {
		if err := d.root.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Enabled reports whether any directories are configured.
func (fs *FS) Enabled() bool {
	return len(fs.dirs) > 0
}

// Dirs returns the configured directories with their modes.
func (fs *FS) Dirs() []Dir {
	out := make([]Dir, 0, len(fs.dirs))
	for _, d := range fs.dirs {
		out = append(out, Dir{Path: d.path, Mode: d.mode})
	}
	return out
}

func (fs *FS) disabledErr() error {
	return fmt.Errorf("local file access is not enabled (use --allow-read-dir or --allow-write-dir)")
}

// ReadFile reads a file from an allowed directory. The path must be relative
// to one of the configured directories. Returns the contents and the
// directory the file was read from.
func (fs *FS) ReadFile(path string) ([]byte, string, error) {
	if !fs.Enabled() {
		return nil, "", fs.disabledErr()
	}
	if path == "" {
		return nil, "", fmt.Errorf("path is required")
	}

	var lastErr error
	for _, d := range fs.dirs {
		data, err := d.root.ReadFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		return data, d.path, nil
	}
	return nil, "", fmt.Errorf("cannot read %q: %w", path, lastErr)
}

// Open opens a file from an allowed directory for streaming reads.
// The caller must close the returned ReadCloser.
func (fs *FS) Open(path string) (io.ReadCloser, string, error) {
	if !fs.Enabled() {
		return nil, "", fs.disabledErr()
	}
	if path == "" {
		return nil, "", fmt.Errorf("path is required")
	}

	var lastErr error
	for _, d := range fs.dirs {
		f, err := d.root.Open(path)
		if err != nil {
			lastErr = err
			continue
		}
		return f, d.path, nil
	}
	return nil, "", fmt.Errorf("cannot open %q: %w", path, lastErr)
}

// WriteFrom streams r into a file in an allowed read-write directory,
// creating the file if needed and truncating it otherwise. Returns the
// number of bytes written and the directory written to.
func (fs *FS) WriteFrom(path string, r io.Reader) (int64, string, error) {
	if !fs.Enabled() {
		return 0, "", fs.disabledErr()
	}
	if path == "" {
		return 0, "", fmt.Errorf("path is required")
	}

	var lastErr error
	for _, d := range fs.dirs {
		if d.mode == ModeRead {
			lastErr = fmt.Errorf("directory %s is read-only", d.path)
			continue
		}
		f, err := d.root.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			lastErr = err
			continue
		}
		n, err := io.Copy(f, r)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return n, d.path, fmt.Errorf("writing %q: %w", path, err)
		}
		return n, d.path, nil
	}
	return 0, "", fmt.Errorf("cannot write %q: %w", path, lastErr)
}

// WriteFile writes data to a file in an allowed read-write directory.
func (fs *FS) WriteFile(path string, data []byte) (string, error) {
	if !fs.Enabled() {
		return "", fs.disabledErr()
	}
	if path == "" {
		return "", fmt.Errorf("path is required")
	}

	var lastErr error
	for _, d := range fs.dirs {
		if d.mode == ModeRead {
			lastErr = fmt.Errorf("directory %s is read-only", d.path)
			continue
		}
		if err := d.root.WriteFile(path, data, 0o644); err != nil {
			lastErr = err
			continue
		}
		return d.path, nil
	}
	return "", fmt.Errorf("cannot write %q: %w", path, lastErr)
}

// Stat returns file info from an allowed directory.
func (fs *FS) Stat(path string) (os.FileInfo, string, error) {
	if !fs.Enabled() {
		return nil, "", fs.disabledErr()
	}
	if path == "" {
		return nil, "", fmt.Errorf("path is required")
	}

	var lastErr error
	for _, d := range fs.dirs {
		info, err := d.root.Stat(path)
		if err != nil {
			lastErr = err
			continue
		}
		return info, d.path, nil
	}
	return nil, "", fmt.Errorf("cannot stat %q: %w", path, lastErr)
}

// ListDir lists the entries of a directory within an allowed directory.
// An empty path or "." lists the root of the first directory that resolves.
// Entries are sorted by name, directories first.
func (fs *FS) ListDir(path string) ([]Entry, string, error) {
	if !fs.Enabled() {
		return nil, "", fs.disabledErr()
	}
	if path == "" {
		path = "."
	}

	var lastErr error
	for _, d := range fs.dirs {
		f, err := d.root.Open(path)
		if err != nil {
			lastErr = err
			continue
		}
		des, err := f.ReadDir(-1)
		f.Close()
		if err != nil {
			lastErr = err
			continue
		}

		entries := make([]Entry, 0, len(des))
		for _, de := range des {
			e := Entry{Name: de.Name(), IsDir: de.IsDir()}
			if info, err := de.Info(); err == nil && !e.IsDir {
				e.Size = info.Size()
			}
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].IsDir != entries[j].IsDir {
				return entries[i].IsDir
			}
			return entries[i].Name < entries[j].Name
		})
		return entries, d.path, nil
	}
	return nil, "", fmt.Errorf("cannot list %q: %w", path, lastErr)
}
