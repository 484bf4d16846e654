package toolchain

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/classforge/classfile"
)

var log = commonlog.GetLogger("classforge.toolchain")

// ErrNotFound is returned by Lookup when no location entry holds the file.
var ErrNotFound = errors.New("file not found")

// ErrUnsupportedLocation is returned for operations a FileManager does not
// offer on a location.
var ErrUnsupportedLocation = errors.New("unsupported location")

// FileManager mediates every file access a Toolchain performs.
type FileManager interface {
	// OutputFor returns the output for the artifact binaryName of the given
	// kind. sibling is the file the artifact is derived from and may be nil.
	OutputFor(loc Location, binaryName string, kind Kind, sibling FileObject) (OutputFile, error)

	// Lookup finds binaryName on a search location. Misses return an error
	// matching ErrNotFound.
	Lookup(loc Location, binaryName string, kind Kind) (InputFile, error)

	// List returns the files of the given kind directly inside namespace.
	List(loc Location, namespace string, kind Kind) ([]FileObject, error)

	Close() error
}

// ---------------------------------------------------------------------------
// StandardFileManager
// ---------------------------------------------------------------------------

// StandardFileManager is a disk-backed FileManager. ClassPath lookups search
// the class path directories in order; ClassOutput writes under OutputDir.
type StandardFileManager struct {
	ClassPath []string
	OutputDir string
}

// NewStandardFileManager creates a disk-backed file manager. An empty
// outputDir makes the ClassOutput location unavailable.
func NewStandardFileManager(classPath []string, outputDir string) *StandardFileManager {
	return &StandardFileManager{
		ClassPath: append([]string(nil), classPath...),
		OutputDir: outputDir,
	}
}

// ParseClassPath splits an OS path list, dropping empty entries.
func ParseClassPath(s string) []string {
	var out []string
	for _, p := range filepath.SplitList(s) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinClassPath is the inverse of ParseClassPath.
func JoinClassPath(dirs []string) string {
	return strings.Join(dirs, string(os.PathListSeparator))
}

func (m *StandardFileManager) dirs(loc Location) ([]string, error) {
	switch loc {
	case ClassPath:
		return m.ClassPath, nil
	case ClassOutput:
		if m.OutputDir == "" {
			return nil, nil
		}
		return []string{m.OutputDir}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedLocation, loc)
}

// OutputFor implements FileManager.
func (m *StandardFileManager) OutputFor(loc Location, binaryName string, kind Kind, sibling FileObject) (OutputFile, error) {
	if loc != ClassOutput {
		return nil, fmt.Errorf("%w: cannot write to %s", ErrUnsupportedLocation, loc)
	}
	if m.OutputDir == "" {
		return nil, fmt.Errorf("%w: no output directory configured", ErrUnsupportedLocation)
	}
	path := filepath.Join(m.OutputDir, filepath.FromSlash(classfile.RelativePath(binaryName, kind.Extension())))
	return &diskFile{name: binaryName, kind: kind, path: path}, nil
}

// Lookup implements FileManager.
func (m *StandardFileManager) Lookup(loc Location, binaryName string, kind Kind) (InputFile, error) {
	dirs, err := m.dirs(loc)
	if err != nil {
		return nil, err
	}
	rel := filepath.FromSlash(classfile.RelativePath(binaryName, kind.Extension()))
	for _, dir := range dirs {
		path := filepath.Join(dir, rel)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		log.Debugf("found %s at %s", binaryName, path)
		return &diskFile{name: binaryName, kind: kind, path: path}, nil
	}
	return nil, fmt.Errorf("%w: %s on %s", ErrNotFound, binaryName, loc)
}

// List implements FileManager. Earlier class path entries shadow later ones.
func (m *StandardFileManager) List(loc Location, namespace string, kind Kind) ([]FileObject, error) {
	dirs, err := m.dirs(loc)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []FileObject
	for _, dir := range dirs {
		nsDir := filepath.Join(dir, filepath.FromSlash(strings.ReplaceAll(namespace, ".", "/")))
		entries, err := os.ReadDir(nsDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			ext := filepath.Ext(e.Name())
			if e.IsDir() || KindOf(ext) != kind {
				continue
			}
			name := classfile.BinaryName(namespace, strings.TrimSuffix(e.Name(), ext))
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, &diskFile{name: name, kind: kind, path: filepath.Join(nsDir, e.Name())})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// Close implements FileManager.
func (m *StandardFileManager) Close() error {
	return nil
}

// diskFile is a file object backed by a path.
type diskFile struct {
	name string
	kind Kind
	path string
}

func (f *diskFile) Name() string { return f.name }
func (f *diskFile) Kind() Kind   { return f.kind }
func (f *diskFile) URI() string  { return "file://" + filepath.ToSlash(f.path) }

// Path returns the file system path.
func (f *diskFile) Path() string { return f.path }

func (f *diskFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

func (f *diskFile) OpenWriter() (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(f.path)
}

func (f *diskFile) CharContent() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SourceFromDisk returns a SourceFile reading path, named after the unit
// name it declares.
func SourceFromDisk(path, unitName string) SourceFile {
	return &diskFile{name: unitName, kind: KindSource, path: path}
}
