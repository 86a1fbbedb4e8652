package enum

import (
	"bytes"
	"context"
	"io"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// Source is one logical input: a file, an extracted archive member or a git
// blob. Content is read through Open so large files are never held whole.
type Source struct {
	Provenance types.Provenance

	// Size is the content length in bytes, or -1 when unknown.
	Size int64

	// Times are the filesystem timestamps, zero for non-file sources.
	Times types.FileTimes

	open func() (io.ReadCloser, error)
}

// NewSource creates a Source read through open.
func NewSource(prov types.Provenance, size int64, times types.FileTimes, open func() (io.ReadCloser, error)) Source {
	return Source{Provenance: prov, Size: size, Times: times, open: open}
}

// BytesSource creates a Source over content held in memory.
func BytesSource(prov types.Provenance, content []byte) Source {
	return NewSource(prov, int64(len(content)), types.FileTimes{}, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(content)), nil
	})
}

// Open returns a reader over the content. The caller closes it.
func (s Source) Open() (io.ReadCloser, error) {
	return s.open()
}

// Path returns the displayable path of the source.
func (s Source) Path() string {
	if s.Provenance == nil {
		return ""
	}
	return s.Provenance.Path()
}

// Enumerator discovers content to scan.
type Enumerator interface {
	// Enumerate yields sources. A callback error stops enumeration and is
	// returned. Callbacks may run concurrently.
	Enumerate(ctx context.Context, callback func(src Source) error) error
}

// Config for enumeration.
type Config struct {
	// Root is the starting path for enumeration.
	Root string

	// IncludeHidden includes hidden files/directories (starting with .).
	IncludeHidden bool

	// MaxFileSize is the maximum file size to process (0 = no limit).
	MaxFileSize int64

	// FollowSymlinks follows symbolic links.
	FollowSymlinks bool

	// RespectGitignore skips paths matched by Root/.gitignore.
	RespectGitignore bool

	// ExcludeExtensions lists extensions to skip, compared case-insensitively
	// against the last extension of the name (".dll", ".exe").
	ExcludeExtensions []string

	// ExcludeGlobs are doublestar patterns matched against the path relative
	// to Root and against the base name.
	ExcludeGlobs []string

	// SkipPaths are files never yielded, such as the output logfile.
	SkipPaths []string

	// ExtractArchives enables text extraction (comma-separated: xlsx,docx,pdf,zip,7z or 'all').
	ExtractArchives string

	// ExtractLimits bounds archive extraction.
	ExtractLimits ExtractLimits

	// Workers is the number of parallel readers (0 = NumCPU).
	Workers int

	// OnSkip, when set, is told about entries that were skipped because they
	// could not be read. Enumeration continues.
	OnSkip func(path string, err error)
}

func (c Config) skip(path string, err error) {
	if c.OnSkip != nil {
		c.OnSkip(path, err)
	}
}
