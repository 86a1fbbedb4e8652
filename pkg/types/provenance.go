package types

import (
	"fmt"
	"time"
)

// Provenance tracks where a scanned stream came from.
type Provenance interface {
	Kind() string
	// Path returns displayable path (if applicable)
	Path() string
}

// FileTimes holds the filesystem timestamps printed with -e and -j.
// Zero values mean the platform did not report them.
type FileTimes struct {
	Modified time.Time
	Accessed time.Time
	Changed  time.Time
}

// FileProvenance for filesystem files.
type FileProvenance struct {
	FilePath string
	Times    FileTimes
}

// Kind returns "file".
func (f FileProvenance) Kind() string {
	return "file"
}

// Path returns the file path.
func (f FileProvenance) Path() string {
	return f.FilePath
}

// GitProvenance for git repository blobs.
type GitProvenance struct {
	RepoPath string
	Commit   *CommitMetadata // nil if not tracking commit info
	BlobPath string          // path within repo at commit
}

// Kind returns "git".
func (g GitProvenance) Kind() string {
	return "git"
}

// Path returns the blob path within the repository.
func (g GitProvenance) Path() string {
	return g.BlobPath
}

// CommitMetadata holds git commit information.
type CommitMetadata struct {
	CommitID           string
	AuthorName         string
	AuthorEmail        string
	AuthorTimestamp    time.Time
	CommitterName      string
	CommitterEmail     string
	CommitterTimestamp time.Time
	Message            string
}

// ArchiveProvenance tracks content extracted from documents and archives.
type ArchiveProvenance struct {
	ArchivePath string    // path to the archive on disk
	MemberPath  string    // path within the archive (e.g., "word/document.xml")
	Times       FileTimes // of the archive file
}

// Kind returns "archive".
func (a ArchiveProvenance) Kind() string {
	return "archive"
}

// Path returns the archive path with member path.
func (a ArchiveProvenance) Path() string {
	return fmt.Sprintf("%s:%s", a.ArchivePath, a.MemberPath)
}

// StreamProvenance names content handed in directly (library calls, serve).
type StreamProvenance struct {
	Source string
}

// Kind returns "stream".
func (s StreamProvenance) Kind() string {
	return "stream"
}

// Path returns the caller-supplied source name.
func (s StreamProvenance) Path() string {
	return s.Source
}

// TimesOf returns the filesystem timestamps carried by prov, if any.
func TimesOf(prov Provenance) FileTimes {
	switch p := prov.(type) {
	case FileProvenance:
		return p.Times
	case ArchiveProvenance:
		return p.Times
	}
	return FileTimes{}
}
