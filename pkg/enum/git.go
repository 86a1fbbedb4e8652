package enum

import (
	"context"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// GitEnumerator enumerates the blobs of one commit tree.
type GitEnumerator struct {
	config Config
	// CommitRef optionally specifies a specific commit to enumerate (defaults to HEAD)
	CommitRef string
}

// NewGitEnumerator creates a new git enumerator.
func NewGitEnumerator(config Config) *GitEnumerator {
	return &GitEnumerator{
		config:    config,
		CommitRef: "HEAD",
	}
}

// Enumerate walks the commit tree and yields each unique blob once.
// Blobs are streamed from the object store.
func (e *GitEnumerator) Enumerate(ctx context.Context, callback func(src Source) error) error {
	repo, err := git.PlainOpen(e.config.Root)
	if err != nil {
		return fmt.Errorf("failed to open git repository: %w", err)
	}

	ref, err := repo.ResolveRevision(plumbing.Revision(e.CommitRef))
	if err != nil {
		return fmt.Errorf("failed to resolve ref %s: %w", e.CommitRef, err)
	}

	commit, err := repo.CommitObject(*ref)
	if err != nil {
		return fmt.Errorf("failed to get commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("failed to get tree: %w", err)
	}

	filter, err := newPathFilter(Config{
		Root:              "",
		ExcludeExtensions: e.config.ExcludeExtensions,
		ExcludeGlobs:      e.config.ExcludeGlobs,
	})
	if err != nil {
		return err
	}

	commitMeta := &types.CommitMetadata{
		CommitID:           commit.Hash.String(),
		AuthorName:         commit.Author.Name,
		AuthorEmail:        commit.Author.Email,
		AuthorTimestamp:    commit.Author.When,
		CommitterName:      commit.Committer.Name,
		CommitterEmail:     commit.Committer.Email,
		CommitterTimestamp: commit.Committer.When,
		Message:            commit.Message,
	}

	seen := make(map[plumbing.Hash]bool)
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if seen[f.Hash] {
			return nil
		}
		seen[f.Hash] = true

		if f.Size == 0 || (e.config.MaxFileSize > 0 && f.Size > e.config.MaxFileSize) {
			return nil
		}
		if !e.config.IncludeHidden && hasHiddenElement(f.Name) {
			return nil
		}
		if filter.excludedFile(f.Name) {
			return nil
		}

		prov := types.GitProvenance{
			RepoPath: e.config.Root,
			Commit:   commitMeta,
			BlobPath: f.Name,
		}

		if shouldExtract(e.config, f.Name) {
			return e.extract(f, prov, callback)
		}

		file := f
		return callback(NewSource(prov, f.Size, types.FileTimes{}, file.Reader))
	})

	if err != nil {
		return fmt.Errorf("failed to walk tree: %w", err)
	}

	return nil
}

func (e *GitEnumerator) extract(f *object.File, prov types.GitProvenance, callback func(src Source) error) error {
	rc, err := f.Reader()
	if err != nil {
		return fmt.Errorf("failed to read blob %s: %w", f.Name, err)
	}
	content, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("failed to read blob %s: %w", f.Name, err)
	}

	extracted, err := ExtractText(f.Name, content, e.config.ExtractLimits)
	if err != nil {
		e.config.skip(f.Name, fmt.Errorf("extraction failed, scanning raw bytes: %w", err))
	}
	if len(extracted) == 0 {
		return callback(BytesSource(prov, content))
	}
	for _, ec := range extracted {
		member := types.ArchiveProvenance{
			ArchivePath: prov.RepoPath + ":" + f.Name,
			MemberPath:  ec.Name,
		}
		if err := callback(BytesSource(member, ec.Content)); err != nil {
			return err
		}
	}
	return nil
}

// hasHiddenElement reports whether any slash-separated element is hidden.
func hasHiddenElement(name string) bool {
	start := 0
	for i := 0; i <= len(name); i++ {
		if i == len(name) || name[i] == '/' {
			if isHidden(name[start:i]) {
				return true
			}
			start = i + 1
		}
	}
	return false
}
