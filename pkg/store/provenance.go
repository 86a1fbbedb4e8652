package store

import (
	"fmt"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// provenanceRow is the flattened form of a Provenance.
type provenanceRow struct {
	path   string
	member string
	repo   string
	commit string
	times  types.FileTimes
}

func encodeProvenance(prov types.Provenance) (provenanceRow, error) {
	var row provenanceRow
	switch p := prov.(type) {
	case types.FileProvenance:
		row.path = p.FilePath
		row.times = p.Times
	case types.ArchiveProvenance:
		row.path = p.ArchivePath
		row.member = p.MemberPath
		row.times = p.Times
	case types.GitProvenance:
		row.repo = p.RepoPath
		row.path = p.BlobPath
		if p.Commit != nil {
			row.commit = p.Commit.CommitID
		}
	case types.StreamProvenance:
		row.path = p.Source
	default:
		return row, fmt.Errorf("unknown provenance type: %T", prov)
	}
	return row, nil
}

func (row provenanceRow) decode(kind string) types.Provenance {
	switch kind {
	case "archive":
		return types.ArchiveProvenance{ArchivePath: row.path, MemberPath: row.member, Times: row.times}
	case "git":
		g := types.GitProvenance{RepoPath: row.repo, BlobPath: row.path}
		if row.commit != "" {
			g.Commit = &types.CommitMetadata{CommitID: row.commit}
		}
		return g
	case "stream":
		return types.StreamProvenance{Source: row.path}
	default:
		return types.FileProvenance{FilePath: row.path, Times: row.times}
	}
}
