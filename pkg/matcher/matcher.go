package matcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/praetorian-inc/panscan/pkg/pan"
	"github.com/praetorian-inc/panscan/pkg/types"
)

// Matcher scans content for card numbers.
type Matcher interface {
	// Match scans content held in memory.
	Match(content []byte) ([]*types.Match, error)

	// MatchWithBlobID scans content with a known BlobID.
	MatchWithBlobID(content []byte, blobID types.BlobID) ([]*types.Match, error)

	// MatchReader scans r until EOF, cancellation, the match limit or a
	// non-ASCII chunk in ASCII-only mode. size is the input length, or -1.
	MatchReader(ctx context.Context, r io.Reader, size int64) (*MatchResult, error)

	// Close releases resources.
	Close() error
}

// Config for matcher initialization.
type Config struct {
	// Rules is the issuer table.
	Rules []*types.IssuerRule

	// Track1 and Track2 enable the magnetic-stripe checks.
	Track1 bool
	Track2 bool

	// ASCIIOnly stops a stream at the first chunk holding a byte above 127.
	ASCIIOnly bool

	// Limit stops a stream after this many kept matches (0 = unlimited).
	Limit int

	// Accept decides whether a match is kept. Rejected matches do not count
	// toward Limit. Nil keeps every match.
	Accept func(*types.Match) bool

	// Dedupe drops repeated matches within one stream.
	Dedupe DedupeMode

	// Chunk controls read sizes.
	Chunk ChunkConfig
}

// StreamMatcher drives a pan.Stream over each input. It holds no per-input
// state, so one StreamMatcher may scan several inputs concurrently.
type StreamMatcher struct {
	cfg        Config
	classifier *pan.Classifier
}

// New creates a Matcher with the given config.
func New(cfg Config) (*StreamMatcher, error) {
	if len(cfg.Rules) == 0 {
		return nil, fmt.Errorf("no rules provided")
	}
	if cfg.Limit < 0 {
		return nil, fmt.Errorf("invalid limit %d", cfg.Limit)
	}
	if cfg.Chunk.ChunkSize <= 0 {
		cfg.Chunk.ChunkSize = DefaultChunkConfig().ChunkSize
	}
	cfg.Chunk.ASCIIOnly = cfg.Chunk.ASCIIOnly || cfg.ASCIIOnly
	return &StreamMatcher{
		cfg:        cfg,
		classifier: pan.NewClassifier(cfg.Rules),
	}, nil
}

// Rules returns the issuer table in use.
func (m *StreamMatcher) Rules() []*types.IssuerRule {
	return m.cfg.Rules
}

// Match scans content held in memory.
func (m *StreamMatcher) Match(content []byte) ([]*types.Match, error) {
	res, err := m.MatchReader(context.Background(), bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}
	return res.Matches, nil
}

// MatchWithBlobID scans content and attributes the matches to blobID.
func (m *StreamMatcher) MatchWithBlobID(content []byte, blobID types.BlobID) ([]*types.Match, error) {
	matches, err := m.Match(content)
	if err != nil {
		return nil, err
	}
	setBlobID(matches, blobID)
	return matches, nil
}

// MatchReader scans one input. The BlobID covers the whole input even when
// scanning stops early; the rest is hashed without being scanned. On
// cancellation the partial result is returned with ctx.Err().
func (m *StreamMatcher) MatchReader(ctx context.Context, r io.Reader, size int64) (*MatchResult, error) {
	hasher := types.NewBlobHasher(size)
	tee := io.TeeReader(r, hasher)
	chunker := NewChunker(tee, m.cfg.Chunk)

	s := &scanState{
		matcher: m,
		stream: pan.NewStream(pan.Config{
			Classifier: m.classifier,
			Track1:     m.cfg.Track1,
			Track2:     m.cfg.Track2,
		}),
		lines:  newLineIndex(),
		result: newMatchResult(),
	}
	if m.cfg.Dedupe == DedupeByContent {
		s.dedup = NewContentDeduplicator()
	} else {
		s.dedup = NewDeduplicator()
	}

	stopped := false
	for !stopped {
		if err := ctx.Err(); err != nil {
			return s.result, err
		}

		chunk, err := chunker.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, ErrNonASCII) {
			// Matches still waiting on lookahead are resolved against EOF.
			s.result.Summary.NonASCII = true
			s.emit(s.stream.Finish())
			stopped = true
			break
		}
		if err != nil {
			return s.result, err
		}

		s.lines.observe(chunk.Content, chunk.StartOffset)
		stopped = s.emit(s.stream.Write(chunk.Content))
		s.result.Summary.BytesScanned = chunk.EndOffset()
		s.lines.prune(s.stream.Horizon())
	}

	if !stopped {
		s.emit(s.stream.Finish())
	} else if _, err := io.Copy(io.Discard, tee); err != nil {
		return s.result, fmt.Errorf("hashing remainder: %w", err)
	}

	s.result.BlobID = hasher.Sum()
	s.result.Summary.BytesRead = hasher.Len()
	setBlobID(s.result.Matches, s.result.BlobID)
	return s.result, nil
}

// Close releases resources.
func (m *StreamMatcher) Close() error {
	return nil
}

type scanState struct {
	matcher *StreamMatcher
	stream  *pan.Stream
	lines   *lineIndex
	dedup   *Deduplicator
	result  *MatchResult
}

// emit converts, filters and collects core matches. It reports whether the
// limit was reached.
func (s *scanState) emit(found []pan.Match) bool {
	cfg := s.matcher.cfg
	for _, pm := range found {
		s.result.Summary.Candidates++
		m := s.convert(pm)

		if (cfg.Accept != nil && !cfg.Accept(m)) || s.dedup.IsDuplicate(m) {
			s.result.Summary.Suppressed++
			s.result.count(m.RuleID, false)
			continue
		}
		s.dedup.Add(m)

		s.result.Matches = append(s.result.Matches, m)
		s.result.Summary.Reported++
		if m.Track != "" {
			s.result.Summary.TrackMatches++
		}
		s.result.count(m.RuleID, true)

		if cfg.Limit > 0 && s.result.Summary.Reported >= cfg.Limit {
			s.result.Summary.LimitReached = true
			return true
		}
	}
	return false
}

func (s *scanState) convert(pm pan.Match) *types.Match {
	return &types.Match{
		RuleID:    pm.RuleID,
		Brand:     pm.Brand,
		Digits:    pm.Digits,
		Length:    pm.Length,
		Track:     pm.Track,
		FindingID: types.ComputeFindingID(pm.Brand, pm.Digits),
		Location: types.Location{
			Offset: types.OffsetSpan{Start: pm.Offset, End: pm.End},
			Source: types.SourceSpan{
				Start: s.lines.point(pm.Offset),
				End:   s.lines.point(pm.End - 1),
			},
		},
		PrecededByDigit: pm.PrecededByDigit,
		FollowedByDigit: pm.FollowedByDigit,
	}
}

func setBlobID(matches []*types.Match, id types.BlobID) {
	for _, m := range matches {
		m.BlobID = id
		m.StructuralID = m.ComputeStructuralID()
	}
}
