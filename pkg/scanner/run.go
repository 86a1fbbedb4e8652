package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/praetorian-inc/panscan/pkg/enum"
	"github.com/praetorian-inc/panscan/pkg/matcher"
	"github.com/praetorian-inc/panscan/pkg/report"
	"github.com/praetorian-inc/panscan/pkg/store"
	"github.com/praetorian-inc/panscan/pkg/types"
)

// RunConfig wires the pieces of a file scan together.
type RunConfig struct {
	Matcher matcher.Matcher

	// Store receives blobs, provenance, matches and the scan row. Required.
	Store store.Store

	// Reporter prints result lines as files finish. Nil prints nothing.
	Reporter *report.Reporter

	// Status draws the progress line. Nil disables it.
	Status *report.Status

	Logger *zap.Logger

	// Incremental skips content already present in Store.
	Incremental bool

	// Mask stores masked digits. Printed lines follow the reporter's options.
	Mask bool
}

// Runner scans every source of an enumerator. Its callbacks may run on
// several enumerator workers at once.
type Runner struct {
	cfg RunConfig

	files   atomic.Int64
	skipped atomic.Int64
	matches atomic.Int64
	tracks  atomic.Int64
}

// NewRunner validates cfg and creates a Runner.
func NewRunner(cfg RunConfig) (*Runner, error) {
	if cfg.Matcher == nil {
		return nil, fmt.Errorf("runner requires a matcher")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("runner requires a store")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runner{cfg: cfg}, nil
}

// Run enumerates and scans until the enumerator is exhausted or ctx is
// canceled. A canceled run is not an error: the returned ScanRun is marked
// Interrupted and still recorded.
func (r *Runner) Run(ctx context.Context, e enum.Enumerator) (*types.ScanRun, error) {
	run := &types.ScanRun{ID: uuid.NewString(), StartedAt: time.Now()}
	if err := r.cfg.Store.AddScan(run); err != nil {
		return nil, fmt.Errorf("recording scan: %w", err)
	}

	err := e.Enumerate(ctx, func(src enum.Source) error {
		return r.ScanSource(ctx, src)
	})
	r.cfg.Status.Clear()

	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("scanning: %w", err)
	}

	run.FinishedAt = time.Now()
	run.Interrupted = ctx.Err() != nil
	run.FilesSearched = r.files.Load()
	run.Matches = r.matches.Load()
	run.TrackMatches = r.tracks.Load()
	if err := r.cfg.Store.AddScan(run); err != nil {
		return run, fmt.Errorf("recording scan: %w", err)
	}
	return run, nil
}

// Skipped returns how many sources incremental mode passed over.
func (r *Runner) Skipped() int64 {
	return r.skipped.Load()
}

// ScanSource scans one source. Sources that cannot be opened or read are
// logged and skipped; only sink failures and cancellation are returned.
func (r *Runner) ScanSource(ctx context.Context, src enum.Source) error {
	path := src.Path()
	log := r.cfg.Logger.With(zap.String("path", path))

	if r.cfg.Incremental {
		skip, err := r.seen(src)
		if err != nil {
			log.Warn("hashing source", zap.Error(err))
			return nil
		}
		if skip {
			r.skipped.Add(1)
			log.Debug("already scanned")
			return nil
		}
	}

	rc, err := src.Open()
	if err != nil {
		log.Warn("cannot open", zap.Error(err))
		return nil
	}
	defer rc.Close()

	var in io.Reader = rc
	if r.cfg.Status.Enabled() {
		in = &progressReader{r: rc, path: path, status: r.cfg.Status}
	}

	res, err := r.cfg.Matcher.MatchReader(ctx, in, src.Size)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("cannot read", zap.Error(err))
		return nil
	}
	r.files.Add(1)

	if res.Summary.NonASCII {
		log.Debug("stopped at non-ASCII data", zap.Int64("bytes", res.Summary.BytesScanned))
	}
	if res.Summary.LimitReached {
		log.Debug("result limit reached", zap.Int("matches", res.Summary.Reported))
	}

	r.matches.Add(int64(res.Summary.Reported))
	r.tracks.Add(int64(res.Summary.TrackMatches))

	times := src.Times
	if times.Modified.IsZero() {
		times = types.TimesOf(src.Provenance)
	}
	if r.cfg.Reporter != nil {
		if err := r.cfg.Reporter.Report(path, times, res.Matches); err != nil {
			return err
		}
	}

	return r.record(src, res)
}

func (r *Runner) seen(src enum.Source) (bool, error) {
	rc, err := src.Open()
	if err != nil {
		return false, err
	}
	defer rc.Close()

	id, err := types.ComputeBlobIDReader(rc, src.Size)
	if err != nil {
		return false, err
	}
	return r.cfg.Store.BlobExists(id)
}

func (r *Runner) record(src enum.Source, res *matcher.MatchResult) error {
	s := r.cfg.Store
	if err := s.AddBlob(res.BlobID, res.Summary.BytesRead); err != nil {
		return fmt.Errorf("storing blob: %w", err)
	}
	if err := s.AddProvenance(res.BlobID, src.Provenance); err != nil {
		return fmt.Errorf("storing provenance: %w", err)
	}

	for _, m := range res.Matches {
		if r.cfg.Mask {
			m.Digits = report.Mask(m.Digits)
		}
		if err := s.AddMatch(m); err != nil {
			return fmt.Errorf("storing match: %w", err)
		}
		if err := s.AddFinding(&types.Finding{ID: m.FindingID, Brand: m.Brand, Digits: m.Digits}); err != nil {
			return fmt.Errorf("storing finding: %w", err)
		}
	}
	return nil
}

// progressReader reports bytes read to the status line.
type progressReader struct {
	r      io.Reader
	path   string
	status *report.Status
	n      int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.n += int64(n)
	p.status.Update(p.path, p.n)
	return n, err
}
