package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yuya-takeyama/strict-fanout-copy/internal/checksum"
	"github.com/yuya-takeyama/strict-fanout-copy/internal/metrics"
	"github.com/yuya-takeyama/strict-fanout-copy/internal/walker"
	"github.com/yuya-takeyama/strict-fanout-copy/pkg/fanout"
	"github.com/yuya-takeyama/strict-fanout-copy/pkg/logger"
	"github.com/yuya-takeyama/strict-fanout-copy/pkg/planner"
	"github.com/yuya-takeyama/strict-fanout-copy/pkg/progress"
	"github.com/yuya-takeyama/strict-fanout-copy/pkg/report"
)

// FileError is the failure of a single file. It aborts the phase it occurred in.
type FileError struct {
	RelPath string
	Err     error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.RelPath, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// CopyResult is the outcome of a copy phase. Files is the enumeration the copy
// used and can be handed to verification as is.
type CopyResult struct {
	Files []string
	Bytes int64
}

type Executor struct {
	logger          logger.Logger
	metrics         *metrics.Recorder
	pipeline        *fanout.Pipeline
	hashConcurrency int
	excludes        []string
}

type Option func(*Executor)

// WithMetrics records per-file and per-phase metrics.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Executor) {
		e.metrics = r
	}
}

// WithPipeline replaces the default 1MB fan-out pipeline.
func WithPipeline(p *fanout.Pipeline) Option {
	return func(e *Executor) {
		e.pipeline = p
	}
}

// WithHashConcurrency bounds the number of hashes running at once for a file.
// Zero or less means one per replica.
func WithHashConcurrency(n int) Option {
	return func(e *Executor) {
		e.hashConcurrency = n
	}
}

// WithExcludes skips source paths matching any of the doublestar patterns.
func WithExcludes(patterns []string) Option {
	return func(e *Executor) {
		e.excludes = patterns
	}
}

func NewExecutor(log logger.Logger, opts ...Option) *Executor {
	if log == nil {
		log = &logger.NullLogger{}
	}
	e := &Executor{
		logger:   log,
		pipeline: fanout.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CopyTree copies every file under source to each destination root, creating
// parent directories as needed. Files are copied one at a time in enumeration
// order and tx advances after each one. The first failing file stops the
// copy; files already copied are left in place. tx is closed on return.
func (e *Executor) CopyTree(ctx context.Context, source string, dests []string, tx *progress.Sender) (CopyResult, error) {
	if tx == nil {
		tx = progress.New()
	}
	defer tx.Close()

	start := time.Now()
	items, err := e.plan(source, dests)
	if err != nil {
		e.metrics.PhaseFailed(logger.PhaseCopy)
		return CopyResult{}, err
	}
	if err := tx.Begin(len(items)); err != nil {
		return CopyResult{}, err
	}

	e.logger.PhaseStart(logger.PhaseCopy, len(items))
	result := CopyResult{Files: planner.RelPaths(items)}

	for _, item := range items {
		n, err := e.copyItem(ctx, item)
		if err != nil {
			e.logger.Error(logger.PhaseCopy, item.RelPath, err)
			e.metrics.PhaseFailed(logger.PhaseCopy)
			return result, &FileError{RelPath: item.RelPath, Err: err}
		}

		result.Bytes += n
		e.metrics.FileCopied(n)
		e.logger.ItemProcessed(logger.PhaseCopy, item.RelPath, logger.ActionCopied)
		tx.Advance()
	}

	e.logger.PhaseComplete(logger.PhaseCopy, len(items))
	e.metrics.ObservePhase(logger.PhaseCopy, time.Since(start))
	return result, nil
}

func (e *Executor) copyItem(ctx context.Context, item planner.Item) (int64, error) {
	for _, dst := range item.Destinations {
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return 0, fmt.Errorf("%w: %w", fanout.ErrCreateDestination, err)
		}
	}
	return e.pipeline.CopyFile(ctx, item.Source, item.Destinations)
}

// DryRun enumerates what CopyTree would copy without touching any
// destination. Bytes is the size of the source tree.
func (e *Executor) DryRun(source string, dests []string) (CopyResult, error) {
	absSource, absDests, err := planner.ResolveRoots(source, dests)
	if err != nil {
		return CopyResult{}, err
	}
	if err := planner.ValidateRoots(absSource, absDests); err != nil {
		return CopyResult{}, err
	}

	w, err := walker.NewWalker(absSource, e.excludes)
	if err != nil {
		return CopyResult{}, err
	}
	files, err := w.Walk()
	if err != nil {
		return CopyResult{}, err
	}

	items := planner.PlanWalked(absSource, absDests, files)
	e.logger.PhaseStart(logger.PhaseCopy, len(items))
	for _, item := range items {
		e.logger.ItemProcessed(logger.PhaseCopy, item.RelPath, logger.ActionWouldCopy)
	}

	return CopyResult{Files: planner.RelPaths(items), Bytes: planner.TotalSize(items)}, nil
}

// VerifyTree hashes every file under source and its copy under each
// destination root. A nil files enumerates the source again; otherwise files
// is used as given, typically CopyResult.Files.
//
// Files are processed one at a time. For each file the source hash and every
// destination hash run concurrently, and the record is appended once all of
// them succeed. The first failing hash stops verification. tx is closed on
// return.
func (e *Executor) VerifyTree(ctx context.Context, source string, dests []string, files []string, tx *progress.Sender) (*report.Report, error) {
	if tx == nil {
		tx = progress.New()
	}
	defer tx.Close()

	start := time.Now()
	var items []planner.Item
	if files == nil {
		var err error
		items, err = e.plan(source, dests)
		if err != nil {
			e.metrics.PhaseFailed(logger.PhaseVerify)
			return nil, err
		}
	} else {
		absSource, absDests, err := planner.ResolveRoots(source, dests)
		if err != nil {
			return nil, err
		}
		items = planner.Plan(absSource, absDests, files)
	}

	if err := tx.Begin(len(items)); err != nil {
		return nil, err
	}
	e.logger.PhaseStart(logger.PhaseVerify, len(items))
	e.metrics.VerifyStarted()

	rep := &report.Report{Records: make([]report.Record, 0, len(items))}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := e.hashItem(item)
		if err != nil {
			e.logger.Error(logger.PhaseVerify, item.RelPath, err)
			e.metrics.PhaseFailed(logger.PhaseVerify)
			return nil, &FileError{RelPath: item.RelPath, Err: err}
		}
		if err := rep.Append(rec); err != nil {
			return nil, err
		}

		consistent := rec.Consistent()
		e.metrics.FileVerified(consistent)
		if consistent {
			e.logger.ItemProcessed(logger.PhaseVerify, item.RelPath, logger.ActionVerified)
		} else {
			e.logger.ItemProcessed(logger.PhaseVerify, item.RelPath, logger.ActionMismatch)
		}
		tx.Advance()
	}

	e.logger.PhaseComplete(logger.PhaseVerify, len(items))
	e.metrics.ObservePhase(logger.PhaseVerify, time.Since(start))
	return rep, nil
}

// hashItem hashes the source and every destination of item concurrently.
func (e *Executor) hashItem(item planner.Item) (report.Record, error) {
	rec := report.Record{
		Source:       report.ReplicaHash{Path: item.Source},
		Destinations: make([]report.ReplicaHash, len(item.Destinations)),
	}

	var g errgroup.Group
	if e.hashConcurrency > 0 {
		g.SetLimit(e.hashConcurrency)
	}

	g.Go(func() error {
		sum, err := checksum.HashFile(item.Source)
		rec.Source.Hash = sum
		return err
	})
	for i, dst := range item.Destinations {
		rec.Destinations[i].Path = dst
		g.Go(func() error {
			sum, err := checksum.HashFile(dst)
			rec.Destinations[i].Hash = sum
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return report.Record{}, err
	}
	return rec, nil
}

// plan resolves and validates the roots and enumerates the source once.
func (e *Executor) plan(source string, dests []string) ([]planner.Item, error) {
	absSource, absDests, err := planner.ResolveRoots(source, dests)
	if err != nil {
		return nil, err
	}
	if err := planner.ValidateRoots(absSource, absDests); err != nil {
		return nil, err
	}

	if len(e.excludes) == 0 {
		files, err := walker.Flatten(absSource)
		if err != nil {
			return nil, err
		}
		return planner.Plan(absSource, absDests, files), nil
	}

	w, err := walker.NewWalker(absSource, e.excludes)
	if err != nil {
		return nil, err
	}
	files, err := w.Walk()
	if err != nil {
		return nil, err
	}
	return planner.PlanWalked(absSource, absDests, files), nil
}
