package renaming

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"medio/src/features/config"
	"medio/src/features/metrics"
	"medio/src/infra/queue"
	"medio/src/media"
)

// maxConsecutiveErrors is the fail-stop limit for a worker. Per-item
// failures (rename errors, dedup I/O trouble) are swallowed at the item
// boundary and never count; only unexpected failures do.
const maxConsecutiveErrors = 5

// Service is the rename-and-dedup executor: a pool of workers consuming
// the ready queue, invoking the external renamer and applying the
// duplicate-elimination policy to the result.
type Service struct {
	cfg      *config.Manager
	readyq   *queue.Unbounded
	renamer  Renamer
	history  Recorder
	notifier Notifier
	thumbs   Thumbnailer
	metrics  *metrics.Set
	status   chan<- media.StageReport
	wg       sync.WaitGroup

	// process is a test seam; it defaults to processFile.
	process func(ctx context.Context, path string) error
}

// NewService creates the executor. thumbs may be nil when previews are
// disabled.
func NewService(cfg *config.Manager, readyq *queue.Unbounded, renamer Renamer, history Recorder, notifier Notifier, thumbs Thumbnailer, set *metrics.Set, status chan<- media.StageReport) *Service {
	s := &Service{
		cfg:      cfg,
		readyq:   readyq,
		renamer:  renamer,
		history:  history,
		notifier: notifier,
		thumbs:   thumbs,
		metrics:  set,
		status:   status,
	}
	s.process = s.processFile
	return s
}

// Start launches the configured number of workers.
func (s *Service) Start(ctx context.Context) {
	workers := s.cfg.Get().Rename.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	slog.Info("Executor started", "workers", workers)
}

// Wait blocks until every worker has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// worker consumes the ready queue until the context is cancelled, the
// queue is closed, or the consecutive-error limit is reached. A hung
// external process stalls only this worker.
func (s *Service) worker(ctx context.Context, id int) {
	defer s.wg.Done()

	errorCount := 0
	for errorCount < maxConsecutiveErrors {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-s.readyq.Out():
			if !ok {
				return
			}
			if err := s.safeProcess(ctx, path); err != nil {
				errorCount++
				slog.Error("Worker failed unexpectedly", "worker", id, "path", path, "error", err)
			} else {
				errorCount = 0
			}
		}
	}

	slog.Error("Too many errors, worker thread exiting", "worker", id)
	s.metrics.StageExits.WithLabelValues(media.StageWorker).Inc()
	s.status <- media.StageReport{
		Stage: media.StageWorker,
		Err:   fmt.Errorf("worker %d: consecutive error limit reached", id),
		Time:  time.Now(),
	}
}

// safeProcess converts a panic in the processing function into an error
// for the worker's counter.
func (s *Service) safeProcess(ctx context.Context, path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.process(ctx, path)
}

// processFile runs the external rename for one path and applies the
// duplicate policy. Per-item failures are logged and swallowed here; the
// pipeline moves on without retrying.
func (s *Service) processFile(ctx context.Context, path string) error {
	res, err := s.renamer.Rename(ctx, path)
	if err != nil {
		slog.Error("Rename failed", "path", path, "error", err)
		s.metrics.Renames.WithLabelValues(metrics.ResultFailed).Inc()
		return nil
	}
	if !res.Renamed {
		slog.Warn("Rename succeeded but no destination learned", "path", path)
		s.metrics.Renames.WithLabelValues(metrics.ResultNoDestination).Inc()
		return nil
	}

	slog.Info("Moved file", "source", res.Source, "destination", res.Destination)
	s.metrics.Renames.WithLabelValues(metrics.ResultSuccess).Inc()

	if err := s.history.RecordRename(ctx, res.Source, res.Destination); err != nil {
		slog.Warn("Failed to record rename", "error", err)
	}
	s.notifier.RenameCompleted(res.Source, res.Destination)

	s.maybeDeleteDuplicate(ctx, res.Destination)

	if s.thumbs != nil && media.ImageExtension(res.Destination) {
		if _, err := os.Stat(res.Destination); err == nil {
			if err := s.thumbs.Generate(res.Destination); err != nil {
				slog.Warn("Thumbnail generation failed", "path", res.Destination, "error", err)
			}
		}
	}

	return nil
}

// maybeDeleteDuplicate applies the duplicate-elimination policy. It only
// fires when the active format is exactly the default template, deletion
// is enabled, and the destination carries a collision marker; any custom
// format may use '-' for its own purposes.
func (s *Service) maybeDeleteDuplicate(ctx context.Context, destination string) {
	cfg := s.cfg.Get()
	if cfg.Rename.Format != config.DefaultDestinationFormat || !cfg.Rename.DeleteDuplicates {
		return
	}

	primary, ok := PrimaryCandidate(destination)
	if !ok {
		return
	}

	slog.Debug("Checking for duplicate", "path", destination, "primary", primary)
	identical, err := sameContents(destination, primary)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		slog.Warn("Duplicate comparison failed", "path", destination, "primary", primary, "error", err)
		return
	}
	if !identical {
		return
	}

	if err := os.Remove(destination); err != nil {
		slog.Warn("Failed to remove duplicate", "path", destination, "error", err)
		return
	}

	slog.Info("Removed duplicate", "path", destination, "primary", primary)
	s.metrics.DuplicatesRemoved.Inc()
	if err := s.history.RecordDuplicate(ctx, destination, primary); err != nil {
		slog.Warn("Failed to record duplicate removal", "error", err)
	}
	s.notifier.DuplicateRemoved(destination, primary)
}
