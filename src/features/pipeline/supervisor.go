// Package pipeline assembles the watcher, router, stability detector and
// executor into one running media pipeline and watches their health.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"medio/src/features/config"
	"medio/src/features/metrics"
	"medio/src/features/renaming"
	"medio/src/features/watching"
	"medio/src/infra/queue"
	"medio/src/infra/watcher"
	"medio/src/media"
)

// StageHealth is the last known state of one pipeline stage.
type StageHealth struct {
	Stage    string    `json:"stage"`
	Healthy  bool      `json:"healthy"`
	Error    string    `json:"error,omitempty"`
	FailedAt time.Time `json:"failed_at,omitempty"`
}

// Snapshot is the pipeline state served on the status endpoint.
type Snapshot struct {
	StartedAt  time.Time     `json:"started_at"`
	Uptime     string        `json:"uptime"`
	WatchQueue int           `json:"watch_queue"`
	ReadyQueue int           `json:"ready_queue"`
	Stages     []StageHealth `json:"stages"`
}

// Supervisor owns the queues and the status channel, starts every stage,
// and records stage failures so the HTTP surface can expose them. Stages
// that fail-stop are not restarted; the supervisor only makes the failure
// visible.
type Supervisor struct {
	cfg      *config.Manager
	metrics  *metrics.Set
	notifier renaming.Notifier

	watchq *queue.Unbounded
	readyq *queue.Unbounded
	status chan media.StageReport

	router   *watching.Router
	detector *watching.Detector
	executor *renaming.Service
	source   *watcher.Source

	mu        sync.RWMutex
	startedAt time.Time
	failures  map[string]media.StageReport
}

// NewSupervisor wires the pipeline together. thumbs may be nil.
func NewSupervisor(
	cfg *config.Manager,
	renamer renaming.Renamer,
	history renaming.Recorder,
	notifier renaming.Notifier,
	thumbs renaming.Thumbnailer,
	set *metrics.Set,
) (*Supervisor, error) {
	watchq := queue.NewUnbounded()
	readyq := queue.NewUnbounded()
	status := make(chan media.StageReport, 8)

	watcherConfig := cfg.Get().Watcher
	quiet := time.Duration(watcherConfig.QuietPeriodSeconds) * time.Second
	recheck := time.Duration(watcherConfig.RecheckSeconds) * time.Second

	s := &Supervisor{
		cfg:      cfg,
		metrics:  set,
		notifier: notifier,
		watchq:   watchq,
		readyq:   readyq,
		status:   status,
		router:   watching.NewRouter(cfg, watchq, readyq, set),
		detector: watching.NewDetector(quiet, recheck, watchq, readyq, set, status),
		executor: renaming.NewService(cfg, readyq, renamer, history, notifier, thumbs, set, status),
		failures: make(map[string]media.StageReport),
	}

	source, err := watcher.NewSource(s.router.Handle)
	if err != nil {
		return nil, err
	}
	s.source = source

	set.RegisterQueueDepth("watch", watchq.Len)
	set.RegisterQueueDepth("ready", readyq.Len)
	return s, nil
}

// Start reconciles the source directory, then brings up every stage.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()

	// Watch before scanning so files landing mid-scan are not missed;
	// the detector deduplicates paths seen via both routes.
	sourcePath := s.cfg.Get().SourcePath
	if err := s.source.Start(ctx, sourcePath); err != nil {
		return err
	}
	if err := s.router.Bootstrap(); err != nil {
		s.source.Stop()
		return err
	}

	go s.detector.Run(ctx)
	s.executor.Start(ctx)
	go s.monitor(ctx)

	slog.Info("Pipeline started", "source", sourcePath)
	return nil
}

// Stop shuts the pipeline down. Items already queued are delivered to
// workers before their channel closes.
func (s *Supervisor) Stop() {
	s.source.Stop()
	s.watchq.Close()
	s.readyq.Close()
	s.executor.Wait()
	slog.Info("Pipeline stopped")
}

// Rescan re-runs the startup reconciliation scan over the source
// directory. Already-organized files are gone from the source, so a
// rescan only picks up leftovers.
func (s *Supervisor) Rescan(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.router.Bootstrap()
}

// Snapshot returns the current pipeline state.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stages := []StageHealth{
		{Stage: media.StageWatcher, Healthy: true},
		{Stage: media.StageWorker, Healthy: true},
	}
	for i := range stages {
		if report, failed := s.failures[stages[i].Stage]; failed {
			stages[i].Healthy = false
			stages[i].Error = report.Err.Error()
			stages[i].FailedAt = report.Time
		}
	}

	return Snapshot{
		StartedAt:  s.startedAt,
		Uptime:     time.Since(s.startedAt).Round(time.Second).String(),
		WatchQueue: s.watchq.Len(),
		ReadyQueue: s.readyq.Len(),
		Stages:     stages,
	}
}

// Healthy reports whether every stage is still running.
func (s *Supervisor) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.failures) == 0
}

// monitor records stage failures from the status channel and alerts the
// operator. One report per stage is enough; workers beyond the first to
// fail only confirm what the operator already knows.
func (s *Supervisor) monitor(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case report := <-s.status:
			s.mu.Lock()
			_, seen := s.failures[report.Stage]
			s.failures[report.Stage] = report
			s.mu.Unlock()

			slog.Error("Pipeline stage failed", "stage", report.Stage, "error", report.Err)
			if !seen {
				s.notifier.StageFailed(report.Stage)
			}
		}
	}
}
