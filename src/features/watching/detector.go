package watching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"medio/src/features/metrics"
	"medio/src/infra/queue"
	"medio/src/media"
)

// maxConsecutiveErrors is the fail-stop limit shared with the executor. A
// stage that hits it terminates permanently and reports on the status
// channel; per-item conditions never count against it.
const maxConsecutiveErrors = 5

// Detector decides when a file has stopped changing long enough to be
// handed to the executor. It is the sole owner of the active set; both the
// watch queue and the re-check timer are serviced from its single
// goroutine, so no locking is needed.
type Detector struct {
	quiet   time.Duration
	recheck time.Duration

	watchq  *queue.Unbounded
	readyq  *queue.Unbounded
	metrics *metrics.Set
	status  chan<- media.StageReport

	// active maps an in-transfer path to its last observed activity.
	active map[string]time.Time
	timer  *time.Timer

	// Seams for tests.
	now    func() time.Time
	size   func(path string) int64
	handle func(path string) error
}

// NewDetector creates a stability detector reading from watchq and
// promoting stabilized paths onto readyq.
func NewDetector(quiet, recheck time.Duration, watchq, readyq *queue.Unbounded, set *metrics.Set, status chan<- media.StageReport) *Detector {
	d := &Detector{
		quiet:   quiet,
		recheck: recheck,
		watchq:  watchq,
		readyq:  readyq,
		metrics: set,
		status:  status,
		active:  make(map[string]time.Time),
		now:     time.Now,
		size:    fileSize,
	}
	d.handle = d.observe
	return d
}

// Run consumes the watch queue until the context is cancelled, the queue
// is closed, or the consecutive-error limit is reached.
func (d *Detector) Run(ctx context.Context) {
	d.timer = time.NewTimer(d.recheck)
	stopTimer(d.timer)

	errorCount := 0
	for errorCount < maxConsecutiveErrors {
		select {
		case <-ctx.Done():
			stopTimer(d.timer)
			return
		case path, ok := <-d.watchq.Out():
			if !ok {
				stopTimer(d.timer)
				return
			}
			if err := safely(func() error { return d.handle(path) }); err != nil {
				errorCount++
				slog.Error("Stability check failed", "path", path, "error", err)
			} else {
				errorCount = 0
			}
		case <-d.timer.C:
			if err := safely(func() error { d.sweep(); return nil }); err != nil {
				errorCount++
				slog.Error("Stability sweep failed", "error", err)
			} else {
				errorCount = 0
			}
		}
	}

	slog.Error("Too many errors, watcher thread exiting")
	d.metrics.StageExits.WithLabelValues(media.StageWatcher).Inc()
	d.status <- media.StageReport{
		Stage: media.StageWatcher,
		Err:   errors.New("consecutive error limit reached"),
		Time:  d.now(),
	}
}

// observe records activity for a path and runs a stability sweep. Paths
// with no size yet are discarded; the next write event re-queues them.
func (d *Detector) observe(path string) error {
	if d.size(path) == 0 {
		slog.Debug("Discarding empty or missing path", "path", path)
		return nil
	}
	d.active[path] = d.now()
	d.sweep()
	return nil
}

// sweep promotes every path that has been quiet long enough, then re-arms
// the single re-check timer if anything is still settling. The previous
// timer is always stopped first; at most one re-check is ever outstanding.
func (d *Detector) sweep() {
	now := d.now()
	for path, lastSeen := range d.active {
		if now.Sub(lastSeen) > d.quiet {
			delete(d.active, path)
			d.readyq.Put(path)
			slog.Info("File stabilized", "path", path, "quiet", now.Sub(lastSeen).Round(time.Second))
		}
	}

	d.metrics.ActiveFiles.Set(float64(len(d.active)))

	if len(d.active) > 0 {
		stopTimer(d.timer)
		d.timer.Reset(d.recheck)
	}
}

// ActiveCount returns the size of the active set. Only safe to call from
// tests that drive the detector synchronously.
func (d *Detector) ActiveCount() int {
	return len(d.active)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// stopTimer stops a timer and drains a pending fire so a later Reset
// cannot deliver a stale tick.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// safely converts a panic in fn into an error so the caller's error
// counter sees it instead of the process dying.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
