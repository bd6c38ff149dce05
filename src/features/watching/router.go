package watching

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"medio/src/features/config"
	"medio/src/features/metrics"
	"medio/src/infra/queue"
	"medio/src/media"
)

// Router classifies raw file system events and decides their destination
// queue. Creation and write events go through the stability detector;
// moves into the watched directory are atomic and skip straight to the
// ready queue.
type Router struct {
	cfg     *config.Manager
	watchq  *queue.Unbounded
	readyq  *queue.Unbounded
	metrics *metrics.Set
}

// NewRouter creates a new event router.
func NewRouter(cfg *config.Manager, watchq, readyq *queue.Unbounded, set *metrics.Set) *Router {
	return &Router{
		cfg:     cfg,
		watchq:  watchq,
		readyq:  readyq,
		metrics: set,
	}
}

// Bootstrap lists the source directory non-recursively and enqueues every
// accepted media file for stability checking. This recovers files that
// arrived while the process was down.
func (r *Router) Bootstrap() error {
	sourcePath := r.cfg.Get().SourcePath
	entries, err := os.ReadDir(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to list source directory %s: %w", sourcePath, err)
	}

	queued := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !media.Accepted(entry.Name()) {
			continue
		}
		r.watchq.Put(filepath.Join(sourcePath, entry.Name()))
		queued++
	}

	slog.Info("Startup reconciliation finished", "path", sourcePath, "queued", queued)
	return nil
}

// Handle routes a single event. It never touches file contents and never
// blocks; unaccepted or malformed events are dropped.
func (r *Router) Handle(ev media.Event) {
	if ev.Path == "" || !media.Accepted(ev.Path) {
		return
	}

	r.metrics.EventsSeen.WithLabelValues(string(ev.Kind)).Inc()

	switch ev.Kind {
	case media.Created, media.Written:
		// Network copies fire these repeatedly while the file grows, so
		// the path needs debouncing before it can be processed.
		r.watchq.Put(ev.Path)
	case media.MovedIn:
		// A move is atomic at the filesystem level. No debounce needed.
		r.readyq.Put(ev.Path)
	default:
		slog.Debug("Ignoring event of unknown kind", "kind", ev.Kind, "path", ev.Path)
	}
}
