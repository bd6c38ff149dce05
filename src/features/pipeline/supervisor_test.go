package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"medio/src/features/config"
	"medio/src/features/metrics"
	"medio/src/features/renaming"
	"medio/src/media"
)

type fakeRenamer struct {
	mu    sync.Mutex
	seen  []string
	sawIt chan string
}

func (f *fakeRenamer) Rename(_ context.Context, source string) (media.RenameResult, error) {
	f.mu.Lock()
	f.seen = append(f.seen, source)
	f.mu.Unlock()
	if f.sawIt != nil {
		f.sawIt <- source
	}
	return media.RenameResult{
		Source:      source,
		Destination: filepath.Join("/dest", filepath.Base(source)),
		Renamed:     true,
	}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	stages []string
}

func (n *recordingNotifier) RenameCompleted(source, destination string) {}

func (n *recordingNotifier) DuplicateRemoved(path, primary string) {}

func (n *recordingNotifier) StageFailed(stage string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stages = append(n.stages, stage)
}

func (n *recordingNotifier) failedStages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.stages...)
}

func newTestSupervisor(t *testing.T, renamer renaming.Renamer, notifier renaming.Notifier) (*Supervisor, string) {
	t.Helper()
	source := t.TempDir()
	cfg := config.NewManager(&config.Config{
		SourcePath:      source,
		DestinationPath: t.TempDir(),
		Rename:          config.Rename{Workers: 1},
		Watcher:         config.Watcher{QuietPeriodSeconds: 0, RecheckSeconds: 1},
	})

	supervisor, err := NewSupervisor(cfg, renamer, renaming.NopRecorder{}, notifier, nil, metrics.NewSet())
	if err != nil {
		t.Fatal(err)
	}
	return supervisor, source
}

func TestSupervisor_ProcessesPreexistingFile(t *testing.T) {
	renamer := &fakeRenamer{sawIt: make(chan string, 1)}
	supervisor, source := newTestSupervisor(t, renamer, renaming.NopNotifier{})

	path := filepath.Join(source, "IMG_001.JPG")
	if err := os.WriteFile(path, []byte("image bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := supervisor.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer supervisor.Stop()

	select {
	case got := <-renamer.sawIt:
		if got != path {
			t.Errorf("renamed %s, want %s", got, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pre-existing file never reached the executor")
	}
}

func TestSupervisor_ProcessesNewFile(t *testing.T) {
	renamer := &fakeRenamer{sawIt: make(chan string, 1)}
	supervisor, source := newTestSupervisor(t, renamer, renaming.NopNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := supervisor.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer supervisor.Stop()

	path := filepath.Join(source, "VID_002.mp4")
	if err := os.WriteFile(path, []byte("video bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-renamer.sawIt:
		if got != path {
			t.Errorf("renamed %s, want %s", got, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("new file never reached the executor")
	}
}

func TestSupervisor_RecordsStageFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	supervisor, _ := newTestSupervisor(t, &fakeRenamer{}, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go supervisor.monitor(ctx)

	supervisor.status <- media.StageReport{
		Stage: media.StageWorker,
		Err:   errors.New("consecutive error limit reached"),
		Time:  time.Now(),
	}

	deadline := time.Now().Add(2 * time.Second)
	for supervisor.Healthy() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if supervisor.Healthy() {
		t.Fatal("supervisor still reports healthy after a stage failure")
	}

	snapshot := supervisor.Snapshot()
	var worker *StageHealth
	for i := range snapshot.Stages {
		if snapshot.Stages[i].Stage == media.StageWorker {
			worker = &snapshot.Stages[i]
		}
	}
	if worker == nil || worker.Healthy {
		t.Errorf("worker stage should be unhealthy in snapshot: %+v", snapshot.Stages)
	}

	if got := notifier.failedStages(); len(got) != 1 || got[0] != media.StageWorker {
		t.Errorf("operator notification missing or duplicated: %v", got)
	}
}

func TestSupervisor_SnapshotReportsQueues(t *testing.T) {
	supervisor, _ := newTestSupervisor(t, &fakeRenamer{}, renaming.NopNotifier{})

	supervisor.watchq.Put("/source/a.jpg")
	supervisor.watchq.Put("/source/b.jpg")

	// The pump may have handed one item to the consumer side already.
	snapshot := supervisor.Snapshot()
	if snapshot.WatchQueue < 1 {
		t.Errorf("watch queue depth %d, want at least 1", snapshot.WatchQueue)
	}
}
