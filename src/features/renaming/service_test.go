package renaming

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"medio/src/features/config"
	"medio/src/features/metrics"
	"medio/src/infra/queue"
	"medio/src/media"
)

type fakeRenamer struct {
	fn func(ctx context.Context, source string) (media.RenameResult, error)
}

func (f *fakeRenamer) Rename(ctx context.Context, source string) (media.RenameResult, error) {
	return f.fn(ctx, source)
}

type recordingRecorder struct {
	mu         sync.Mutex
	renames    [][2]string
	duplicates [][2]string
}

func (r *recordingRecorder) RecordRename(_ context.Context, source, destination string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renames = append(r.renames, [2]string{source, destination})
	return nil
}

func (r *recordingRecorder) RecordDuplicate(_ context.Context, path, primary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.duplicates = append(r.duplicates, [2]string{path, primary})
	return nil
}

func newTestService(t *testing.T, cfg *config.Config, renamer Renamer) (*Service, *recordingRecorder, *queue.Unbounded, chan media.StageReport) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{
			SourcePath:      "/source",
			DestinationPath: "/dest",
			Rename: config.Rename{
				Format:           config.DefaultDestinationFormat,
				DeleteDuplicates: true,
				Workers:          1,
			},
		}
	}
	readyq := queue.NewUnbounded()
	recorder := &recordingRecorder{}
	status := make(chan media.StageReport, 4)
	service := NewService(config.NewManager(cfg), readyq, renamer, recorder, NopNotifier{}, nil, metrics.NewSet(), status)
	return service, recorder, readyq, status
}

func TestProcessFile_RecordsDestinationFromRenamer(t *testing.T) {
	renamer := &fakeRenamer{fn: func(_ context.Context, source string) (media.RenameResult, error) {
		return media.RenameResult{
			Source:      source,
			Destination: "/dest/2024/03/15_120000.jpg",
			Renamed:     true,
		}, nil
	}}
	service, recorder, _, _ := newTestService(t, nil, renamer)

	if err := service.processFile(context.Background(), "/source/IMG_001.JPG"); err != nil {
		t.Fatalf("processFile returned error: %v", err)
	}

	if len(recorder.renames) != 1 {
		t.Fatalf("expected 1 recorded rename, got %d", len(recorder.renames))
	}
	if got := recorder.renames[0]; got[0] != "/source/IMG_001.JPG" || got[1] != "/dest/2024/03/15_120000.jpg" {
		t.Errorf("unexpected recorded rename %v", got)
	}
	if len(recorder.duplicates) != 0 {
		t.Error("no duplicate check should run without a marker")
	}
}

func TestProcessFile_RenamerFailureIsSwallowed(t *testing.T) {
	renamer := &fakeRenamer{fn: func(context.Context, string) (media.RenameResult, error) {
		return media.RenameResult{}, errors.New("exiftool exited 1: bad file")
	}}
	service, recorder, _, _ := newTestService(t, nil, renamer)

	if err := service.processFile(context.Background(), "/source/broken.jpg"); err != nil {
		t.Fatalf("per-item failure must not propagate, got %v", err)
	}
	if len(recorder.renames) != 0 {
		t.Error("failed rename must not be recorded")
	}
}

func TestProcessFile_SuccessWithoutDestinationWarnsOnly(t *testing.T) {
	renamer := &fakeRenamer{fn: func(_ context.Context, source string) (media.RenameResult, error) {
		return media.RenameResult{Source: source, Renamed: false}, nil
	}}
	service, recorder, _, _ := newTestService(t, nil, renamer)

	if err := service.processFile(context.Background(), "/source/IMG_002.JPG"); err != nil {
		t.Fatal(err)
	}
	if len(recorder.renames) != 0 {
		t.Error("nothing should be recorded when no destination was learned")
	}
}

func duplicateFixture(t *testing.T, primaryContent, markedContent string) (marked, primary string) {
	t.Helper()
	dir := t.TempDir()
	primary = filepath.Join(dir, "15_120000.jpg")
	marked = filepath.Join(dir, "15_120000-1.jpg")
	if err := os.WriteFile(primary, []byte(primaryContent), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(marked, []byte(markedContent), 0644); err != nil {
		t.Fatal(err)
	}
	return marked, primary
}

func dedupService(t *testing.T, marked string, format string, deleteDups bool) (*Service, *recordingRecorder) {
	t.Helper()
	renamer := &fakeRenamer{fn: func(_ context.Context, source string) (media.RenameResult, error) {
		return media.RenameResult{Source: source, Destination: marked, Renamed: true}, nil
	}}
	cfg := &config.Config{
		SourcePath:      "/source",
		DestinationPath: "/dest",
		Rename: config.Rename{
			Format:           format,
			DeleteDuplicates: deleteDups,
			Workers:          1,
		},
	}
	service, recorder, _, _ := newTestService(t, cfg, renamer)
	return service, recorder
}

func TestProcessFile_RemovesByteIdenticalDuplicate(t *testing.T) {
	marked, primary := duplicateFixture(t, "same bytes", "same bytes")
	service, recorder := dedupService(t, marked, config.DefaultDestinationFormat, true)

	if err := service.processFile(context.Background(), "/source/IMG_001.JPG"); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(marked); !os.IsNotExist(err) {
		t.Error("marked duplicate should have been deleted")
	}
	if _, err := os.Stat(primary); err != nil {
		t.Error("primary must be retained")
	}
	if len(recorder.duplicates) != 1 {
		t.Fatalf("expected 1 recorded duplicate, got %d", len(recorder.duplicates))
	}
}

func TestProcessFile_KeepsByteDifferentCollision(t *testing.T) {
	marked, _ := duplicateFixture(t, "first shot", "other shot")
	service, recorder := dedupService(t, marked, config.DefaultDestinationFormat, true)

	if err := service.processFile(context.Background(), "/source/IMG_001.JPG"); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(marked); err != nil {
		t.Error("byte-different collision must be kept")
	}
	if len(recorder.duplicates) != 0 {
		t.Error("no duplicate removal should be recorded")
	}
}

func TestProcessFile_DedupGatedOnFormatAndSetting(t *testing.T) {
	t.Run("custom format", func(t *testing.T) {
		marked, _ := duplicateFixture(t, "same bytes", "same bytes")
		service, _ := dedupService(t, marked, "%Y/custom.%%e", true)
		if err := service.processFile(context.Background(), "/source/a.jpg"); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(marked); err != nil {
			t.Error("dedup must not fire with a non-default format")
		}
	})

	t.Run("deletion disabled", func(t *testing.T) {
		marked, _ := duplicateFixture(t, "same bytes", "same bytes")
		service, _ := dedupService(t, marked, config.DefaultDestinationFormat, false)
		if err := service.processFile(context.Background(), "/source/a.jpg"); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(marked); err != nil {
			t.Error("dedup must not fire when deletion is disabled")
		}
	})
}

func TestWorker_FailStopAfterConsecutiveErrors(t *testing.T) {
	renamer := &fakeRenamer{fn: func(context.Context, string) (media.RenameResult, error) {
		return media.RenameResult{}, nil
	}}
	service, _, readyq, status := newTestService(t, nil, renamer)

	var calls atomic.Int32
	service.process = func(context.Context, string) error {
		calls.Add(1)
		return errors.New("injected failure")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.Start(ctx)

	for i := 0; i < maxConsecutiveErrors+3; i++ {
		readyq.Put("/source/poison.jpg")
	}

	select {
	case report := <-status:
		if report.Stage != media.StageWorker {
			t.Errorf("unexpected stage %q", report.Stage)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no stage report after the error limit")
	}

	// The worker is gone for good; the extra items must never be consumed.
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != maxConsecutiveErrors {
		t.Errorf("worker processed %d items after fail-stop, want %d", got, maxConsecutiveErrors)
	}
}
