package watching

import (
	"context"
	"errors"
	"testing"
	"time"

	"medio/src/features/metrics"
	"medio/src/infra/queue"
	"medio/src/media"
)

func newTestDetector(t *testing.T) (*Detector, *queue.Unbounded, *queue.Unbounded, chan media.StageReport) {
	t.Helper()
	watchq := queue.NewUnbounded()
	readyq := queue.NewUnbounded()
	status := make(chan media.StageReport, 1)
	d := NewDetector(30*time.Second, 5*time.Second, watchq, readyq, metrics.NewSet(), status)
	d.timer = time.NewTimer(time.Hour)
	stopTimer(d.timer)
	return d, watchq, readyq, status
}

func receivePath(t *testing.T, q *queue.Unbounded) string {
	t.Helper()
	select {
	case path := <-q.Out():
		return path
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for queue item")
		return ""
	}
}

func TestDetector_DiscardsZeroSizePaths(t *testing.T) {
	d, _, _, _ := newTestDetector(t)
	d.size = func(string) int64 { return 0 }

	if err := d.observe("/source/empty.jpg"); err != nil {
		t.Fatalf("observe returned error: %v", err)
	}
	if d.ActiveCount() != 0 {
		t.Errorf("zero-size path entered the active set")
	}
}

func TestDetector_PromotesAfterQuietPeriod(t *testing.T) {
	d, _, readyq, _ := newTestDetector(t)
	d.size = func(string) int64 { return 1024 }

	clock := time.Now()
	d.now = func() time.Time { return clock }

	if err := d.observe("/source/IMG_001.JPG"); err != nil {
		t.Fatal(err)
	}
	if d.ActiveCount() != 1 {
		t.Fatal("path should be in the active set")
	}
	if readyq.Len() != 0 {
		t.Fatal("path promoted before the quiet period elapsed")
	}

	clock = clock.Add(31 * time.Second)
	d.sweep()

	if got := receivePath(t, readyq); got != "/source/IMG_001.JPG" {
		t.Errorf("unexpected promoted path %q", got)
	}
	if d.ActiveCount() != 0 {
		t.Error("promoted path should leave the active set")
	}
}

func TestDetector_NewActivityReArmsQuietPeriod(t *testing.T) {
	d, _, readyq, _ := newTestDetector(t)
	d.size = func(string) int64 { return 1024 }

	clock := time.Now()
	d.now = func() time.Time { return clock }

	if err := d.observe("/source/video.mp4"); err != nil {
		t.Fatal(err)
	}

	// More writes arrive 20s later; the quiet period restarts from here.
	clock = clock.Add(20 * time.Second)
	if err := d.observe("/source/video.mp4"); err != nil {
		t.Fatal(err)
	}

	// 25s after the last write: not yet quiet for 30s.
	clock = clock.Add(25 * time.Second)
	d.sweep()
	if readyq.Len() != 0 {
		t.Fatal("path promoted before a full quiet period since the last write")
	}

	clock = clock.Add(6 * time.Second)
	d.sweep()
	if got := receivePath(t, readyq); got != "/source/video.mp4" {
		t.Errorf("unexpected promoted path %q", got)
	}
}

func TestDetector_FailStopAfterConsecutiveErrors(t *testing.T) {
	d, watchq, _, status := newTestDetector(t)
	d.handle = func(string) error { return errors.New("injected failure") }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	for i := 0; i < maxConsecutiveErrors; i++ {
		watchq.Put("/source/poison.jpg")
	}

	select {
	case report := <-status:
		if report.Stage != media.StageWatcher {
			t.Errorf("unexpected stage %q", report.Stage)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no stage report after the error limit")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("detector kept running after the error limit")
	}
}

func TestDetector_SuccessResetsErrorCount(t *testing.T) {
	d, watchq, _, status := newTestDetector(t)

	calls := 0
	d.handle = func(string) error {
		calls++
		// Fail four times, succeed once, repeat. The limit must never hit.
		if calls%maxConsecutiveErrors == 0 {
			return nil
		}
		return errors.New("injected failure")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	for i := 0; i < maxConsecutiveErrors*3; i++ {
		watchq.Put("/source/flaky.jpg")
	}

	select {
	case <-status:
		t.Fatal("detector exited despite interleaved successes")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestDetector_PanicCountsAsError(t *testing.T) {
	if err := safely(func() error { panic("boom") }); err == nil {
		t.Fatal("expected panic to surface as error")
	}
}
