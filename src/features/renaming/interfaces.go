package renaming

import (
	"context"

	"medio/src/media"
)

// Renamer is the external rename step. Implementations invoke a metadata
// tool that computes the destination name from embedded timestamps and
// performs the move itself.
type Renamer interface {
	Rename(ctx context.Context, source string) (media.RenameResult, error)
}

// Recorder persists pipeline outcomes for the operator. Recording failures
// are logged and never interrupt processing.
type Recorder interface {
	RecordRename(ctx context.Context, source, destination string) error
	RecordDuplicate(ctx context.Context, path, primary string) error
}

// Notifier pushes human-facing notifications for significant outcomes.
type Notifier interface {
	RenameCompleted(source, destination string)
	DuplicateRemoved(path, primary string)
	StageFailed(stage string)
}

// Thumbnailer generates a preview image for a renamed file.
type Thumbnailer interface {
	Generate(path string) error
}

// NopRecorder is used when the history store is disabled.
type NopRecorder struct{}

func (NopRecorder) RecordRename(context.Context, string, string) error { return nil }

func (NopRecorder) RecordDuplicate(context.Context, string, string) error { return nil }

// NopNotifier is used when no notification channel is configured.
type NopNotifier struct{}

func (NopNotifier) RenameCompleted(string, string) {}

func (NopNotifier) DuplicateRemoved(string, string) {}

func (NopNotifier) StageFailed(string) {}
