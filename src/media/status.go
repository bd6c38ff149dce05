package media

import "time"

// Pipeline stage names used in health reports and metrics labels.
const (
	StageWatcher = "watcher"
	StageWorker  = "worker"
)

// StageReport is sent on the supervisor's status channel when a pipeline
// stage gives up after too many consecutive errors. A stage that reports
// is gone for good; restarting is the supervisor's (or operator's) call.
type StageReport struct {
	Stage string
	Err   error
	Time  time.Time
}
