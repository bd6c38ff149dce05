// Package jobs runs operator-triggered background tasks, such as a
// rescan of the source directory, and tracks their lifecycle.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"medio/src/features/config"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job is one tracked background task.
type Job struct {
	ID         string
	Type       string
	Name       string
	Status     JobStatus
	Message    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	LogPath    string
	Logger     *slog.Logger
	cancelFunc context.CancelFunc
	cancelled  bool
}

// Task defines the logic for one job type.
type Task interface {
	Execute(ctx context.Context, job *Job) error
}

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc func(ctx context.Context, job *Job) error

func (f TaskFunc) Execute(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

// Service manages background jobs. At most one job of a given type runs
// at a time; later requests queue behind it.
type Service struct {
	jobs   map[string]*Job
	tasks  map[string]Task
	mu     sync.RWMutex
	config *config.Jobs
}

// NewService creates a new job service.
func NewService(cfg *config.Jobs) *Service {
	return &Service{
		jobs:   make(map[string]*Job),
		tasks:  make(map[string]Task),
		config: cfg,
	}
}

// RegisterTask registers the task implementation for a job type.
func (s *Service) RegisterTask(jobType string, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[jobType] = task
}

// StartJob queues a new job and starts it immediately if no job of the
// same type is running.
func (s *Service) StartJob(jobType string, name string) (string, error) {
	s.mu.RLock()
	_, known := s.tasks[jobType]
	s.mu.RUnlock()
	if !known {
		return "", fmt.Errorf("unknown job type %q", jobType)
	}

	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Name:      name,
		Status:    JobStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.attachLogger(job); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	if !s.isJobTypeRunning(jobType) {
		job.Status = JobStatusRunning
		s.mu.Unlock()
		go s.executeJob(job)
	} else {
		s.mu.Unlock()
	}

	return job.ID, nil
}

func (s *Service) attachLogger(job *Job) error {
	if !s.config.Log {
		job.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}

	if err := os.MkdirAll(s.config.LogPath, 0755); err != nil {
		return fmt.Errorf("failed to create job log directory: %w", err)
	}
	logName := fmt.Sprintf("%s-%s.log", time.Now().Format("2006-01-02"), job.ID)
	logPath := filepath.Join(s.config.LogPath, logName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open job log file: %w", err)
	}
	job.Logger = slog.New(slog.NewTextHandler(logFile, nil))
	job.LogPath = logPath
	return nil
}

func (s *Service) executeJob(job *Job) {
	s.mu.Lock()
	task := s.tasks[job.Type]
	ctx, cancel := context.WithCancel(context.Background())
	job.cancelFunc = cancel
	s.mu.Unlock()

	job.Logger.Info("Starting job", "name", job.Name, "type", job.Type)
	err := task.Execute(ctx, job)

	s.mu.Lock()
	cancelled := job.cancelled
	s.mu.Unlock()

	switch {
	case cancelled || errors.Is(err, context.Canceled):
		s.updateJobStatus(job.ID, JobStatusCancelled, "Job cancelled")
	case err != nil:
		job.Logger.Error("Job failed", "error", err)
		s.updateJobStatus(job.ID, JobStatusFailed, err.Error())
	default:
		job.Logger.Info("Job finished successfully", "name", job.Name)
		s.updateJobStatus(job.ID, JobStatusCompleted, "Job completed successfully")
	}

	s.startNextPendingJob(job.Type)
}

func (s *Service) updateJobStatus(jobID string, status JobStatus, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, exists := s.jobs[jobID]; exists {
		job.Status = status
		job.Message = message
		job.UpdatedAt = time.Now()
	}
}

// CancelJob stops a pending or running job.
func (s *Service) CancelJob(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return errors.New("job not found")
	}

	job.cancelled = true
	job.Status = JobStatusCancelled
	job.Message = "Job cancelled"
	job.UpdatedAt = time.Now()

	if job.cancelFunc != nil {
		job.cancelFunc()
	}
	return nil
}

// GetJob returns a job by ID.
func (s *Service) GetJob(jobID string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[jobID]
	return job, exists
}

// GetJobs returns all tracked jobs.
func (s *Service) GetJobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// isJobTypeRunning reports whether a job of this type is currently
// running. Callers hold s.mu.
func (s *Service) isJobTypeRunning(jobType string) bool {
	for _, job := range s.jobs {
		if job.Type == jobType && job.Status == JobStatusRunning {
			return true
		}
	}
	return false
}

func (s *Service) startNextPendingJob(jobType string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var nextJob *Job
	for _, job := range s.jobs {
		if job.Type == jobType && job.Status == JobStatusPending {
			if nextJob == nil || job.CreatedAt.Before(nextJob.CreatedAt) {
				nextJob = job
			}
		}
	}
	if nextJob != nil {
		nextJob.Status = JobStatusRunning
		go s.executeJob(nextJob)
	}
}

// CleanupOldJobs drops finished jobs (and their log files) older than
// maxAge.
func (s *Service) CleanupOldJobs(maxAge time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > maxAge &&
			(job.Status == JobStatusCompleted || job.Status == JobStatusFailed || job.Status == JobStatusCancelled) {
			if job.LogPath != "" {
				os.Remove(job.LogPath)
			}
			delete(s.jobs, id)
		}
	}
}
