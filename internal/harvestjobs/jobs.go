// Package harvestjobs runs pipeline runs in the background on behalf of the
// admin API and keeps their status in memory.
package harvestjobs

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/EmpoweredVote/geoharvest/internal/config"
	"github.com/EmpoweredVote/geoharvest/internal/pipeline"
)

// Job statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var (
	// ErrJobRunning is returned by Start while another run is in progress.
	ErrJobRunning = errors.New("a harvest run is already in progress")

	// ErrShuttingDown is returned by Start once Shutdown has been called.
	ErrShuttingDown = errors.New("harvest manager is shutting down")
)

// Runner is the part of *pipeline.Pipeline a Manager drives.
type Runner interface {
	WindowFrom(start time.Time) pipeline.Window
	Run(ctx context.Context, w pipeline.Window) (pipeline.Summary, error)
}

// Job tracks one background harvest run.
type Job struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"` // "running", "completed", "failed"
	StartDatum  string            `json:"start_datum"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Error       string            `json:"error,omitempty"`
	Summary     *pipeline.Summary `json:"summary,omitempty"`
}

// Manager starts runs one at a time and remembers every job it started.
type Manager struct {
	runner       Runner
	defaultStart time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	jobs    map[string]*Job
	running string
	closed  bool
}

// NewManager creates a Manager whose runs start at defaultStart unless the
// caller asks for another date.
func NewManager(runner Runner, defaultStart time.Time) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		runner:       runner,
		defaultStart: defaultStart,
		ctx:          ctx,
		cancel:       cancel,
		jobs:         make(map[string]*Job),
	}
}

// Start launches a run in the background. A zero start uses the default
// start date.
func (m *Manager) Start(start time.Time) (Job, error) {
	if start.IsZero() {
		start = m.defaultStart
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Job{}, ErrShuttingDown
	}
	if m.running != "" {
		m.mu.Unlock()
		return Job{}, ErrJobRunning
	}
	job := &Job{
		ID:         uuid.New().String(),
		Status:     StatusRunning,
		StartDatum: start.Format(config.DateLayout),
		StartedAt:  time.Now(),
	}
	m.jobs[job.ID] = job
	m.running = job.ID
	snapshot := *job
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(job, start)
	return snapshot, nil
}

func (m *Manager) run(job *Job, start time.Time) {
	defer m.wg.Done()
	log.Printf("[harvestjobs] job=%s starting run from %s", job.ID, job.StartDatum)

	summary, err := m.runner.Run(m.ctx, m.runner.WindowFrom(start))

	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	job.CompletedAt = &now
	job.Summary = &summary
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		log.Printf("[harvestjobs] job=%s failed: %v", job.ID, err)
	} else {
		job.Status = StatusCompleted
		log.Printf("[harvestjobs] job=%s completed in %s", job.ID, now.Sub(job.StartedAt).Round(time.Millisecond))
	}
	m.running = ""
}

// Get returns a snapshot of one job.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.snapshot(), true
}

// List returns snapshots of every job, oldest first.
func (m *Manager) List() []Job {
	m.mu.Lock()
	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.snapshot())
	}
	m.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.Before(jobs[j].StartedAt) })
	return jobs
}

// Shutdown refuses new jobs, cancels the running one and waits for it to
// return.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

// Wait blocks until no job is running.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// snapshot must be called with the manager lock held.
func (j *Job) snapshot() Job {
	s := *j
	if j.Summary != nil {
		sum := *j.Summary
		s.Summary = &sum
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		s.CompletedAt = &t
	}
	return s
}
