package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pleitolab/eleicometro/internal/errors"
	"github.com/pleitolab/eleicometro/internal/monitoring"
	"github.com/pleitolab/eleicometro/internal/projection"
)

// Status is the caller-visible lifecycle state of a projection job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// View is the externally visible snapshot of a job.
type View struct {
	ID         string              `json:"id"`
	Kind       projection.Kind     `json:"kind"`
	Status     Status              `json:"status"`
	Progress   float64             `json:"progress"`
	Result     *projection.Outcome `json:"result,omitempty"`
	Error      string              `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

type job struct {
	view   View
	cancel context.CancelFunc
}

// Manager runs simulations as background jobs and tracks their lifecycle.
// Progress ticks from the engine are stored on the job and relayed to the
// broadcaster for external subscribers; the engine itself stays unaware
// of any of this.
type Manager struct {
	mu          sync.RWMutex
	jobs        map[string]*job
	engine      *projection.Engine
	logger      *monitoring.Logger
	metrics     *monitoring.Metrics
	broadcaster *Broadcaster
}

// NewManager creates a job manager around an engine. The broadcaster may
// be nil when no external relay is configured.
func NewManager(engine *projection.Engine, logger *monitoring.Logger, metrics *monitoring.Metrics, broadcaster *Broadcaster) *Manager {
	return &Manager{
		jobs:        make(map[string]*job),
		engine:      engine,
		logger:      logger,
		metrics:     metrics,
		broadcaster: broadcaster,
	}
}

// Submit enqueues a simulation and returns its pending view immediately.
func (m *Manager) Submit(req *projection.Request) View {
	ctx, cancel := context.WithCancel(context.Background())

	j := &job{
		view: View{
			ID:        uuid.NewString(),
			Kind:      req.Kind,
			Status:    StatusPending,
			CreatedAt: time.Now(),
		},
		cancel: cancel,
	}

	m.mu.Lock()
	m.jobs[j.view.ID] = j
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncrementJobsSubmitted()
	}
	m.logger.JobLogger("submitted", j.view.ID, string(StatusPending), 0)

	go m.run(ctx, j, req)

	return j.view
}

func (m *Manager) run(ctx context.Context, j *job, req *projection.Request) {
	// The job goroutine must never take the process down; a panic becomes
	// a failed job like any other engine error.
	defer func() {
		if r := recover(); r != nil {
			now := time.Now()
			m.update(j, func(v *View) {
				v.Status = StatusFailed
				v.Error = fmt.Sprintf("panic during simulation: %v", r)
				v.FinishedAt = &now
			})
			m.logger.JobLogger("panicked", j.view.ID, string(StatusFailed), 0)
			m.publish(j)
		}
	}()

	m.update(j, func(v *View) { v.Status = StatusRunning })
	m.publish(j)

	outcome, err := m.engine.Run(ctx, req, func(fraction float64) {
		m.update(j, func(v *View) {
			if fraction > v.Progress {
				v.Progress = fraction
			}
		})
		m.publish(j)
	})

	now := time.Now()
	m.update(j, func(v *View) {
		v.FinishedAt = &now
		switch {
		case err == nil:
			v.Status = StatusCompleted
			v.Progress = 1
			v.Result = outcome
		case errors.IsCancelled(err):
			v.Status = StatusCancelled
			v.Error = err.Error()
		default:
			v.Status = StatusFailed
			v.Error = err.Error()
		}
	})

	if m.metrics != nil {
		m.metrics.RecordSimulation(req.Iterations, err != nil)
	}

	snapshot, _ := m.Get(j.view.ID)
	m.logger.JobLogger("finished", snapshot.ID, string(snapshot.Status), snapshot.Progress)
	m.publish(j)
}

// Get returns a snapshot of a job by id.
func (m *Manager) Get(id string) (View, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return View{}, false
	}
	return j.view, true
}

// Cancel requests cooperative cancellation of a running job. It reports
// whether the job exists and was still cancellable.
func (m *Manager) Cancel(id string) bool {
	m.mu.RLock()
	j, ok := m.jobs[id]
	var status Status
	if ok {
		status = j.view.Status
	}
	m.mu.RUnlock()

	if !ok || (status != StatusPending && status != StatusRunning) {
		return false
	}

	j.cancel()
	if m.metrics != nil {
		m.metrics.IncrementJobsCancelled()
	}
	m.logger.JobLogger("cancel_requested", id, string(status), 0)
	return true
}

// List returns snapshots of all known jobs, newest first.
func (m *Manager) List() []View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	views := make([]View, 0, len(m.jobs))
	for _, j := range m.jobs {
		views = append(views, j.view)
	}
	return views
}

func (m *Manager) update(j *job, fn func(*View)) {
	m.mu.Lock()
	fn(&j.view)
	m.mu.Unlock()
}

func (m *Manager) publish(j *job) {
	if m.broadcaster == nil {
		return
	}
	m.mu.RLock()
	v := j.view
	m.mu.RUnlock()
	m.broadcaster.Publish(v.ID, string(v.Status), v.Progress)
}
