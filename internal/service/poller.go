package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bnema/handsync/internal/domain"
	"github.com/bnema/handsync/internal/infrastructure/logger"
	"github.com/bnema/handsync/internal/port"
)

const (
	// defaultPollInterval is the pause between successful status checks.
	defaultPollInterval = 1 * time.Second
	// defaultRetryBackoff is the pause after a transient transport failure.
	// Retries are unbounded; a caller wanting a hard deadline wraps the
	// context it passes to Watch.
	defaultRetryBackoff = 5 * time.Second
)

// ErrAlreadyPolling is returned when a second live poll loop is started
// for the same job id.
var ErrAlreadyPolling = errors.New("job is already being polled")

type PollState string

const (
	PollStateIdle      PollState = "idle"
	PollStatePolling   PollState = "polling"
	PollStateCompleted PollState = "completed"
	PollStateFailed    PollState = "failed"
)

// validPollTransition enforces the allowed poll state machine edges.
func validPollTransition(from, to PollState) bool {
	switch from {
	case PollStateIdle:
		return to == PollStatePolling
	case PollStatePolling:
		return to == PollStateCompleted || to == PollStateFailed || to == PollStateIdle
	case PollStateCompleted, PollStateFailed:
		return to == PollStatePolling
	default:
		return false
	}
}

// Poller watches remote jobs until they reach a terminal status. Cycles
// for one job are strictly sequential: the next status request is only
// scheduled after the previous one resolves, so slow networks never queue
// requests. At most one live loop exists per job id.
type Poller struct {
	api     port.ProcessingAPI
	history port.HistoryStore
	bus     *EventBus
	sleeper port.Sleeper

	interval time.Duration
	backoff  time.Duration

	mu   sync.Mutex
	runs map[string]*pollRun
}

type pollRun struct {
	state  PollState
	cancel context.CancelFunc
}

// NewPoller wires a poller. history and bus may be nil; sleeper defaults
// to the wall clock and the intervals to 1s / 5s when zero.
func NewPoller(api port.ProcessingAPI, history port.HistoryStore, bus *EventBus, sleeper port.Sleeper, interval, backoff time.Duration) *Poller {
	if sleeper == nil {
		sleeper = NewTimeSleeper()
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &Poller{
		api:      api,
		history:  history,
		bus:      bus,
		sleeper:  sleeper,
		interval: interval,
		backoff:  backoff,
		runs:     make(map[string]*pollRun),
	}
}

// State reports the poll state for a job id; Idle when it was never
// watched.
func (p *Poller) State(jobID string) PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if run, ok := p.runs[jobID]; ok {
		return run.state
	}
	return PollStateIdle
}

// Cancel aborts the live poll loop for jobID, including any in-flight
// request. Canceling a finished or unknown job is a no-op.
func (p *Poller) Cancel(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if run, ok := p.runs[jobID]; ok && run.state == PollStatePolling {
		run.cancel()
	}
}

// CancelAll aborts every live poll loop. Used when the caller navigates
// away so no stale poller can resurrect a finished view.
func (p *Poller) CancelAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, run := range p.runs {
		if run.state == PollStatePolling {
			run.cancel()
		}
	}
}

func (p *Poller) setState(jobID string, to PollState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	run, ok := p.runs[jobID]
	if !ok {
		return
	}
	if !validPollTransition(run.state, to) {
		logger.Error.Printf("poller: invalid transition %s -> %s for job %s", run.state, to, jobID)
		return
	}
	run.state = to
}

// Watch polls jobID until it reaches a terminal status and returns the
// final snapshot. A server-reported failure returns the snapshot together
// with a JobFailedError; cancellation returns ErrCancelled. Transient
// transport failures are absorbed with a fixed backoff and never surfaced.
func (p *Poller) Watch(ctx context.Context, jobID string) (*domain.Job, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if run, ok := p.runs[jobID]; ok && run.state == PollStatePolling {
		p.mu.Unlock()
		return nil, ErrAlreadyPolling
	}
	p.runs[jobID] = &pollRun{state: PollStatePolling, cancel: cancel}
	p.mu.Unlock()

	for {
		job, err := p.api.GetJob(runCtx, jobID)
		if err != nil {
			if runCtx.Err() != nil {
				p.setState(jobID, PollStateIdle)
				return nil, domain.ErrCancelled
			}
			if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrNotFound) {
				p.setState(jobID, PollStateFailed)
				return nil, err
			}
			logger.Warn.Printf("poll job %s: transient failure, retrying in %s: %v", jobID, p.backoff, err)
			if err := p.sleeper.Sleep(runCtx, p.backoff); err != nil {
				p.setState(jobID, PollStateIdle)
				return nil, domain.ErrCancelled
			}
			continue
		}

		p.publish(jobID, job)
		p.record(jobID, job)

		switch job.Status {
		case domain.JobStatusCompleted:
			p.setState(jobID, PollStateCompleted)
			return job, nil
		case domain.JobStatusError:
			p.setState(jobID, PollStateFailed)
			return job, &domain.JobFailedError{JobID: jobID, Detail: job.ErrorDetail}
		default:
			if err := p.sleeper.Sleep(runCtx, p.interval); err != nil {
				p.setState(jobID, PollStateIdle)
				return nil, domain.ErrCancelled
			}
		}
	}
}

func (p *Poller) publish(jobID string, job *domain.Job) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(jobID, Event{
		Status:      job.Status,
		Progress:    job.Progress,
		Message:     job.Message,
		CurrentStep: job.CurrentStep,
		ETASeconds:  job.ETASeconds,
	})
}

func (p *Poller) record(jobID string, job *domain.Job) {
	if p.history == nil {
		return
	}
	err := p.history.UpdateStatus(jobID, job.Status, job.Progress, job.ErrorDetail)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn.Printf("record job %s status: %v", jobID, err)
	}
}
