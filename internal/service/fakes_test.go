package service

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/bnema/handsync/internal/domain"
)

// fakeAPI scripts GetJob responses and records call counts. Submit and the
// artifact fetches are programmable per test.
type fakeAPI struct {
	mu       sync.Mutex
	jobCalls int

	// jobResponses is consumed one entry per GetJob call; the last entry
	// repeats once exhausted.
	jobResponses []jobResponse

	submitFn   func(ctx context.Context, filename string, file io.ReadSeeker, opts domain.ProcessOptions) (*domain.Job, error)
	trackingFn func(ctx context.Context, jobID string) ([]domain.TrackingFrame, error)
	analysisFn func(ctx context.Context, jobID string) (*domain.AIAnalysis, error)
	statsFn    func(ctx context.Context, jobID string) (json.RawMessage, error)
}

type jobResponse struct {
	job *domain.Job
	err error
}

func (f *fakeAPI) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobCalls++
	if len(f.jobResponses) == 0 {
		return &domain.Job{ID: jobID, Status: domain.JobStatusProcessing}, nil
	}
	r := f.jobResponses[0]
	if len(f.jobResponses) > 1 {
		f.jobResponses = f.jobResponses[1:]
	}
	return r.job, r.err
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobCalls
}

func (f *fakeAPI) Submit(ctx context.Context, filename string, file io.ReadSeeker, opts domain.ProcessOptions) (*domain.Job, error) {
	if f.submitFn != nil {
		return f.submitFn(ctx, filename, file, opts)
	}
	return &domain.Job{ID: "job-1", Status: domain.JobStatusPending}, nil
}

func (f *fakeAPI) GetTracking(ctx context.Context, jobID string) ([]domain.TrackingFrame, error) {
	if f.trackingFn != nil {
		return f.trackingFn(ctx, jobID)
	}
	return nil, nil
}

func (f *fakeAPI) GetAnalysis(ctx context.Context, jobID string) (*domain.AIAnalysis, error) {
	if f.analysisFn != nil {
		return f.analysisFn(ctx, jobID)
	}
	return &domain.AIAnalysis{}, nil
}

func (f *fakeAPI) GetStats(ctx context.Context, jobID string) (json.RawMessage, error) {
	if f.statsFn != nil {
		return f.statsFn(ctx, jobID)
	}
	return nil, nil
}

func (f *fakeAPI) DownloadVideo(ctx context.Context, jobID string) (io.ReadCloser, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeAPI) DownloadCommands(ctx context.Context, jobID string) (io.ReadCloser, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeAPI) VideoURL(jobID string) string {
	return "http://example.test/hand/video/" + jobID
}

func (f *fakeAPI) ListJobs(ctx context.Context) ([]domain.Job, error) { return nil, nil }
func (f *fakeAPI) DeleteJob(ctx context.Context, jobID string) error  { return nil }
func (f *fakeAPI) DeleteAllJobs(ctx context.Context) (int, error)     { return 0, nil }
func (f *fakeAPI) Health(ctx context.Context) error                   { return nil }

// fakeSleeper records requested durations and returns instantly, so poll
// loops run on virtual time.
type fakeSleeper struct {
	mu     sync.Mutex
	slept  []time.Duration
	onWait func()
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if s.onWait != nil {
		s.onWait()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.slept = append(s.slept, d)
	s.mu.Unlock()
	return nil
}

func (s *fakeSleeper) durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.slept))
	copy(out, s.slept)
	return out
}

// fakeHistory is an in-memory HistoryStore.
type fakeHistory struct {
	mu      sync.Mutex
	saved   []*domain.Submission
	updates map[string]domain.JobStatus
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{updates: make(map[string]domain.JobStatus)}
}

func (h *fakeHistory) Save(s *domain.Submission) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saved = append(h.saved, s)
	return nil
}

func (h *fakeHistory) Get(jobID string) (*domain.Submission, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.saved {
		if s.JobID == jobID {
			return s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (h *fakeHistory) List() ([]*domain.Submission, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*domain.Submission(nil), h.saved...), nil
}

func (h *fakeHistory) UpdateStatus(jobID string, status domain.JobStatus, progress int, errMsg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates[jobID] = status
	return nil
}

func (h *fakeHistory) Delete(jobID string) error { return nil }
func (h *fakeHistory) DeleteAll() (int, error)   { return 0, nil }
