package port

import "github.com/bnema/handsync/internal/domain"

// HistoryStore keeps the client-side record of submitted jobs. The
// processing service owns canonical job state; this is local bookkeeping.
type HistoryStore interface {
	Save(s *domain.Submission) error
	Get(jobID string) (*domain.Submission, error)
	List() ([]*domain.Submission, error)
	UpdateStatus(jobID string, status domain.JobStatus, progress int, errMsg string) error
	Delete(jobID string) error
	DeleteAll() (int, error)
}
