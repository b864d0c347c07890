package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/handsync/internal/domain"
	"github.com/bnema/handsync/internal/infrastructure/logger"
	"github.com/bnema/handsync/internal/port"
)

// Submitter uploads a video for processing and records the accepted job
// locally. Submission is fire-once: a failed upload is reported to the
// caller, never retried behind their back.
type Submitter struct {
	api     port.ProcessingAPI
	history port.HistoryStore
}

func NewSubmitter(api port.ProcessingAPI, history port.HistoryStore) *Submitter {
	return &Submitter{api: api, history: history}
}

// SubmitFile uploads the video at path with the given options and returns
// the accepted job snapshot. The local history write is best-effort: a
// bookkeeping failure must not lose an upload the server already accepted.
func (s *Submitter) SubmitFile(ctx context.Context, path string, opts domain.ProcessOptions) (*domain.Job, error) {
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	job, err := s.api.Submit(ctx, filepath.Base(path), f, opts)
	if err != nil {
		return nil, err
	}

	if s.history != nil {
		now := time.Now().UTC()
		sub := domain.Submission{
			CorrelationID: uuid.NewString(),
			JobID:         job.ID,
			FileName:      filepath.Base(path),
			TargetHand:    opts.TargetHand,
			Status:        job.Status,
			Progress:      job.Progress,
			SubmittedAt:   now,
			UpdatedAt:     now,
		}
		if err := s.history.Save(&sub); err != nil {
			logger.Warn.Printf("record submission for job %s: %v", job.ID, err)
		}
	}

	return job, nil
}
