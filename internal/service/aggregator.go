package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bnema/handsync/internal/domain"
	"github.com/bnema/handsync/internal/infrastructure/logger"
	"github.com/bnema/handsync/internal/port"
)

// Aggregator fetches the artifacts of a completed job and assembles them
// into one immutable AnalysisBundle. The three fetches run concurrently
// with no ordering between them; the bundle is published all-or-nothing
// once every outcome is in.
type Aggregator struct {
	api port.ProcessingAPI
}

func NewAggregator(api port.ProcessingAPI) *Aggregator {
	return &Aggregator{api: api}
}

// Assemble builds the bundle for a completed job. A tracking-frame failure
// is fatal: the feature is meaningless without the overlay data. A missing
// AI analysis is not: the sentinel is substituted and the bundle flagged
// degraded. Statistics are decoration and carried only when available.
func (a *Aggregator) Assemble(ctx context.Context, job *domain.Job) (*domain.AnalysisBundle, error) {
	if job.Status != domain.JobStatusCompleted {
		return nil, fmt.Errorf("assemble job %s: status is %s, not completed", job.ID, job.Status)
	}

	var (
		frames      []domain.TrackingFrame
		analysis    *domain.AIAnalysis
		stats       json.RawMessage
		framesErr   error
		analysisErr error
		statsErr    error
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		frames, framesErr = a.api.GetTracking(ctx, job.ID)
	}()
	go func() {
		defer wg.Done()
		analysis, analysisErr = a.api.GetAnalysis(ctx, job.ID)
	}()
	go func() {
		defer wg.Done()
		stats, statsErr = a.api.GetStats(ctx, job.ID)
	}()
	wg.Wait()

	if framesErr != nil {
		return nil, fmt.Errorf("fetch tracking frames for job %s: %w", job.ID, framesErr)
	}

	bundle := &domain.AnalysisBundle{
		Job:      *job,
		Frames:   frames,
		VideoURL: a.api.VideoURL(job.ID),
	}

	if analysisErr != nil {
		logger.Warn.Printf("job %s: AI analysis unavailable, rendering degraded bundle: %v", job.ID, analysisErr)
		bundle.Analysis = domain.UnavailableAnalysis()
		bundle.Degraded = true
	} else {
		bundle.Analysis = *analysis
	}

	if statsErr != nil {
		logger.Debug.Printf("job %s: statistics unavailable: %v", job.ID, statsErr)
	} else {
		bundle.Stats = stats
	}

	return bundle, nil
}
