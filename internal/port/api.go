package port

import (
	"context"
	"encoding/json"
	"io"

	"github.com/bnema/handsync/internal/domain"
)

// ProcessingAPI is the network contract of the remote processing service.
// Every call honors context cancellation; the HTTP adapter is the only
// real implementation.
type ProcessingAPI interface {
	Submit(ctx context.Context, filename string, file io.ReadSeeker, opts domain.ProcessOptions) (*domain.Job, error)
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)

	GetTracking(ctx context.Context, jobID string) ([]domain.TrackingFrame, error)
	GetAnalysis(ctx context.Context, jobID string) (*domain.AIAnalysis, error)
	GetStats(ctx context.Context, jobID string) (json.RawMessage, error)

	DownloadVideo(ctx context.Context, jobID string) (io.ReadCloser, error)
	DownloadCommands(ctx context.Context, jobID string) (io.ReadCloser, error)
	VideoURL(jobID string) string

	ListJobs(ctx context.Context) ([]domain.Job, error)
	DeleteJob(ctx context.Context, jobID string) error
	DeleteAllJobs(ctx context.Context) (int, error)

	Health(ctx context.Context) error
}
