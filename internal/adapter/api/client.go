// Package api implements the HTTP client for the remote video-to-robot
// processing service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/handsync/internal/adapter/api/validation"
	"github.com/bnema/handsync/internal/domain"
	"github.com/bnema/handsync/internal/port"
)

const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"

	sessionParam = "session"

	defaultTimeout    = 60 * time.Second
	errorSnippetLimit = 400
)

var _ port.ProcessingAPI = (*Client)(nil)

// Client talks to one processing service instance. The optional session
// token is appended as a query parameter on every request; the service
// answers 401 when it is missing or stale.
type Client struct {
	httpClient *http.Client
	baseURL    string
	session    string
}

func NewClient(baseURL, session string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    session,
	}
}

func (c *Client) endpoint(path string) string {
	u := c.baseURL + path
	if c.session != "" {
		u += "?" + sessionParam + "=" + url.QueryEscape(c.session)
	}
	return u
}

// checkStatus maps HTTP failure codes onto the domain error taxonomy.
// Authentication failures are never job errors.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorSnippetLimit+1))
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusNotFound:
		return domain.ErrNotFound
	}
	return fmt.Errorf("service status %d: %s", resp.StatusCode, truncate(string(body), errorSnippetLimit))
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if contentType != "" {
		req.Header.Set(headerContentType, contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

type submitResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Submit uploads a video for processing. The file content is preflighted
// locally; an unsupported container yields a SubmissionError before any
// request is made, so no job is ever created for it.
func (c *Client) Submit(ctx context.Context, filename string, file io.ReadSeeker, opts domain.ProcessOptions) (*domain.Job, error) {
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, &domain.SubmissionError{StatusCode: http.StatusBadRequest, Message: err.Error()}
	}

	mime, allowed, err := validation.DetectVideoType(file)
	if err != nil {
		return nil, fmt.Errorf("inspect upload: %w", err)
	}
	if !allowed {
		return nil, &domain.SubmissionError{
			StatusCode: http.StatusUnsupportedMediaType,
			Message:    fmt.Sprintf("unsupported media type %s: %v", mime, validation.ErrDisallowedFileType),
		}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeSubmitForm(mw, filename, file, opts))
	}()

	resp, err := c.do(ctx, http.MethodPost, "/hand/process", pr, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, domain.ErrUnauthorized
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorSnippetLimit+1))
		return nil, &domain.SubmissionError{
			StatusCode: resp.StatusCode,
			Message:    truncate(string(body), errorSnippetLimit),
		}
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode submit response: %w", err)
	}
	if sr.JobID == "" {
		return nil, &domain.SubmissionError{StatusCode: resp.StatusCode, Message: "service returned no job id"}
	}

	status := domain.JobStatus(sr.Status)
	if status == "" {
		status = domain.JobStatusPending
	}
	return &domain.Job{ID: sr.JobID, Status: status, Message: sr.Message}, nil
}

func writeSubmitForm(mw *multipart.Writer, filename string, file io.Reader, opts domain.ProcessOptions) error {
	fields := map[string]string{
		"target_hand":          string(opts.TargetHand),
		"detection_confidence": strconv.FormatFloat(opts.DetectionConfidence, 'f', -1, 64),
		"tracking_confidence":  strconv.FormatFloat(opts.TrackingConfidence, 'f', -1, 64),
		"max_hands":            strconv.Itoa(opts.MaxHands),
		"generate_video":       strconv.FormatBool(opts.GenerateVideo),
		"generate_commands":    strconv.FormatBool(opts.GenerateCommands),
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return fmt.Errorf("write field %s: %w", name, err)
		}
	}

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return fmt.Errorf("copy upload: %w", err)
	}
	return mw.Close()
}

// GetJob fetches the current snapshot of one job and validates it at the
// boundary, failing fast on schema violations.
func (c *Client) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	var job domain.Job
	if err := c.getJSON(ctx, "/jobs/"+url.PathEscape(jobID), &job); err != nil {
		return nil, err
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("job %s: invalid snapshot: %w", jobID, err)
	}
	return &job, nil
}

func (c *Client) GetTracking(ctx context.Context, jobID string) ([]domain.TrackingFrame, error) {
	var frames []domain.TrackingFrame
	if err := c.getJSON(ctx, "/hand/tracking/"+url.PathEscape(jobID), &frames); err != nil {
		return nil, err
	}
	if err := domain.ValidateFrames(frames); err != nil {
		return nil, fmt.Errorf("job %s: %w", jobID, err)
	}
	return frames, nil
}

func (c *Client) GetAnalysis(ctx context.Context, jobID string) (*domain.AIAnalysis, error) {
	var analysis domain.AIAnalysis
	if err := c.getJSON(ctx, "/ai/analysis/"+url.PathEscape(jobID), &analysis); err != nil {
		return nil, err
	}
	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("job %s: %w", jobID, err)
	}
	return &analysis, nil
}

// GetStats fetches the processing statistics. The shape is free-form and
// decorative; it is carried through as raw JSON.
func (c *Client) GetStats(ctx context.Context, jobID string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/hand/stats/"+url.PathEscape(jobID), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) download(ctx context.Context, path string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) DownloadVideo(ctx context.Context, jobID string) (io.ReadCloser, error) {
	return c.download(ctx, "/hand/video/"+url.PathEscape(jobID))
}

func (c *Client) DownloadCommands(ctx context.Context, jobID string) (io.ReadCloser, error) {
	return c.download(ctx, "/hand/commands/"+url.PathEscape(jobID))
}

// VideoURL returns the locator for the processed video stream, for players
// that consume it directly.
func (c *Client) VideoURL(jobID string) string {
	return c.endpoint("/hand/video/" + url.PathEscape(jobID))
}

type listJobsResponse struct {
	Success   bool         `json:"success"`
	TotalJobs int          `json:"total_jobs"`
	Jobs      []domain.Job `json:"jobs"`
}

func (c *Client) ListJobs(ctx context.Context) ([]domain.Job, error) {
	var lr listJobsResponse
	if err := c.getJSON(ctx, "/jobs", &lr); err != nil {
		return nil, err
	}
	return lr.Jobs, nil
}

func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/jobs/"+url.PathEscape(jobID), nil, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return checkStatus(resp)
}

type deleteAllResponse struct {
	Success      bool `json:"success"`
	DeletedCount int  `json:"deleted_count"`
}

func (c *Client) DeleteAllJobs(ctx context.Context) (int, error) {
	resp, err := c.do(ctx, http.MethodDelete, "/jobs", nil, "")
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return 0, err
	}
	var dr deleteAllResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return 0, fmt.Errorf("decode delete response: %w", err)
	}
	return dr.DeletedCount, nil
}

func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return checkStatus(resp)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
