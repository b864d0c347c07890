package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/handsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mp4Payload() []byte {
	b := []byte{0x00, 0x00, 0x00, 0x20}
	b = append(b, []byte("ftypisom")...)
	return append(b, []byte("fake video content")...)
}

func TestSubmit_SendsMultipartFormWithDefaults(t *testing.T) {
	var gotPath, gotHand, gotMaxHands, gotSession string
	var gotFile []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSession = r.URL.Query().Get("session")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotHand = r.FormValue("target_hand")
		gotMaxHands = r.FormValue("max_hands")

		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		gotFile, err = io.ReadAll(f)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"job_id": "job-123", "message": "queued", "status": "pending",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second)
	job, err := c.Submit(context.Background(), "demo.mp4", bytes.NewReader(mp4Payload()), domain.ProcessOptions{})

	require.NoError(t, err)
	assert.Equal(t, "/hand/process", gotPath)
	assert.Equal(t, "tok", gotSession)
	assert.Equal(t, "right", gotHand)
	assert.Equal(t, "2", gotMaxHands)
	assert.Equal(t, mp4Payload(), gotFile)
	assert.Equal(t, "job-123", job.ID)
	assert.Equal(t, domain.JobStatusPending, job.Status)
}

func TestSubmit_UnsupportedTypeRejectedBeforeRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Submit(context.Background(), "big.bin", bytes.NewReader([]byte("definitely not a video")), domain.ProcessOptions{})

	var subErr *domain.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, http.StatusUnsupportedMediaType, subErr.StatusCode)
	assert.Equal(t, int32(0), calls.Load(), "no request may reach the service")
}

func TestSubmit_TransportRejectionSurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Submit(context.Background(), "demo.mp4", bytes.NewReader(mp4Payload()), domain.ProcessOptions{})

	var subErr *domain.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, subErr.StatusCode)
	assert.Contains(t, subErr.Message, "file too large")
}

func TestGetJob_DecodesAndValidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/job-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"job_id":"job-1","status":"processing","progress":55,"message":"tracking hands","current_step":"tracking","eta_seconds":12.5}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	job, err := c.GetJob(context.Background(), "job-1")

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, job.Status)
	assert.Equal(t, 55, job.Progress)
	assert.Equal(t, "tracking", job.CurrentStep)
	require.NotNil(t, job.ETASeconds)
	assert.Equal(t, 12.5, *job.ETASeconds)
}

func TestGetJob_RejectsUnknownStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"job_id":"job-1","status":"paused","progress":10}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.GetJob(context.Background(), "job-1")
	assert.Error(t, err)
}

func TestStatusMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/jobs/gone":
			http.Error(w, "not found", http.StatusNotFound)
		default:
			http.Error(w, "no session", http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)

	_, err := c.GetJob(context.Background(), "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.GetTracking(context.Background(), "whatever")
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "401 is an authentication error, not a job error")
}

func TestGetTracking_RejectsOutOfOrderFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"timestamp":1.0,"landmarks":[]},{"timestamp":0.5,"landmarks":[]}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.GetTracking(context.Background(), "job-1")
	assert.Error(t, err)
}

func TestGetAnalysis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/analysis/job-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"task_description":"stack cubes","timeline":[{"start_time":0,"end_time":5,"description":"pick"},{"start_time":5,"description":"place"}],"confidence":0.92}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	analysis, err := c.GetAnalysis(context.Background(), "job-1")

	require.NoError(t, err)
	assert.Equal(t, "stack cubes", analysis.TaskDescription)
	require.Len(t, analysis.Timeline, 2)
	assert.Nil(t, analysis.Timeline[1].End)
	assert.Equal(t, 0.92, analysis.Confidence)
}

func TestListAndDeleteJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/jobs":
			_, _ = w.Write([]byte(`{"success":true,"total_jobs":1,"jobs":[{"job_id":"a","status":"completed","progress":100}]}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/jobs/a":
			_, _ = w.Write([]byte(`{"success":true}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/jobs":
			_, _ = w.Write([]byte(`{"success":true,"deleted_count":3}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)

	jobs, err := c.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].ID)

	require.NoError(t, c.DeleteJob(context.Background(), "a"))

	n, err := c.DeleteAllJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDownloadVideoAndCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("binary video bytes"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)

	rc, err := c.DownloadVideo(context.Background(), "job-1")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "binary video bytes", string(data))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.GetJob(ctx, "job-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVideoURLIncludesSession(t *testing.T) {
	c := NewClient("http://svc.local/", "s3cr3t", time.Second)
	assert.Equal(t, "http://svc.local/hand/video/job-1?session=s3cr3t", c.VideoURL("job-1"))
}
