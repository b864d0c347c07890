package domain

import (
	"fmt"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// Job is the server-assigned identity for one processing run. The client
// never mutates it; a fresh snapshot is fetched on every polling cycle and
// the value becomes immutable once Terminal() reports true.
type Job struct {
	ID             string    `json:"job_id"`
	Status         JobStatus `json:"status"`
	Progress       int       `json:"progress"`
	Message        string    `json:"message"`
	CurrentStep    string    `json:"current_step"`
	ETASeconds     *float64  `json:"eta_seconds,omitempty"`
	VideoName      string    `json:"video_name,omitempty"`
	ProcessedFiles []string  `json:"processed_files,omitempty"`
	ErrorDetail    string    `json:"error,omitempty"`
}

func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusError
}

// Validate rejects malformed job snapshots at the service boundary so that
// null/absent ambiguity never reaches the synchronizer.
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job: missing job_id")
	}
	switch j.Status {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusError:
	default:
		return fmt.Errorf("job %s: unknown status %q", j.ID, j.Status)
	}
	if j.Progress < 0 || j.Progress > 100 {
		return fmt.Errorf("job %s: progress %d out of range", j.ID, j.Progress)
	}
	return nil
}

type TargetHand string

const (
	TargetHandLeft  TargetHand = "left"
	TargetHandRight TargetHand = "right"
)

// ProcessOptions configures one submission. Use NewProcessOptions for the
// defaults the service expects; zero values for the numeric fields are
// filled back in by ApplyDefaults.
type ProcessOptions struct {
	TargetHand          TargetHand
	DetectionConfidence float64
	TrackingConfidence  float64
	MaxHands            int
	GenerateVideo       bool
	GenerateCommands    bool
}

func NewProcessOptions() ProcessOptions {
	return ProcessOptions{
		TargetHand:          TargetHandRight,
		DetectionConfidence: 0.5,
		TrackingConfidence:  0.3,
		MaxHands:            2,
		GenerateVideo:       true,
		GenerateCommands:    true,
	}
}

func (o *ProcessOptions) ApplyDefaults() {
	def := NewProcessOptions()
	if o.TargetHand == "" {
		o.TargetHand = def.TargetHand
	}
	if o.DetectionConfidence == 0 {
		o.DetectionConfidence = def.DetectionConfidence
	}
	if o.TrackingConfidence == 0 {
		o.TrackingConfidence = def.TrackingConfidence
	}
	if o.MaxHands == 0 {
		o.MaxHands = def.MaxHands
	}
}

func (o *ProcessOptions) Validate() error {
	if o.TargetHand != TargetHandLeft && o.TargetHand != TargetHandRight {
		return fmt.Errorf("options: invalid target hand %q", o.TargetHand)
	}
	if o.DetectionConfidence < 0 || o.DetectionConfidence > 1 {
		return fmt.Errorf("options: detection confidence %v out of range", o.DetectionConfidence)
	}
	if o.TrackingConfidence < 0 || o.TrackingConfidence > 1 {
		return fmt.Errorf("options: tracking confidence %v out of range", o.TrackingConfidence)
	}
	if o.MaxHands < 1 {
		return fmt.Errorf("options: max hands must be at least 1")
	}
	return nil
}

// Submission is the client-side record of one job handed to the service.
type Submission struct {
	CorrelationID string
	JobID         string
	FileName      string
	TargetHand    TargetHand
	Status        JobStatus
	Progress      int
	ErrorMessage  string
	SubmittedAt   time.Time
	UpdatedAt     time.Time
}
