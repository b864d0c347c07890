package domain

import (
	"encoding/json"
	"fmt"
)

// Step is one labeled sub-interval of the AI-derived task timeline. A nil
// End means the step extends to the start of the next step, or to the end
// of the video for the last one.
type Step struct {
	Start       float64  `json:"start_time"`
	End         *float64 `json:"end_time,omitempty"`
	Description string   `json:"description"`
	Actors      []string `json:"actors,omitempty"`
	Objects     []string `json:"objects,omitempty"`
}

// AIAnalysis is the task-level output of the AI pipeline for one job.
type AIAnalysis struct {
	TaskDescription  string   `json:"task_description"`
	Timeline         []Step   `json:"timeline"`
	RobotNotes       string   `json:"robot_notes,omitempty"`
	Confidence       float64  `json:"confidence"`
	MovementPatterns []string `json:"movement_patterns,omitempty"`
	DetectedObjects  []string `json:"detected_objects,omitempty"`
}

func (a *AIAnalysis) Validate() error {
	for i, s := range a.Timeline {
		if s.Start < 0 {
			return fmt.Errorf("analysis: step %d has negative start %v", i, s.Start)
		}
		if s.End != nil && *s.End < s.Start {
			return fmt.Errorf("analysis: step %d ends (%v) before it starts (%v)", i, *s.End, s.Start)
		}
		if i > 0 && s.Start < a.Timeline[i-1].Start {
			return fmt.Errorf("analysis: step %d start %v precedes step %d", i, s.Start, i-1)
		}
	}
	return nil
}

// UnavailableAnalysis is the sentinel substituted when the AI analysis
// fetch fails. Downstream rendering still works; the bundle is flagged
// degraded instead of failing.
func UnavailableAnalysis() AIAnalysis {
	return AIAnalysis{
		TaskDescription: "unavailable",
		Timeline:        []Step{},
		Confidence:      0,
	}
}

// AnalysisBundle is the immutable aggregate of every artifact a completed
// job produced. It is built all-or-nothing by the aggregator and never
// patched; a re-analysis produces a new bundle.
type AnalysisBundle struct {
	Job      Job
	Frames   []TrackingFrame
	Analysis AIAnalysis
	Stats    json.RawMessage
	VideoURL string

	// Degraded is set when the AI analysis was unavailable and the
	// sentinel was substituted.
	Degraded bool
}
