package service

import (
	"math"
	"sync"

	"github.com/bnema/handsync/internal/domain"
	"github.com/bnema/handsync/internal/timeindex"
)

// defaultPseudoSteps is the granularity of the proportional fallback used
// when a bundle carries no AI timeline.
const defaultPseudoSteps = 5

// Synchronizer maps the current playback time onto the active timeline
// step and the active overlay frame. It recomputes only when the clock
// reports a change, never on render ticks, and performs no I/O.
type Synchronizer struct {
	mu     sync.Mutex
	bundle *domain.AnalysisBundle

	steps    *timeindex.IntervalIndex
	frames   *timeindex.Index
	duration float64

	stepIdx  int
	frameIdx int
}

// NewSynchronizer indexes the bundle's timeline and frames against a
// video of the given duration. The bundle is treated as immutable; a
// re-analysis gets a fresh synchronizer.
func NewSynchronizer(bundle *domain.AnalysisBundle, durationSeconds float64) *Synchronizer {
	timeline := bundle.Analysis.Timeline
	spans := make([]timeindex.Interval, len(timeline))
	for i, step := range timeline {
		end := math.Inf(1)
		switch {
		case step.End != nil:
			end = *step.End
		case i+1 < len(timeline):
			end = timeline[i+1].Start
		}
		spans[i] = timeindex.Interval{Start: step.Start, End: end}
	}

	keys := make([]float64, len(bundle.Frames))
	for i := range bundle.Frames {
		keys[i] = bundle.Frames[i].Timestamp
	}

	return &Synchronizer{
		bundle:   bundle,
		steps:    timeindex.NewIntervals(spans),
		frames:   timeindex.New(keys),
		duration: durationSeconds,
		stepIdx:  -1,
		frameIdx: -1,
	}
}

// OnTimeChange recomputes the active step and overlay frame for the new
// playback position. It is the single entry point driven by the playback
// controller's time-changed notification.
func (s *Synchronizer) OnTimeChange(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stepIdx = s.resolveStep(t)

	// Most recent frame at or before t; when none qualifies no overlay
	// is shown. A pause produces no time change, so the last resolved
	// frame is naturally retained instead of flickering to empty.
	if i, ok := s.frames.AtOrBefore(t); ok {
		s.frameIdx = i
	} else {
		s.frameIdx = -1
	}
}

func (s *Synchronizer) resolveStep(t float64) int {
	if s.steps.Len() == 0 {
		return s.pseudoStep(t)
	}
	if i, ok := s.steps.Containing(t); ok {
		return i
	}
	// Sticky rule: once a step has started it stays active through gaps
	// and past the final interval; only a seek before the first start
	// yields "no step".
	if i, ok := s.steps.LastStartedAt(t); ok {
		return i
	}
	return -1
}

// pseudoStep is the proportional estimate used when no timeline exists:
// floor(t/duration*n) clamped to [0, n-1].
func (s *Synchronizer) pseudoStep(t float64) int {
	if s.duration <= 0 {
		return 0
	}
	i := int(math.Floor(t / s.duration * defaultPseudoSteps))
	if i < 0 {
		i = 0
	}
	if i > defaultPseudoSteps-1 {
		i = defaultPseudoSteps - 1
	}
	return i
}

// ActiveStep returns the index of the currently active step. ok is false
// before any step has started.
func (s *Synchronizer) ActiveStep() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepIdx, s.stepIdx >= 0
}

// ActiveFrame returns the overlay frame for the current position.
func (s *Synchronizer) ActiveFrame() (domain.TrackingFrame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frameIdx < 0 {
		return domain.TrackingFrame{}, false
	}
	return s.bundle.Frames[s.frameIdx], true
}

// StepCount reports how many navigable steps exist, counting the pseudo
// steps of the proportional fallback when the timeline is empty.
func (s *Synchronizer) StepCount() int {
	if n := len(s.bundle.Analysis.Timeline); n > 0 {
		return n
	}
	return defaultPseudoSteps
}

// JumpTarget returns the playback position for "jump to step n": the
// step's start, or 0 when the timeline is empty and n addresses the
// proportional fallback. It is a pure function of the bundle; the caller
// applies it via Seek.
func (s *Synchronizer) JumpTarget(n int) float64 {
	timeline := s.bundle.Analysis.Timeline
	if len(timeline) == 0 {
		return 0
	}
	if n < 0 {
		n = 0
	}
	if n >= len(timeline) {
		n = len(timeline) - 1
	}
	return timeline[n].Start
}
