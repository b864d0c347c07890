package domain

import "fmt"

// Landmark is one hand keypoint in normalized image coordinates.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Connection is a skeleton edge between two landmark indices.
type Connection [2]int

// TrackingFrame is one sampled instant of hand-tracking output. Frames are
// produced once per job, ordered by non-decreasing Timestamp, and immutable
// after fetch.
type TrackingFrame struct {
	Timestamp   float64      `json:"timestamp"`
	Landmarks   []Landmark   `json:"landmarks"`
	Connections []Connection `json:"connections"`
	Label       string       `json:"label,omitempty"`
}

func (f *TrackingFrame) Validate() error {
	if f.Timestamp < 0 {
		return fmt.Errorf("frame: negative timestamp %v", f.Timestamp)
	}
	for i, lm := range f.Landmarks {
		if lm.Confidence < 0 || lm.Confidence > 1 {
			return fmt.Errorf("frame at %v: landmark %d confidence %v out of range", f.Timestamp, i, lm.Confidence)
		}
	}
	for _, c := range f.Connections {
		if c[0] < 0 || c[0] >= len(f.Landmarks) || c[1] < 0 || c[1] >= len(f.Landmarks) {
			return fmt.Errorf("frame at %v: connection (%d,%d) out of landmark range", f.Timestamp, c[0], c[1])
		}
	}
	return nil
}

// ValidateFrames checks every frame and the non-decreasing timestamp order
// the lookup index relies on.
func ValidateFrames(frames []TrackingFrame) error {
	for i := range frames {
		if err := frames[i].Validate(); err != nil {
			return err
		}
		if i > 0 && frames[i].Timestamp < frames[i-1].Timestamp {
			return fmt.Errorf("frames: timestamp %v at index %d precedes %v", frames[i].Timestamp, i, frames[i-1].Timestamp)
		}
	}
	return nil
}
