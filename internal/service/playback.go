package service

import (
	"sync"

	"github.com/bnema/handsync/internal/domain"
)

// PlaybackClock is the immutable snapshot of the single source of truth
// for "now".
type PlaybackClock struct {
	CurrentTimeSeconds float64
	DurationSeconds    float64
	IsPlaying          bool
}

// PlaybackController owns the mutable playback clock. All operations are
// synchronous and idempotent; every natural advance and every seek emits
// one time-changed notification, which is the only way the synchronizer
// learns about the clock.
type PlaybackController struct {
	mu       sync.Mutex
	current  float64
	duration float64
	rate     float64
	volume   float64
	playing  bool
	failure  *domain.PlaybackError

	listeners []func(float64)
}

func NewPlaybackController(durationSeconds float64) *PlaybackController {
	return &PlaybackController{
		duration: durationSeconds,
		rate:     1.0,
		volume:   1.0,
	}
}

// OnTimeChanged registers a listener invoked synchronously on every time
// change. The synchronizer subscribes here exclusively; it never polls
// the clock.
func (pc *PlaybackController) OnTimeChanged(fn func(t float64)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.listeners = append(pc.listeners, fn)
}

func (pc *PlaybackController) emit(t float64) {
	listeners := make([]func(float64), len(pc.listeners))
	copy(listeners, pc.listeners)
	pc.mu.Unlock()
	for _, fn := range listeners {
		fn(t)
	}
	pc.mu.Lock()
}

// Play starts the clock. Calling it while already playing, or while a
// playback error is pending, is a no-op.
func (pc *PlaybackController) Play() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.playing || pc.failure != nil {
		return
	}
	pc.playing = true
}

// Pause stops the clock; idempotent.
func (pc *PlaybackController) Pause() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.playing = false
}

// Seek moves the clock to t, clamped to [0, duration], and emits a
// time-changed notification even while paused.
func (pc *PlaybackController) Seek(t float64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.current = pc.clamp(t)
	pc.emit(pc.current)
}

// SetRate changes the playback rate multiplier; non-positive values are
// ignored.
func (pc *PlaybackController) SetRate(m float64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if m <= 0 {
		return
	}
	pc.rate = m
}

// SetVolume sets the volume level, clamped to [0, 1].
func (pc *PlaybackController) SetVolume(level float64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	pc.volume = level
}

// Advance moves the clock forward by dt (scaled by the rate) during
// natural playback. It is a no-op while paused or failed; reaching the
// end of the media pauses the clock.
func (pc *PlaybackController) Advance(dt float64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if !pc.playing || pc.failure != nil || dt <= 0 {
		return
	}
	pc.current = pc.clamp(pc.current + dt*pc.rate)
	if pc.duration > 0 && pc.current >= pc.duration {
		pc.playing = false
	}
	pc.emit(pc.current)
}

// Fail records a media decode/transport failure. The clock halts and no
// further notifications are emitted until Retry.
func (pc *PlaybackController) Fail(reason string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.playing = false
	pc.failure = &domain.PlaybackError{Reason: reason}
}

// Err returns the pending playback error, if any. The already-fetched
// bundle stays valid; only playback is halted.
func (pc *PlaybackController) Err() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.failure == nil {
		return nil
	}
	return pc.failure
}

// Retry clears a pending playback error so the caller can reload and
// resume. Idempotent.
func (pc *PlaybackController) Retry() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.failure = nil
}

// Clock returns an immutable snapshot of the playback clock.
func (pc *PlaybackController) Clock() PlaybackClock {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return PlaybackClock{
		CurrentTimeSeconds: pc.current,
		DurationSeconds:    pc.duration,
		IsPlaying:          pc.playing,
	}
}

func (pc *PlaybackController) Rate() float64 {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.rate
}

func (pc *PlaybackController) Volume() float64 {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.volume
}

func (pc *PlaybackController) IsPlaying() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.playing
}

func (pc *PlaybackController) clamp(t float64) float64 {
	if t < 0 {
		return 0
	}
	if pc.duration > 0 && t > pc.duration {
		return pc.duration
	}
	return t
}
