package service

import (
	"context"
	"time"

	"github.com/bnema/handsync/internal/domain"
	"github.com/bnema/handsync/internal/port"
)

// commandStepSeconds is the cadence at which recorded robot commands were
// sampled; replay emits one command per tick, scaled by the playback rate.
const commandStepSeconds = 0.1

// Replayer steps through a recorded robot command sequence at the sampling
// cadence, honoring the playback controller's rate and pause state. It
// emits commands through a callback and owns no I/O of its own.
type Replayer struct {
	controller *PlaybackController
	sleeper    port.Sleeper
}

func NewReplayer(controller *PlaybackController, sleeper port.Sleeper) *Replayer {
	if sleeper == nil {
		sleeper = NewTimeSleeper()
	}
	return &Replayer{controller: controller, sleeper: sleeper}
}

// Run replays commands from the beginning, invoking emit once per command.
// While the controller is paused the replayer idles without consuming
// commands; a rate change takes effect on the next tick. Run returns nil
// after the last command or ctx.Err() on cancellation.
func (r *Replayer) Run(ctx context.Context, commands []domain.RobotCommand, emit func(domain.RobotCommand)) error {
	for i := 0; i < len(commands); {
		if !r.controller.IsPlaying() {
			if err := r.sleeper.Sleep(ctx, 50*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		emit(commands[i])
		i++
		if i == len(commands) {
			break
		}

		wait := time.Duration(commandStepSeconds / r.controller.Rate() * float64(time.Second))
		if err := r.sleeper.Sleep(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}
