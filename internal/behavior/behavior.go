// Package behavior paces browser interactions at human cadence. All delays
// deliberately block the single session goroutine; concurrent bursts are what
// anti-automation systems key on.
package behavior

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/davenull4x/applyforge/internal/config"
)

// Simulator produces human-scale pauses and typing cadence.
type Simulator struct {
	cfg config.BehaviorConfig
	rng *rand.Rand
	log *zap.Logger
}

// New creates a Simulator. A nil rng seeds from the clock.
func New(cfg config.BehaviorConfig, rng *rand.Rand, logger *zap.Logger) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{cfg: cfg, rng: rng, log: logger.Named("behavior")}
}

// Read simulates the time a person spends reading a page before acting.
func (s *Simulator) Read(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	d := s.between(s.cfg.ReadingMin, s.cfg.ReadingMax)
	s.log.Debug("Simulating reading", zap.Duration("duration", d))
	return sleep(ctx, d)
}

// Cooldown pauses between application attempts.
func (s *Simulator) Cooldown(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	d := s.between(s.cfg.CooldownMin, s.cfg.CooldownMax)
	s.log.Debug("Cooling down before next job", zap.Duration("duration", d))
	return sleep(ctx, d)
}

// Type feeds text through send one keystroke at a time, with per-key delays
// and an occasional longer thinking pause. With behavior disabled the whole
// text is sent in one call.
func (s *Simulator) Type(ctx context.Context, send func(string) error, text string) error {
	if !s.cfg.Enabled {
		return send(text)
	}
	for _, r := range text {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := send(string(r)); err != nil {
			return err
		}
		if err := sleep(ctx, s.between(s.cfg.KeystrokeMin, s.cfg.KeystrokeMax)); err != nil {
			return err
		}
		if s.rng.Float64() < s.cfg.ThinkingChance {
			if err := sleep(ctx, s.between(300*time.Millisecond, 800*time.Millisecond)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Simulator) between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
