package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"territory-engine/internal/constants"
	"territory-engine/internal/domain"
	"territory-engine/internal/repository"
	"territory-engine/internal/tuning"
)

// Ticker runs the periodic maintenance sweep: influence decay on contested
// regions and fortification expiry. The sweep is idempotent and shares the
// engine lock, so it cannot race an in-flight capture.
type Ticker struct {
	captures *CaptureService
	rounds   *RoundService
	regions  *repository.RegionRepository
	tuning   tuning.Tuning
	interval time.Duration
	logger   zerolog.Logger

	lastSweep time.Time
	stop      chan struct{}
	done      chan struct{}
}

func NewTicker(captures *CaptureService, rounds *RoundService, regions *repository.RegionRepository, t tuning.Tuning, interval time.Duration, logger zerolog.Logger) *Ticker {
	if interval < constants.MinTickerInterval {
		interval = constants.MinTickerInterval
	}
	return &Ticker{
		captures: captures,
		rounds:   rounds,
		regions:  regions,
		tuning:   t,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. Stop terminates it.
func (t *Ticker) Start() {
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case now := <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
				t.Sweep(ctx, now)
				cancel()
			}
		}
	}()
}

func (t *Ticker) Stop() {
	close(t.stop)
	<-t.done
}

// Sweep applies decay and fortification expiry as of now. Elapsed time for
// decay is measured against the previous sweep, so invoking it twice in
// immediate succession is a no-op the second time.
func (t *Ticker) Sweep(ctx context.Context, now time.Time) {
	t.captures.mu.Lock()
	defer t.captures.mu.Unlock()

	round := t.rounds.Current(ctx)
	if !round.Active() {
		return
	}

	var elapsed time.Duration
	if !t.lastSweep.IsZero() && now.After(t.lastSweep) {
		elapsed = now.Sub(t.lastSweep)
	}
	t.lastSweep = now
	decay := t.tuning.DecayPerMinute * elapsed.Minutes()

	regions, err := t.regions.All(ctx, round.ID)
	if err != nil {
		// Fail closed; the next sweep picks up where this one left off.
		t.logger.Error().Err(err).Msg("sweep could not list regions")
		return
	}

	for i := range regions {
		region := &regions[i]
		switch region.State {
		case domain.StateFortified:
			t.sweepFortified(ctx, region, now)
		case domain.StateContested:
			t.sweepContested(ctx, region, decay)
		}
	}
}

func (t *Ticker) sweepFortified(ctx context.Context, region *domain.Region, now time.Time) {
	// Integrity check only: never auto-corrected, a nonzero accumulator
	// under fortification points at an economy exploit.
	if region.InfluenceRed != 0 || region.InfluenceBlue != 0 {
		t.logger.Warn().
			Str("region", region.ID.String()).
			Float64("influence_red", region.InfluenceRed).
			Float64("influence_blue", region.InfluenceBlue).
			Msg("data integrity: fortified region carries influence")
	}
	if region.FortifiedUntil == nil {
		t.logger.Warn().Str("region", region.ID.String()).Msg("data integrity: fortified region without expiry")
		return
	}
	if region.FortifiedUntil.After(now) {
		return
	}

	region.State = domain.StateOwned
	region.FortifiedUntil = nil
	if err := t.regions.Replace(ctx, region); err != nil {
		return
	}
	t.logger.Info().
		Str("region", region.ID.String()).
		Str("owner", region.Owner.String()).
		Msg("fortification expired")
}

func (t *Ticker) sweepContested(ctx context.Context, region *domain.Region, decay float64) {
	if decay <= 0 {
		return
	}

	red := region.InfluenceRed - decay
	blue := region.InfluenceBlue - decay
	if red < 0 {
		red = 0
	}
	if blue < 0 {
		blue = 0
	}
	if red == region.InfluenceRed && blue == region.InfluenceBlue {
		return
	}
	region.InfluenceRed = red
	region.InfluenceBlue = blue

	// Contest defused: everyone decayed out and the owner keeps the cell.
	if red == 0 && blue == 0 && region.Owner != domain.TeamNone {
		region.State = domain.StateOwned
		t.logger.Info().
			Str("region", region.ID.String()).
			Str("owner", region.Owner.String()).
			Msg("contest defused")
	}

	if err := t.regions.Replace(ctx, region); err != nil {
		return
	}
}
