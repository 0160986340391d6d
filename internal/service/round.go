package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"territory-engine/internal/constants"
	"territory-engine/internal/domain"
	"territory-engine/internal/grid"
	"territory-engine/internal/limiter"
	"territory-engine/internal/repository"
	"territory-engine/internal/tuning"
)

// RoundService owns round lifecycle: grid population on initialize, the
// active-round lookup everything else validates against, and soft-expiry.
type RoundService struct {
	rounds  *repository.RoundRepository
	regions *repository.RegionRepository
	guard   *limiter.Limiter
	tuning  tuning.Tuning
	logger  zerolog.Logger

	cacheMu   sync.Mutex
	cached    *domain.Round
	fetchedAt time.Time
}

func NewRoundService(rounds *repository.RoundRepository, regions *repository.RegionRepository, guard *limiter.Limiter, t tuning.Tuning, logger zerolog.Logger) *RoundService {
	return &RoundService{rounds: rounds, regions: regions, guard: guard, tuning: t, logger: logger}
}

// Current returns the active round, or nil when none is running. The lookup
// is cached briefly; Initialize and End invalidate it.
func (s *RoundService) Current(ctx context.Context) *domain.Round {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.cached != nil && time.Since(s.fetchedAt) < constants.RoundCacheTTL {
		return s.cached
	}

	round, err := s.rounds.Active(ctx)
	if err != nil {
		// Fail closed: an unreadable store means no round, not a stall.
		s.logger.Error().Err(err).Msg("failed to look up active round")
		return s.cached
	}
	s.cached = round
	s.fetchedAt = time.Now()
	return round
}

// Grid returns the board topology for a round.
func (s *RoundService) Grid(round *domain.Round) grid.Grid {
	return grid.New(round.Rows, round.Cols, s.tuning.DiagonalAdjacency)
}

// Initialize starts a new round: ends any active one, creates the round
// row, and populates every cell — homes Protected and owned, the rest
// Neutral.
func (s *RoundService) Initialize(ctx context.Context, homeRed, homeBlue domain.RegionID) (*domain.Round, error) {
	g := grid.New(s.tuning.GridRows, s.tuning.GridCols, s.tuning.DiagonalAdjacency)
	if !g.Contains(homeRed) || !g.Contains(homeBlue) {
		return nil, fmt.Errorf("home regions %s/%s outside the %dx%d grid", homeRed, homeBlue, g.Rows, g.Cols)
	}
	if homeRed == homeBlue {
		return nil, fmt.Errorf("home regions must differ")
	}

	if prev := s.Current(ctx); prev.Active() {
		s.logger.Warn().Str("round_id", prev.ID).Msg("ending active round before initializing a new one")
		if err := s.rounds.End(ctx, prev.ID, time.Now()); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	round := &domain.Round{
		Rows:      g.Rows,
		Cols:      g.Cols,
		HomeRed:   homeRed,
		HomeBlue:  homeBlue,
		StartedAt: now,
	}
	if err := s.rounds.Create(ctx, round); err != nil {
		return nil, err
	}

	ownedSince := now
	records := make([]domain.Region, 0, g.Rows*g.Cols)
	for _, id := range g.All() {
		r := domain.Region{
			RoundID:   round.ID,
			ID:        id,
			State:     domain.StateNeutral,
			CreatedAt: now,
			UpdatedAt: now,
		}
		switch id {
		case homeRed:
			r.Owner = domain.TeamRed
			r.State = domain.StateProtected
			r.OwnedSince = &ownedSince
		case homeBlue:
			r.Owner = domain.TeamBlue
			r.State = domain.StateProtected
			r.OwnedSince = &ownedSince
		}
		records = append(records, r)
	}
	if err := s.regions.CreateBatch(ctx, records); err != nil {
		return nil, err
	}

	s.guard.Reset()

	s.cacheMu.Lock()
	s.cached = round
	s.fetchedAt = time.Now()
	s.cacheMu.Unlock()

	s.logger.Info().
		Str("round_id", round.ID).
		Str("home_red", homeRed.String()).
		Str("home_blue", homeBlue.String()).
		Int("regions", len(records)).
		Msg("round initialized")
	return round, nil
}

// End soft-expires the active round; its records stay queryable by id.
func (s *RoundService) End(ctx context.Context) (*domain.Round, error) {
	round := s.Current(ctx)
	if !round.Active() {
		return nil, fmt.Errorf("no active round")
	}
	if err := s.rounds.End(ctx, round.ID, time.Now()); err != nil {
		return nil, err
	}

	s.cacheMu.Lock()
	s.cached = nil
	s.cacheMu.Unlock()

	s.logger.Info().Str("round_id", round.ID).Msg("round ended")
	return round, nil
}

// Get returns a round by id, historical rounds included.
func (s *RoundService) Get(ctx context.Context, id string) (*domain.Round, error) {
	return s.rounds.Get(ctx, id)
}
