package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"territory-engine/internal/domain"
	"territory-engine/internal/repository"
	"territory-engine/internal/tuning"
)

// CaptureService is the state-machine transition point. It owns the engine
// mutation lock: accrual, admin operations and the maintenance sweep all
// serialize on it, so a capture can never interleave with a decay reversion
// on the same record.
type CaptureService struct {
	mu sync.Mutex // engine mutation lock, shared by sibling services

	regions *repository.RegionRepository
	rounds  *RoundService
	tuning  tuning.Tuning
	logger  zerolog.Logger

	listenerMu sync.Mutex
	listeners  []func(domain.CaptureEvent)
}

func NewCaptureService(regions *repository.RegionRepository, rounds *RoundService, t tuning.Tuning, logger zerolog.Logger) *CaptureService {
	return &CaptureService{regions: regions, rounds: rounds, tuning: t, logger: logger}
}

// Subscribe registers a listener fired exactly once per successful capture.
func (s *CaptureService) Subscribe(fn func(domain.CaptureEvent)) {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenerMu.Unlock()
}

func (s *CaptureService) emit(ev domain.CaptureEvent) {
	s.listenerMu.Lock()
	listeners := append([]func(domain.CaptureEvent){}, s.listeners...)
	s.listenerMu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// captureLocked applies the atomic capture transition. Caller holds mu and
// has already validated the attacker may take the region. Every field of
// the transition lands in one record replacement.
func (s *CaptureService) captureLocked(ctx context.Context, region *domain.Region, attacker domain.Team, fortifiedUntil time.Time, now time.Time) error {
	prev := region.Owner

	region.Owner = attacker
	region.State = domain.StateFortified
	region.InfluenceRed = 0
	region.InfluenceBlue = 0
	region.FortifiedUntil = &fortifiedUntil
	ownedSince := now
	region.OwnedSince = &ownedSince
	region.TimesCaptured++

	if err := s.regions.Replace(ctx, region); err != nil {
		return err
	}

	ev := domain.CaptureEvent{
		RoundID:       region.RoundID,
		Region:        region.ID,
		NewOwner:      attacker,
		PreviousOwner: prev,
		At:            now,
	}
	s.logger.Info().
		Str("round_id", region.RoundID).
		Str("region", region.ID.String()).
		Str("new_owner", attacker.String()).
		Str("previous_owner", prev.String()).
		Int("times_captured", region.TimesCaptured).
		Msg("region captured")
	s.emit(ev)
	return nil
}

// ForceCapture is the admin/manual capture path. It re-checks the same
// guards as the threshold path and speaks the same result vocabulary.
// A zero fortifiedUntil applies the configured fortification duration.
func (s *CaptureService) ForceCapture(ctx context.Context, regionID domain.RegionID, team domain.Team, fortifiedUntil time.Time) domain.Result {
	if !team.IsValid() {
		return domain.ResultInvalidAction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.rounds.Current(ctx)
	if !round.Active() {
		return domain.ResultNoActiveRound
	}
	region, err := s.regions.Get(ctx, round.ID, regionID)
	if err != nil || region == nil {
		return domain.ResultRegionNotFound
	}
	if region.State == domain.StateFortified {
		return domain.ResultRegionFortified
	}
	if region.State == domain.StateProtected {
		return domain.ResultRegionProtected
	}
	if region.Owner == team {
		return domain.ResultAlreadyOwned
	}
	if s.tuning.StrictAdjacency && !s.adjacentToTeamLocked(ctx, round, regionID, team) {
		return domain.ResultNotAdjacent
	}

	now := time.Now()
	if fortifiedUntil.IsZero() {
		fortifiedUntil = now.Add(s.tuning.FortifyDuration())
	}
	if err := s.captureLocked(ctx, region, team, fortifiedUntil, now); err != nil {
		s.logger.Error().Err(err).Str("region", regionID.String()).Msg("forced capture failed to persist")
		return domain.ResultRegionNotFound
	}
	return domain.ResultSuccess
}

// ResetRegion reverts a region to Neutral: no owner, zero influence, no
// fortification. The capture counter is history and survives.
func (s *CaptureService) ResetRegion(ctx context.Context, regionID domain.RegionID) domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.rounds.Current(ctx)
	if !round.Active() {
		return domain.ResultNoActiveRound
	}
	region, err := s.regions.Get(ctx, round.ID, regionID)
	if err != nil || region == nil {
		return domain.ResultRegionNotFound
	}

	region.Owner = domain.TeamNone
	region.State = domain.StateNeutral
	region.InfluenceRed = 0
	region.InfluenceBlue = 0
	region.FortifiedUntil = nil
	region.OwnedSince = nil

	if err := s.regions.Replace(ctx, region); err != nil {
		return domain.ResultRegionNotFound
	}
	s.logger.Info().Str("region", regionID.String()).Msg("region reset to neutral")
	return domain.ResultSuccess
}

// SetRegionState is the direct admin override, the only exit from
// Protected. It writes state and owner as given, normalizing the fields the
// new state implies.
func (s *CaptureService) SetRegionState(ctx context.Context, regionID domain.RegionID, state domain.RegionState, owner domain.Team) domain.Result {
	if !state.IsValid() {
		return domain.ResultInvalidAction
	}
	if state != domain.StateNeutral && !owner.IsValid() {
		return domain.ResultInvalidAction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.rounds.Current(ctx)
	if !round.Active() {
		return domain.ResultNoActiveRound
	}
	region, err := s.regions.Get(ctx, round.ID, regionID)
	if err != nil || region == nil {
		return domain.ResultRegionNotFound
	}

	now := time.Now()
	region.State = state
	switch state {
	case domain.StateNeutral:
		region.Owner = domain.TeamNone
		region.OwnedSince = nil
		region.FortifiedUntil = nil
	case domain.StateFortified:
		region.Owner = owner
		until := now.Add(s.tuning.FortifyDuration())
		region.FortifiedUntil = &until
		region.InfluenceRed = 0
		region.InfluenceBlue = 0
		if region.OwnedSince == nil {
			region.OwnedSince = &now
		}
	default:
		region.Owner = owner
		region.FortifiedUntil = nil
		if region.OwnedSince == nil {
			region.OwnedSince = &now
		}
	}

	if err := s.regions.Replace(ctx, region); err != nil {
		return domain.ResultRegionNotFound
	}
	s.logger.Info().
		Str("region", regionID.String()).
		Str("state", string(state)).
		Str("owner", owner.String()).
		Msg("region state overridden")
	return domain.ResultSuccess
}

// adjacentToTeamLocked reports whether team holds any neighbor of regionID.
func (s *CaptureService) adjacentToTeamLocked(ctx context.Context, round *domain.Round, regionID domain.RegionID, team domain.Team) bool {
	g := s.rounds.Grid(round)
	return g.IsAdjacentToHeld(regionID, func(id domain.RegionID) bool {
		neighbor, err := s.regions.Get(ctx, round.ID, id)
		if err != nil || neighbor == nil {
			return false
		}
		return neighbor.HeldBy(team)
	})
}
