package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"territory-engine/internal/domain"
	"territory-engine/internal/limiter"
	"territory-engine/internal/repository"
	"territory-engine/internal/tuning"
)

// AccrualRequest is one influence-earning action as reported by a game
// event collaborator.
type AccrualRequest struct {
	PlayerID string
	Region   domain.RegionID
	Team     domain.Team
	Kind     domain.ActionKind
	// Multiplier scales base points; 0 means 1.0. The repeat-kill
	// reduction stacks on top of it.
	Multiplier float64
	// VictimID is set for kill actions and keys the repeat-kill ledger.
	VictimID string
}

// InfluenceService validates and applies influence-changing events: the
// accrual engine of the capture economy.
type InfluenceService struct {
	captures    *CaptureService
	rounds      *RoundService
	regions     *repository.RegionRepository
	contribs    *repository.ContributionRepository
	repeatKills *repository.RepeatKillRepository
	rateLimits  *repository.RateLimitRepository
	guard       *limiter.Limiter
	tuning      tuning.Tuning
	logger      zerolog.Logger
}

func NewInfluenceService(
	captures *CaptureService,
	rounds *RoundService,
	regions *repository.RegionRepository,
	contribs *repository.ContributionRepository,
	repeatKills *repository.RepeatKillRepository,
	rateLimits *repository.RateLimitRepository,
	guard *limiter.Limiter,
	t tuning.Tuning,
	logger zerolog.Logger,
) *InfluenceService {
	return &InfluenceService{
		captures:    captures,
		rounds:      rounds,
		regions:     regions,
		contribs:    contribs,
		repeatKills: repeatKills,
		rateLimits:  rateLimits,
		guard:       guard,
		tuning:      t,
		logger:      logger,
	}
}

// AddInfluence runs the full validation chain and, on success, applies the
// points, advances the ledgers, and evaluates the capture threshold. The
// first failing check short-circuits. Rule violations come back as Result
// codes; persistence faults degrade to a logged no-op.
func (s *InfluenceService) AddInfluence(ctx context.Context, req AccrualRequest) domain.AccrualOutcome {
	s.captures.mu.Lock()
	defer s.captures.mu.Unlock()
	return s.addInfluenceLocked(ctx, req)
}

func (s *InfluenceService) addInfluenceLocked(ctx context.Context, req AccrualRequest) domain.AccrualOutcome {
	if !req.Team.IsValid() || !req.Kind.IsValid() {
		return domain.AccrualOutcome{Result: domain.ResultInvalidAction}
	}

	// 1. An active round exists.
	round := s.rounds.Current(ctx)
	if !round.Active() {
		return domain.AccrualOutcome{Result: domain.ResultNoActiveRound}
	}

	// 2. The region exists.
	region, err := s.regions.Get(ctx, round.ID, req.Region)
	if err != nil || region == nil {
		return domain.AccrualOutcome{Result: domain.ResultRegionNotFound}
	}

	// 3. Fortified regions accept no accrual from anyone.
	if region.State == domain.StateFortified {
		return domain.AccrualOutcome{Result: domain.ResultRegionFortified}
	}

	// 4. A protected region owned by the acting team rejects self-accrual
	// outright; protected enemy regions remain legitimate attack targets.
	if region.State == domain.StateProtected && region.Owner == req.Team {
		return domain.AccrualOutcome{Result: domain.ResultRegionProtected}
	}

	// 5. Action/category compatibility.
	spec := s.tuning.Spec(req.Kind)
	if spec.EnemyRegionOnly && region.Owner == domain.TeamNone {
		return domain.AccrualOutcome{Result: domain.ResultInvalidAction}
	}
	if region.Owner == req.Team {
		return domain.AccrualOutcome{Result: domain.ResultInvalidAction}
	}

	// 6. Frontline rule.
	if s.tuning.StrictAdjacency && !s.captures.adjacentToTeamLocked(ctx, round, req.Region, req.Team) {
		return domain.AccrualOutcome{Result: domain.ResultNotAdjacent}
	}

	// 7. Anti-farm cap.
	now := time.Now()
	if spec.RateCap > 0 {
		key := rateKey(req.PlayerID, req.Region, req.Kind)
		window, ok := s.guard.Allow(key, spec.RateCap, time.Duration(spec.RateWindowMs)*time.Millisecond, now)
		if !ok {
			return domain.AccrualOutcome{Result: domain.ResultRateLimited}
		}
		s.rateLimits.Mirror(ctx, round.ID, req.Region, req.PlayerID, req.Kind, window)
	}

	multiplier := req.Multiplier
	if multiplier == 0 {
		multiplier = 1.0
	}

	// The repeat-kill ledger advances on every kill, points or not.
	if req.Kind == domain.ActionKill && req.VictimID != "" {
		prior, err := s.repeatKills.Increment(ctx, round.ID, req.Region, req.PlayerID, req.VictimID)
		if err == nil && prior > 0 {
			multiplier *= math.Pow(s.tuning.RepeatKillReductionFactor, float64(prior))
		}
	}

	points := math.Floor(spec.BasePoints * multiplier)
	if points < 0 {
		points = 0
	}

	captured := false
	if points > 0 {
		region.SetInfluence(req.Team, region.Influence(req.Team)+points)

		// An owner facing its first positive opposing contribution is
		// now contested.
		if region.State == domain.StateOwned && region.Owner == req.Team.Opponent() {
			region.State = domain.StateContested
		}

		if s.thresholdMet(region, req.Team) {
			fortifiedUntil := now.Add(s.tuning.FortifyDuration())
			if err := s.captures.captureLocked(ctx, region, req.Team, fortifiedUntil, now); err != nil {
				s.logger.Error().Err(err).Str("region", req.Region.String()).Msg("capture failed to persist")
				return domain.AccrualOutcome{Result: domain.ResultRegionNotFound}
			}
			captured = true
		} else if err := s.regions.Replace(ctx, region); err != nil {
			s.logger.Error().Err(err).Str("region", req.Region.String()).Msg("influence accrual failed to persist")
			return domain.AccrualOutcome{Result: domain.ResultRegionNotFound}
		}
	}

	if err := s.contribs.Record(ctx, round.ID, req.Region, req.PlayerID, req.Team, req.Kind, points); err == nil {
		if req.Kind == domain.ActionKill && req.VictimID != "" {
			_ = s.contribs.RecordDeath(ctx, round.ID, req.Region, req.VictimID, req.Team.Opponent())
		}
	}

	s.logger.Debug().
		Str("player", req.PlayerID).
		Str("region", req.Region.String()).
		Str("team", req.Team.String()).
		Str("kind", req.Kind.String()).
		Float64("points", points).
		Bool("captured", captured).
		Msg("influence accrued")

	return domain.AccrualOutcome{Result: domain.ResultSuccess, Points: points, Captured: captured}
}

// thresholdMet checks the capture threshold for the attacker given the
// pre-capture owner. Protected regions never capture via thresholds.
func (s *InfluenceService) thresholdMet(region *domain.Region, attacker domain.Team) bool {
	if region.State == domain.StateProtected {
		return false
	}
	return region.Influence(attacker) >= s.tuning.Threshold(region.Owner)
}

// AddDirect is the admin accrual path: no action taxonomy, no adjacency, no
// rate cap, but the state machine rules still hold.
func (s *InfluenceService) AddDirect(ctx context.Context, regionID domain.RegionID, team domain.Team, amount float64, actor string) domain.Result {
	if !team.IsValid() || amount <= 0 {
		return domain.ResultInvalidAction
	}

	s.captures.mu.Lock()
	defer s.captures.mu.Unlock()

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
	if region.State == domain.StateProtected && region.Owner == team {
		return domain.ResultRegionProtected
	}
	if region.Owner == team {
		return domain.ResultAlreadyOwned
	}

	region.SetInfluence(team, region.Influence(team)+amount)
	if region.State == domain.StateOwned && region.Owner == team.Opponent() {
		region.State = domain.StateContested
	}

	now := time.Now()
	if s.thresholdMet(region, team) {
		if err := s.captures.captureLocked(ctx, region, team, now.Add(s.tuning.FortifyDuration()), now); err != nil {
			return domain.ResultRegionNotFound
		}
	} else if err := s.regions.Replace(ctx, region); err != nil {
		return domain.ResultRegionNotFound
	}

	if actor != "" {
		_ = s.contribs.Record(ctx, round.ID, regionID, actor, team, domain.ActionKind("direct"), amount)
	}
	return domain.ResultSuccess
}

func rateKey(playerID string, regionID domain.RegionID, kind domain.ActionKind) string {
	return fmt.Sprintf("%s|%s|%s", playerID, regionID, kind)
}
