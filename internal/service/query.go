package service

import (
	"context"

	"github.com/rs/zerolog"

	"territory-engine/internal/domain"
	"territory-engine/internal/grid"
	"territory-engine/internal/repository"
	"territory-engine/internal/tuning"
)

// SupplyModel converts raw connectivity into a supply efficiency scalar in
// [0,1]. The default is binary; a road/path collaborator can provide a
// richer model (partial/unsupplied/isolated tiers) instead.
type SupplyModel interface {
	Efficiency(connected bool, distance int) float64
}

type binarySupply struct{}

func (binarySupply) Efficiency(connected bool, _ int) float64 {
	if connected {
		return 1.0
	}
	return 0.0
}

// NewBinarySupplyModel returns the default connected=1.0 / else 0.0 model.
func NewBinarySupplyModel() SupplyModel { return binarySupply{} }

// QueryService is the read-only facade feeding UI, commands and objective
// collaborators. It never mutates engine state.
type QueryService struct {
	rounds  *RoundService
	regions *repository.RegionRepository
	tuning  tuning.Tuning
	supply  SupplyModel
	logger  zerolog.Logger
}

func NewQueryService(rounds *RoundService, regions *repository.RegionRepository, t tuning.Tuning, supply SupplyModel, logger zerolog.Logger) *QueryService {
	return &QueryService{rounds: rounds, regions: regions, tuning: t, supply: supply, logger: logger}
}

// Status returns one region record.
func (s *QueryService) Status(ctx context.Context, regionID domain.RegionID) (*domain.Region, domain.Result) {
	round := s.rounds.Current(ctx)
	if !round.Active() {
		return nil, domain.ResultNoActiveRound
	}
	region, err := s.regions.Get(ctx, round.ID, regionID)
	if err != nil || region == nil {
		return nil, domain.ResultRegionNotFound
	}
	return region, domain.ResultSuccess
}

// AllStatuses returns every record of the active round.
func (s *QueryService) AllStatuses(ctx context.Context) ([]domain.Region, domain.Result) {
	round := s.rounds.Current(ctx)
	if !round.Active() {
		return nil, domain.ResultNoActiveRound
	}
	regions, err := s.regions.All(ctx, round.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list region statuses")
		return nil, domain.ResultRegionNotFound
	}
	return regions, domain.ResultSuccess
}

// ByOwner returns the active round's regions owned by team.
func (s *QueryService) ByOwner(ctx context.Context, team domain.Team) ([]domain.Region, domain.Result) {
	round := s.rounds.Current(ctx)
	if !round.Active() {
		return nil, domain.ResultNoActiveRound
	}
	regions, err := s.regions.ByOwner(ctx, round.ID, team)
	if err != nil {
		return nil, domain.ResultRegionNotFound
	}
	return regions, domain.ResultSuccess
}

// Adjacent lists the neighbors of a region under the current topology.
func (s *QueryService) Adjacent(ctx context.Context, regionID domain.RegionID) ([]domain.RegionID, domain.Result) {
	round := s.rounds.Current(ctx)
	if !round.Active() {
		return nil, domain.ResultNoActiveRound
	}
	g := s.rounds.Grid(round)
	if !g.Contains(regionID) {
		return nil, domain.ResultRegionNotFound
	}
	return g.Adjacent(regionID), domain.ResultSuccess
}

// IsAdjacentToTeam reports whether team holds any neighbor of regionID.
func (s *QueryService) IsAdjacentToTeam(ctx context.Context, regionID domain.RegionID, team domain.Team) (bool, domain.Result) {
	round := s.rounds.Current(ctx)
	if !round.Active() {
		return false, domain.ResultNoActiveRound
	}
	g := s.rounds.Grid(round)
	if !g.Contains(regionID) {
		return false, domain.ResultRegionNotFound
	}
	held, ok := s.heldLookup(ctx, round, team)
	if !ok {
		return false, domain.ResultRegionNotFound
	}
	return g.IsAdjacentToHeld(regionID, held), domain.ResultSuccess
}

// ConnectedToHome returns the supply hop count from regionID to the team's
// home through team-held cells, or grid.Unreachable.
func (s *QueryService) ConnectedToHome(ctx context.Context, regionID domain.RegionID, team domain.Team) (int, domain.Result) {
	round := s.rounds.Current(ctx)
	if !round.Active() {
		return grid.Unreachable, domain.ResultNoActiveRound
	}
	g := s.rounds.Grid(round)
	if !g.Contains(regionID) {
		return grid.Unreachable, domain.ResultRegionNotFound
	}
	held, ok := s.heldLookup(ctx, round, team)
	if !ok {
		return grid.Unreachable, domain.ResultRegionNotFound
	}
	return g.ShortestPath(regionID, round.HomeOf(team), held, ""), domain.ResultSuccess
}

// SupplyEfficiency maps connectivity through the configured supply model.
func (s *QueryService) SupplyEfficiency(ctx context.Context, regionID domain.RegionID, team domain.Team) (float64, domain.Result) {
	dist, res := s.ConnectedToHome(ctx, regionID, team)
	if !res.OK() {
		return 0, res
	}
	return s.supply.Efficiency(dist != grid.Unreachable, dist), domain.ResultSuccess
}

// CutOff reports which team-held regions would lose their supply line if
// regionID were abandoned.
func (s *QueryService) CutOff(ctx context.Context, regionID domain.RegionID, team domain.Team) ([]domain.RegionID, domain.Result) {
	round := s.rounds.Current(ctx)
	if !round.Active() {
		return nil, domain.ResultNoActiveRound
	}
	g := s.rounds.Grid(round)
	if !g.Contains(regionID) {
		return nil, domain.ResultRegionNotFound
	}

	owned, err := s.regions.ByOwner(ctx, round.ID, team)
	if err != nil {
		return nil, domain.ResultRegionNotFound
	}
	heldAll := make([]domain.RegionID, 0, len(owned))
	heldSet := make(map[domain.RegionID]bool, len(owned))
	for i := range owned {
		if owned[i].HeldBy(team) {
			heldAll = append(heldAll, owned[i].ID)
			heldSet[owned[i].ID] = true
		}
	}
	held := func(id domain.RegionID) bool { return heldSet[id] }

	return g.CutOff(regionID, round.HomeOf(team), heldAll, held), domain.ResultSuccess
}

// Influence returns a team's current accumulator in a region.
func (s *QueryService) Influence(ctx context.Context, regionID domain.RegionID, team domain.Team) (float64, domain.Result) {
	region, res := s.Status(ctx, regionID)
	if !res.OK() {
		return 0, res
	}
	return region.Influence(team), domain.ResultSuccess
}

// InfluenceRequired returns the capture threshold a team currently faces in
// a region: the neutral threshold while unowned, the enemy threshold
// otherwise. A region already owned by the team requires nothing.
func (s *QueryService) InfluenceRequired(ctx context.Context, regionID domain.RegionID, team domain.Team) (float64, domain.Result) {
	region, res := s.Status(ctx, regionID)
	if !res.OK() {
		return 0, res
	}
	if region.Owner == team {
		return 0, domain.ResultAlreadyOwned
	}
	return s.tuning.Threshold(region.Owner), domain.ResultSuccess
}

// heldLookup snapshots the round's ownership into a closure. One pass over
// at most a few dozen records beats per-neighbor point reads.
func (s *QueryService) heldLookup(ctx context.Context, round *domain.Round, team domain.Team) (func(domain.RegionID) bool, bool) {
	regions, err := s.regions.All(ctx, round.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to snapshot ownership")
		return nil, false
	}
	held := make(map[domain.RegionID]bool, len(regions))
	for i := range regions {
		if regions[i].HeldBy(team) {
			held[regions[i].ID] = true
		}
	}
	return func(id domain.RegionID) bool { return held[id] }, true
}
