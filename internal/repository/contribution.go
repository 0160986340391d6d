package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"territory-engine/internal/domain"
)

// ContributionRepository maintains the per-player influence ledger consumed
// by external leaderboards. The engine only ever appends to it.
type ContributionRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewContributionRepository(sqlDB *sql.DB, logger zerolog.Logger) *ContributionRepository {
	return &ContributionRepository{db: sqlDB, logger: logger}
}

// Record folds one accepted action into the player's cumulative row for
// (round, region). Counters advance by action kind; influence may be zero
// for informational kinds.
func (r *ContributionRepository) Record(ctx context.Context, roundID string, regionID domain.RegionID, playerID string, team domain.Team, kind domain.ActionKind, points float64) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}

	var kills, blocksPlaced, blocksMined, bannersPlaced int
	switch kind {
	case domain.ActionKill:
		kills = 1
	case domain.ActionBlockPlace, domain.ActionWorkstationPlace:
		blocksPlaced = 1
	case domain.ActionBlockBreak:
		blocksMined = 1
	case domain.ActionBannerPlace:
		bannersPlaced = 1
	}

	now := time.Now()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO contributions (id, round_id, region_id, player_id, team, influence,
			kills, deaths, blocks_placed, blocks_mined, banners_placed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)
		 ON CONFLICT(round_id, region_id, player_id) DO UPDATE SET
			team = excluded.team,
			influence = contributions.influence + excluded.influence,
			kills = contributions.kills + excluded.kills,
			blocks_placed = contributions.blocks_placed + excluded.blocks_placed,
			blocks_mined = contributions.blocks_mined + excluded.blocks_mined,
			banners_placed = contributions.banners_placed + excluded.banners_placed,
			updated_at = excluded.updated_at`,
		id, roundID, string(regionID), playerID, string(team), points,
		kills, blocksPlaced, blocksMined, bannersPlaced, now, now)
	if err != nil {
		r.logger.Error().Err(err).
			Str("round_id", roundID).
			Str("region", regionID.String()).
			Str("player", playerID).
			Msg("failed to record contribution")
	}
	return err
}

// RecordDeath bumps the victim's death counter with zero influence.
func (r *ContributionRepository) RecordDeath(ctx context.Context, roundID string, regionID domain.RegionID, playerID string, team domain.Team) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}
	now := time.Now()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO contributions (id, round_id, region_id, player_id, team, influence,
			kills, deaths, blocks_placed, blocks_mined, banners_placed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, 0, 1, 0, 0, 0, ?, ?)
		 ON CONFLICT(round_id, region_id, player_id) DO UPDATE SET
			deaths = contributions.deaths + 1,
			updated_at = excluded.updated_at`,
		id, roundID, string(regionID), playerID, string(team), now, now)
	if err != nil {
		r.logger.Error().Err(err).Str("player", playerID).Msg("failed to record death")
	}
	return err
}

// ByPlayer returns the player's ledger rows for a round.
func (r *ContributionRepository) ByPlayer(ctx context.Context, roundID, playerID string) ([]domain.Contribution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, round_id, region_id, player_id, team, influence,
			kills, deaths, blocks_placed, blocks_mined, banners_placed, created_at, updated_at
		 FROM contributions WHERE round_id = ? AND player_id = ? ORDER BY region_id`,
		roundID, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContributions(rows)
}

// TopByRegion returns the region's biggest contributors, for leaderboards.
func (r *ContributionRepository) TopByRegion(ctx context.Context, roundID string, regionID domain.RegionID, limit int) ([]domain.Contribution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, round_id, region_id, player_id, team, influence,
			kills, deaths, blocks_placed, blocks_mined, banners_placed, created_at, updated_at
		 FROM contributions WHERE round_id = ? AND region_id = ?
		 ORDER BY influence DESC LIMIT ?`,
		roundID, string(regionID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContributions(rows)
}

func scanContributions(rows *sql.Rows) ([]domain.Contribution, error) {
	var out []domain.Contribution
	for rows.Next() {
		var c domain.Contribution
		var regionID, team string
		if err := rows.Scan(
			&c.ID, &c.RoundID, &regionID, &c.PlayerID, &team, &c.Influence,
			&c.Kills, &c.Deaths, &c.BlocksPlaced, &c.BlocksMined, &c.BannersPlaced,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		c.RegionID = domain.RegionID(regionID)
		c.Team = domain.Team(team)
		out = append(out, c)
	}
	return out, rows.Err()
}
