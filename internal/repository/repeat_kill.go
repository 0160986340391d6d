package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"territory-engine/internal/domain"
)

// RepeatKillRepository counts kills per (killer, victim, region, round).
// The count feeds the geometric point-decay multiplier for farming the same
// victim; it advances on every kill whether or not points are awarded.
type RepeatKillRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRepeatKillRepository(sqlDB *sql.DB, logger zerolog.Logger) *RepeatKillRepository {
	return &RepeatKillRepository{db: sqlDB, logger: logger}
}

// Increment records one kill and returns the count prior to it.
func (r *RepeatKillRepository) Increment(ctx context.Context, roundID string, regionID domain.RegionID, killerID, victimID string) (prior int, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`SELECT kills FROM repeat_kills
		 WHERE round_id = ? AND region_id = ? AND killer_id = ? AND victim_id = ?`,
		roundID, string(regionID), killerID, victimID).Scan(&prior)
	if err != nil && err != sql.ErrNoRows {
		r.logger.Error().Err(err).Str("killer", killerID).Str("victim", victimID).Msg("failed to read repeat kills")
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO repeat_kills (round_id, region_id, killer_id, victim_id, kills, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?)
		 ON CONFLICT(round_id, region_id, killer_id, victim_id) DO UPDATE SET
			kills = repeat_kills.kills + 1,
			updated_at = excluded.updated_at`,
		roundID, string(regionID), killerID, victimID, time.Now())
	if err != nil {
		r.logger.Error().Err(err).Str("killer", killerID).Str("victim", victimID).Msg("failed to increment repeat kills")
		return 0, err
	}

	return prior, tx.Commit()
}
