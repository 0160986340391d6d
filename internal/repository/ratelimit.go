package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"territory-engine/internal/domain"
	"territory-engine/internal/limiter"
)

// RateLimitRepository mirrors in-memory rate-limit windows to sqlite. The
// in-memory limiter stays authoritative (windows are a minute at most, so
// nothing rehydrates after a restart); the rows exist for the per-round
// audit trail. Writes are best-effort: a failure is logged, never surfaced.
type RateLimitRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRateLimitRepository(sqlDB *sql.DB, logger zerolog.Logger) *RateLimitRepository {
	return &RateLimitRepository{db: sqlDB, logger: logger}
}

// Mirror upserts the current window for (player, region, kind).
func (r *RateLimitRepository) Mirror(ctx context.Context, roundID string, regionID domain.RegionID, playerID string, kind domain.ActionKind, w limiter.Window) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rate_limits (round_id, region_id, player_id, action_kind, count, window_start, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(round_id, region_id, player_id, action_kind) DO UPDATE SET
			count = excluded.count,
			window_start = excluded.window_start,
			updated_at = excluded.updated_at`,
		roundID, string(regionID), playerID, string(kind), w.Count, w.WindowStart, time.Now())
	if err != nil {
		r.logger.Warn().Err(err).
			Str("player", playerID).
			Str("region", regionID.String()).
			Str("kind", kind.String()).
			Msg("failed to mirror rate-limit window")
	}
}

// Window reads back a mirrored window, mainly for admin inspection.
func (r *RateLimitRepository) Window(ctx context.Context, roundID string, regionID domain.RegionID, playerID string, kind domain.ActionKind) (limiter.Window, bool, error) {
	var w limiter.Window
	err := r.db.QueryRowContext(ctx,
		`SELECT count, window_start FROM rate_limits
		 WHERE round_id = ? AND region_id = ? AND player_id = ? AND action_kind = ?`,
		roundID, string(regionID), playerID, string(kind)).Scan(&w.Count, &w.WindowStart)
	if err == sql.ErrNoRows {
		return w, false, nil
	}
	if err != nil {
		return w, false, err
	}
	return w, true, nil
}
