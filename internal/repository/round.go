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

type RoundRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRoundRepository(sqlDB *sql.DB, logger zerolog.Logger) *RoundRepository {
	return &RoundRepository{db: sqlDB, logger: logger}
}

// Create inserts a new round row. A nanoid is assigned when ID is empty.
func (r *RoundRepository) Create(ctx context.Context, round *domain.Round) error {
	if round.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		round.ID = id
	}
	now := time.Now()
	round.CreatedAt = now
	round.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rounds (id, rows, cols, home_red, home_blue, started_at, ended_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		round.ID, round.Rows, round.Cols, string(round.HomeRed), string(round.HomeBlue),
		round.StartedAt, round.EndedAt, round.CreatedAt, round.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("round_id", round.ID).Msg("failed to insert round")
		return err
	}
	return nil
}

// Active returns the most recent round without an ended_at, or nil.
func (r *RoundRepository) Active(ctx context.Context) (*domain.Round, error) {
	round, err := r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, rows, cols, home_red, home_blue, started_at, ended_at, created_at, updated_at
		 FROM rounds WHERE ended_at IS NULL ORDER BY started_at DESC LIMIT 1`))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return round, err
}

// Get returns a round by id (historical rounds included), or nil.
func (r *RoundRepository) Get(ctx context.Context, id string) (*domain.Round, error) {
	round, err := r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, rows, cols, home_red, home_blue, started_at, ended_at, created_at, updated_at
		 FROM rounds WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return round, err
}

// End soft-expires the round; its records stay queryable by round id.
func (r *RoundRepository) End(ctx context.Context, id string, endedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE rounds SET ended_at = ?, updated_at = ? WHERE id = ? AND ended_at IS NULL`,
		endedAt, time.Now(), id)
	if err != nil {
		r.logger.Error().Err(err).Str("round_id", id).Msg("failed to end round")
	}
	return err
}

func (r *RoundRepository) scanOne(row *sql.Row) (*domain.Round, error) {
	var round domain.Round
	var homeRed, homeBlue string
	if err := row.Scan(
		&round.ID, &round.Rows, &round.Cols, &homeRed, &homeBlue,
		&round.StartedAt, &round.EndedAt, &round.CreatedAt, &round.UpdatedAt,
	); err != nil {
		return nil, err
	}
	round.HomeRed = domain.RegionID(homeRed)
	round.HomeBlue = domain.RegionID(homeBlue)
	return &round, nil
}
