package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"territory-engine/internal/constants"
	"territory-engine/internal/domain"
)

// RegionRepository is the authoritative region record store. Reads go
// through a short-TTL cache; every write path refreshes the cache entry it
// touched synchronously, so staleness is bounded by the TTL and a reader
// never observes a half-applied transition.
type RegionRepository struct {
	db     *sql.DB
	logger zerolog.Logger

	cacheMu sync.RWMutex
	cache   map[regionKey]cachedRegion
}

type regionKey struct {
	roundID string
	region  domain.RegionID
}

type cachedRegion struct {
	region    domain.Region
	fetchedAt time.Time
}

func NewRegionRepository(sqlDB *sql.DB, logger zerolog.Logger) *RegionRepository {
	return &RegionRepository{
		db:     sqlDB,
		logger: logger,
		cache:  make(map[regionKey]cachedRegion),
	}
}

const regionColumns = `round_id, region_id, owner, state, influence_red, influence_blue,
	fortified_until, owned_since, times_captured, created_at, updated_at`

func scanRegion(row interface{ Scan(...any) error }) (*domain.Region, error) {
	var r domain.Region
	var owner, state string
	if err := row.Scan(
		&r.RoundID, &r.ID, &owner, &state, &r.InfluenceRed, &r.InfluenceBlue,
		&r.FortifiedUntil, &r.OwnedSince, &r.TimesCaptured, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.Owner = domain.Team(owner)
	r.State = domain.RegionState(state)
	return &r, nil
}

// Get returns the record for (round, region), or nil when it does not
// exist. A fresh cache entry short-circuits the database.
func (r *RegionRepository) Get(ctx context.Context, roundID string, id domain.RegionID) (*domain.Region, error) {
	key := regionKey{roundID: roundID, region: id}

	r.cacheMu.RLock()
	entry, ok := r.cache[key]
	r.cacheMu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < constants.RegionCacheTTL {
		region := entry.region
		return &region, nil
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+regionColumns+` FROM regions WHERE round_id = ? AND region_id = ?`,
		roundID, string(id))
	region, err := scanRegion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error().Err(err).Str("round_id", roundID).Str("region", id.String()).Msg("failed to read region")
		return nil, err
	}

	r.refreshCache(*region)
	return region, nil
}

// All returns every record of the round in row insertion order.
func (r *RegionRepository) All(ctx context.Context, roundID string) ([]domain.Region, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+regionColumns+` FROM regions WHERE round_id = ? ORDER BY region_id`, roundID)
	if err != nil {
		r.logger.Error().Err(err).Str("round_id", roundID).Msg("failed to list regions")
		return nil, err
	}
	defer rows.Close()

	var out []domain.Region
	for rows.Next() {
		region, err := scanRegion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *region)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, region := range out {
		r.refreshCache(region)
	}
	return out, nil
}

// ByOwner returns the round's records owned by team.
func (r *RegionRepository) ByOwner(ctx context.Context, roundID string, team domain.Team) ([]domain.Region, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+regionColumns+` FROM regions WHERE round_id = ? AND owner = ? ORDER BY region_id`,
		roundID, string(team))
	if err != nil {
		r.logger.Error().Err(err).Str("round_id", roundID).Str("team", team.String()).Msg("failed to list regions by owner")
		return nil, err
	}
	defer rows.Close()

	var out []domain.Region
	for rows.Next() {
		region, err := scanRegion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *region)
	}
	return out, rows.Err()
}

// CreateBatch inserts the full grid for a new round in one transaction.
func (r *RegionRepository) CreateBatch(ctx context.Context, regions []domain.Region) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := 0; i < len(regions); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(regions) {
			end = len(regions)
		}
		for _, region := range regions[i:end] {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO regions (`+regionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				region.RoundID, string(region.ID), string(region.Owner), string(region.State),
				region.InfluenceRed, region.InfluenceBlue,
				region.FortifiedUntil, region.OwnedSince, region.TimesCaptured,
				region.CreatedAt, region.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert region %s: %w", region.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	for _, region := range regions {
		r.refreshCache(region)
	}
	return nil
}

// Replace writes the whole record in one statement and refreshes the cache
// entry before returning. This is the only mutation path, which is what
// makes captures and decay reversions atomic to readers.
func (r *RegionRepository) Replace(ctx context.Context, region *domain.Region) error {
	region.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE regions SET owner = ?, state = ?, influence_red = ?, influence_blue = ?,
			fortified_until = ?, owned_since = ?, times_captured = ?, updated_at = ?
		 WHERE round_id = ? AND region_id = ?`,
		string(region.Owner), string(region.State), region.InfluenceRed, region.InfluenceBlue,
		region.FortifiedUntil, region.OwnedSince, region.TimesCaptured, region.UpdatedAt,
		region.RoundID, string(region.ID))
	if err != nil {
		r.logger.Error().Err(err).Str("round_id", region.RoundID).Str("region", region.ID.String()).Msg("failed to replace region")
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("region %s not found in round %s", region.ID, region.RoundID)
	}

	r.refreshCache(*region)
	return nil
}

func (r *RegionRepository) refreshCache(region domain.Region) {
	r.cacheMu.Lock()
	r.cache[regionKey{roundID: region.RoundID, region: region.ID}] = cachedRegion{
		region:    region,
		fetchedAt: time.Now(),
	}
	r.cacheMu.Unlock()
}
