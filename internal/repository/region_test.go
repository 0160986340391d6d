package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"territory-engine/internal/database"
	"territory-engine/internal/domain"
)

func setup(t *testing.T) (context.Context, *RoundRepository, *RegionRepository) {
	t.Helper()
	log := zerolog.Nop()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), log)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return context.Background(), NewRoundRepository(db, log), NewRegionRepository(db, log)
}

func newRound(t *testing.T, ctx context.Context, rounds *RoundRepository) *domain.Round {
	t.Helper()
	round := &domain.Round{Rows: 4, Cols: 4, HomeRed: "A1", HomeBlue: "D4", StartedAt: time.Now()}
	if err := rounds.Create(ctx, round); err != nil {
		t.Fatalf("create round: %v", err)
	}
	return round
}

func TestGetUnknownRegionReturnsNil(t *testing.T) {
	ctx, rounds, regions := setup(t)
	round := newRound(t, ctx, rounds)

	got, err := regions.Get(ctx, round.ID, "A1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing region, got %+v", got)
	}
}

func TestReplaceIsVisibleImmediately(t *testing.T) {
	ctx, rounds, regions := setup(t)
	round := newRound(t, ctx, rounds)

	now := time.Now()
	seed := []domain.Region{{
		RoundID: round.ID, ID: "A2", State: domain.StateNeutral, CreatedAt: now, UpdatedAt: now,
	}}
	if err := regions.CreateBatch(ctx, seed); err != nil {
		t.Fatalf("create batch: %v", err)
	}

	region, err := regions.Get(ctx, round.ID, "A2")
	if err != nil || region == nil {
		t.Fatalf("get after create: %v %v", region, err)
	}

	// A write must refresh the cache synchronously: the very next read,
	// inside the TTL, has to see the replaced record.
	region.Owner = domain.TeamRed
	region.State = domain.StateFortified
	until := now.Add(10 * time.Minute)
	region.FortifiedUntil = &until
	region.TimesCaptured = 1
	if err := regions.Replace(ctx, region); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := regions.Get(ctx, round.ID, "A2")
	if err != nil || got == nil {
		t.Fatalf("get after replace: %v %v", got, err)
	}
	if got.Owner != domain.TeamRed || got.State != domain.StateFortified || got.TimesCaptured != 1 {
		t.Fatalf("stale read after replace: %+v", got)
	}
	if got.FortifiedUntil == nil {
		t.Fatalf("fortified_until lost in replace")
	}
}

func TestReplaceUnknownRegionFails(t *testing.T) {
	ctx, rounds, regions := setup(t)
	round := newRound(t, ctx, rounds)

	ghost := &domain.Region{RoundID: round.ID, ID: "Z9", State: domain.StateNeutral}
	if err := regions.Replace(ctx, ghost); err == nil {
		t.Fatalf("replacing a nonexistent region must fail")
	}
}

func TestRoundsPartitionRegions(t *testing.T) {
	ctx, rounds, regions := setup(t)
	first := newRound(t, ctx, rounds)
	second := newRound(t, ctx, rounds)

	now := time.Now()
	seed := []domain.Region{
		{RoundID: first.ID, ID: "A2", Owner: domain.TeamRed, State: domain.StateOwned, CreatedAt: now, UpdatedAt: now},
		{RoundID: second.ID, ID: "A2", State: domain.StateNeutral, CreatedAt: now, UpdatedAt: now},
	}
	if err := regions.CreateBatch(ctx, seed); err != nil {
		t.Fatalf("create batch: %v", err)
	}

	old, err := regions.Get(ctx, first.ID, "A2")
	if err != nil || old == nil || old.Owner != domain.TeamRed {
		t.Fatalf("historical round record lost: %+v %v", old, err)
	}
	fresh, err := regions.Get(ctx, second.ID, "A2")
	if err != nil || fresh == nil || fresh.Owner != domain.TeamNone {
		t.Fatalf("new round record wrong: %+v %v", fresh, err)
	}
}

func TestByOwnerFilters(t *testing.T) {
	ctx, rounds, regions := setup(t)
	round := newRound(t, ctx, rounds)

	now := time.Now()
	seed := []domain.Region{
		{RoundID: round.ID, ID: "A1", Owner: domain.TeamRed, State: domain.StateProtected, CreatedAt: now, UpdatedAt: now},
		{RoundID: round.ID, ID: "A2", Owner: domain.TeamRed, State: domain.StateOwned, CreatedAt: now, UpdatedAt: now},
		{RoundID: round.ID, ID: "B1", Owner: domain.TeamBlue, State: domain.StateOwned, CreatedAt: now, UpdatedAt: now},
		{RoundID: round.ID, ID: "B2", State: domain.StateNeutral, CreatedAt: now, UpdatedAt: now},
	}
	if err := regions.CreateBatch(ctx, seed); err != nil {
		t.Fatalf("create batch: %v", err)
	}

	red, err := regions.ByOwner(ctx, round.ID, domain.TeamRed)
	if err != nil {
		t.Fatalf("by owner: %v", err)
	}
	if len(red) != 2 {
		t.Fatalf("red regions = %d, want 2", len(red))
	}
}
