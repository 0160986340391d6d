package domain

import (
	"fmt"
	"time"
)

// Team identifies one of the two factions. TeamNone marks a neutral region.
type Team string

const (
	TeamNone Team = ""
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Teams returns the two playable factions.
func Teams() []Team {
	return []Team{TeamRed, TeamBlue}
}

// IsValid reports whether t is a playable faction.
func (t Team) IsValid() bool {
	return t == TeamRed || t == TeamBlue
}

// Opponent returns the opposing faction, or TeamNone for TeamNone.
func (t Team) Opponent() Team {
	switch t {
	case TeamRed:
		return TeamBlue
	case TeamBlue:
		return TeamRed
	}
	return TeamNone
}

func (t Team) String() string { return string(t) }

// RegionID is a grid coordinate code: row letter plus column number ("A1").
type RegionID string

func (r RegionID) String() string { return string(r) }

// RegionState is the capture state machine position of a region.
type RegionState string

const (
	StateNeutral   RegionState = "neutral"
	StateOwned     RegionState = "owned"
	StateContested RegionState = "contested"
	StateFortified RegionState = "fortified"
	StateProtected RegionState = "protected"
)

// IsValid reports whether s is a recognized region state.
func (s RegionState) IsValid() bool {
	switch s {
	case StateNeutral, StateOwned, StateContested, StateFortified, StateProtected:
		return true
	}
	return false
}

// Region is the authoritative record for one grid cell in one round.
// Multi-field transitions (capture, decay reversion) always replace the
// whole record in one write so readers never see a partial update.
type Region struct {
	RoundID        string
	ID             RegionID
	Owner          Team // TeamNone while neutral
	State          RegionState
	InfluenceRed   float64
	InfluenceBlue  float64
	FortifiedUntil *time.Time
	OwnedSince     *time.Time
	TimesCaptured  int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Influence returns the accumulator for the given team.
func (r *Region) Influence(t Team) float64 {
	switch t {
	case TeamRed:
		return r.InfluenceRed
	case TeamBlue:
		return r.InfluenceBlue
	}
	return 0
}

// SetInfluence writes the accumulator for the given team, flooring at zero.
func (r *Region) SetInfluence(t Team, v float64) {
	if v < 0 {
		v = 0
	}
	switch t {
	case TeamRed:
		r.InfluenceRed = v
	case TeamBlue:
		r.InfluenceBlue = v
	}
}

// HeldBy reports whether the region counts as held by t for adjacency and
// supply purposes: owned, contested, fortified or protected with t as owner.
func (r *Region) HeldBy(t Team) bool {
	if r.Owner != t || !t.IsValid() {
		return false
	}
	switch r.State {
	case StateOwned, StateContested, StateFortified, StateProtected:
		return true
	}
	return false
}

// Round scopes all region and ledger state for one play-through.
type Round struct {
	ID        string
	Rows      int
	Cols      int
	HomeRed   RegionID
	HomeBlue  RegionID
	StartedAt time.Time
	EndedAt   *time.Time // nil while the round is active
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the round is still in progress.
func (r *Round) Active() bool { return r != nil && r.EndedAt == nil }

// HomeOf returns the team's home region.
func (r *Round) HomeOf(t Team) RegionID {
	switch t {
	case TeamRed:
		return r.HomeRed
	case TeamBlue:
		return r.HomeBlue
	}
	return ""
}

// CaptureEvent is emitted exactly once per successful capture transition.
type CaptureEvent struct {
	RoundID       string    `json:"round_id"`
	Region        RegionID  `json:"region"`
	NewOwner      Team      `json:"new_owner"`
	PreviousOwner Team      `json:"previous_owner,omitempty"` // TeamNone when captured from neutral
	At            time.Time `json:"at"`
}

func (e CaptureEvent) String() string {
	return fmt.Sprintf("capture %s by %s (was %q)", e.Region, e.NewOwner, e.PreviousOwner)
}

// Contribution is one player's cumulative ledger row for a region and round.
type Contribution struct {
	ID            string // nanoid
	RoundID       string
	RegionID      RegionID
	PlayerID      string
	Team          Team
	Influence     float64
	Kills         int
	Deaths        int
	BlocksPlaced  int
	BlocksMined   int
	BannersPlaced int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
