package domain

// ActionKind tags an influence-earning player action. Point values and rate
// caps live in the tuning lookup table, not on the kind itself, so they stay
// tunable without a rebuild.
type ActionKind string

const (
	ActionKill             ActionKind = "kill"
	ActionBlockPlace       ActionKind = "block_place"
	ActionBlockBreak       ActionKind = "block_break"
	ActionBannerPlace      ActionKind = "banner_place"
	ActionBannerRemove     ActionKind = "banner_remove"
	ActionMobKill          ActionKind = "mob_kill"
	ActionWorkstationPlace ActionKind = "workstation_place"
)

// ActionKinds returns every recognized kind.
func ActionKinds() []ActionKind {
	return []ActionKind{
		ActionKill,
		ActionBlockPlace,
		ActionBlockBreak,
		ActionBannerPlace,
		ActionBannerRemove,
		ActionMobKill,
		ActionWorkstationPlace,
	}
}

// IsValid reports whether k is a recognized action kind.
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionKill, ActionBlockPlace, ActionBlockBreak, ActionBannerPlace,
		ActionBannerRemove, ActionMobKill, ActionWorkstationPlace:
		return true
	}
	return false
}

func (k ActionKind) String() string { return string(k) }

// ActionSpec is the tunable profile of one action kind.
type ActionSpec struct {
	BasePoints float64
	// EnemyRegionOnly rejects the action in neutral regions.
	EnemyRegionOnly bool
	// RateCap of 0 means the kind is not rate limited.
	RateCap      int
	RateWindowMs int
}
