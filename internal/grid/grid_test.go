package grid

import (
	"sort"
	"testing"

	"territory-engine/internal/domain"
)

func ids(ss ...string) []domain.RegionID {
	out := make([]domain.RegionID, len(ss))
	for i, s := range ss {
		out[i] = domain.RegionID(s)
	}
	return out
}

func sortIDs(in []domain.RegionID) []domain.RegionID {
	out := append([]domain.RegionID{}, in...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func equalIDs(a, b []domain.RegionID) bool {
	if len(a) != len(b) {
		return false
	}
	a, b = sortIDs(a), sortIDs(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParseRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		id   domain.RegionID
		row  int
		col  int
	}{
		{"A1", 0, 0},
		{"B3", 1, 2},
		{"D4", 3, 3},
		{"C12", 2, 11},
	} {
		row, col, err := Parse(tc.id)
		if err != nil {
			t.Fatalf("Parse(%s): %v", tc.id, err)
		}
		if row != tc.row || col != tc.col {
			t.Fatalf("Parse(%s) = (%d,%d), want (%d,%d)", tc.id, row, col, tc.row, tc.col)
		}
		if got := ID(row, col); got != tc.id {
			t.Fatalf("ID(%d,%d) = %s, want %s", row, col, got, tc.id)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, bad := range ids("", "A", "1A", "a1", "A0", "AB", "A-1") {
		if _, _, err := Parse(bad); err == nil {
			t.Fatalf("Parse(%q) accepted malformed id", bad)
		}
	}
}

func TestAdjacentClipsAtBounds(t *testing.T) {
	g := New(4, 4, false)

	if got := g.Adjacent("A1"); !equalIDs(got, ids("A2", "B1")) {
		t.Fatalf("corner A1 neighbors = %v", got)
	}
	if got := g.Adjacent("A3"); !equalIDs(got, ids("A2", "A4", "B3")) {
		t.Fatalf("edge A3 neighbors = %v", got)
	}
	if got := g.Adjacent("B2"); !equalIDs(got, ids("A2", "B1", "B3", "C2")) {
		t.Fatalf("center B2 neighbors = %v", got)
	}
	if got := g.Adjacent("Z9"); got != nil {
		t.Fatalf("out-of-grid id should have no neighbors, got %v", got)
	}
}

func TestAdjacentDiagonal(t *testing.T) {
	g := New(4, 4, true)

	if got := g.Adjacent("B2"); !equalIDs(got, ids("A2", "B1", "B3", "C2", "A1", "A3", "C1", "C3")) {
		t.Fatalf("diagonal B2 neighbors = %v", got)
	}
	if got := g.Adjacent("A1"); !equalIDs(got, ids("A2", "B1", "B2")) {
		t.Fatalf("diagonal corner A1 neighbors = %v", got)
	}
}

func TestIsAdjacentToHeld(t *testing.T) {
	g := New(4, 4, false)
	held := func(id domain.RegionID) bool { return id == "A1" }

	if !g.IsAdjacentToHeld("A2", held) {
		t.Fatalf("A2 should be adjacent to held A1")
	}
	if g.IsAdjacentToHeld("C3", held) {
		t.Fatalf("C3 should not be adjacent to held A1")
	}
}

func TestShortestPathHomeIsZero(t *testing.T) {
	g := New(4, 4, false)
	nothingHeld := func(domain.RegionID) bool { return false }

	if d := g.ShortestPath("A1", "A1", nothingHeld, ""); d != 0 {
		t.Fatalf("home to itself = %d, want 0", d)
	}
}

func TestShortestPathThroughHeldCells(t *testing.T) {
	g := New(4, 4, false)
	heldSet := map[domain.RegionID]bool{"A1": true, "A2": true, "A3": true, "B3": true}
	held := func(id domain.RegionID) bool { return heldSet[id] }

	if d := g.ShortestPath("B3", "A1", held, ""); d != 3 {
		t.Fatalf("B3 to A1 = %d, want 3", d)
	}
	// D4 is not held at all.
	if d := g.ShortestPath("D4", "A1", held, ""); d != Unreachable {
		t.Fatalf("unheld D4 should be unreachable, got %d", d)
	}
	// A3 loses its line when A2 is excluded.
	if d := g.ShortestPath("A3", "A1", held, "A2"); d != Unreachable {
		t.Fatalf("A3 should be unreachable without A2, got %d", d)
	}
}

func TestCutOff(t *testing.T) {
	g := New(4, 4, false)
	heldSet := map[domain.RegionID]bool{"A1": true, "A2": true, "A3": true, "A4": true}
	held := func(id domain.RegionID) bool { return heldSet[id] }
	heldAll := ids("A1", "A2", "A3", "A4")

	// Dropping A2 severs everything past it.
	if got := g.CutOff("A2", "A1", heldAll, held); !equalIDs(got, ids("A3", "A4")) {
		t.Fatalf("cut off by abandoning A2 = %v, want [A3 A4]", got)
	}
	// Dropping the far end severs nothing else.
	if got := g.CutOff("A4", "A1", heldAll, held); len(got) != 0 {
		t.Fatalf("abandoning A4 should cut nothing, got %v", got)
	}
}
