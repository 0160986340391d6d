// Package grid resolves adjacency and supply connectivity over the fixed
// territory grid. Everything here is pure: callers supply an ownership
// lookup and connectivity is recomputed on demand rather than maintained
// incrementally, which is the right trade at <=16 nodes.
package grid

import (
	"fmt"

	"territory-engine/internal/domain"
)

// Grid is the fixed board topology for one round.
type Grid struct {
	Rows     int
	Cols     int
	Diagonal bool // include the four diagonal neighbors
}

// New returns a grid, clamping degenerate dimensions to 1.
func New(rows, cols int, diagonal bool) Grid {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return Grid{Rows: rows, Cols: cols, Diagonal: diagonal}
}

// ID builds the region code for a zero-based (row, col) pair: row letter
// plus one-based column number, e.g. (0,0) -> "A1".
func ID(row, col int) domain.RegionID {
	return domain.RegionID(fmt.Sprintf("%c%d", 'A'+rune(row), col+1))
}

// Parse splits a region code back into zero-based coordinates.
func Parse(id domain.RegionID) (row, col int, err error) {
	s := string(id)
	if len(s) < 2 || s[0] < 'A' || s[0] > 'Z' {
		return 0, 0, fmt.Errorf("malformed region id %q", id)
	}
	row = int(s[0] - 'A')
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return 0, 0, fmt.Errorf("malformed region id %q", id)
		}
		col = col*10 + int(c-'0')
	}
	if col < 1 {
		return 0, 0, fmt.Errorf("malformed region id %q", id)
	}
	return row, col - 1, nil
}

// Contains reports whether id names a cell inside the grid.
func (g Grid) Contains(id domain.RegionID) bool {
	row, col, err := Parse(id)
	if err != nil {
		return false
	}
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// All lists every cell in row-major order.
func (g Grid) All() []domain.RegionID {
	ids := make([]domain.RegionID, 0, g.Rows*g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			ids = append(ids, ID(r, c))
		}
	}
	return ids
}

var (
	orthoOffsets = [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	diagOffsets  = [][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
)

// Adjacent returns the neighbors of id clipped at the grid bounds: up to
// four orthogonal cells, plus four diagonals when diagonal adjacency is on.
// Unknown ids get no neighbors.
func (g Grid) Adjacent(id domain.RegionID) []domain.RegionID {
	row, col, err := Parse(id)
	if err != nil || row < 0 || row >= g.Rows || col < 0 || col >= g.Cols {
		return nil
	}
	offsets := orthoOffsets
	if g.Diagonal {
		offsets = append(append([][2]int{}, orthoOffsets...), diagOffsets...)
	}
	var out []domain.RegionID
	for _, o := range offsets {
		r, c := row+o[0], col+o[1]
		if r < 0 || r >= g.Rows || c < 0 || c >= g.Cols {
			continue
		}
		out = append(out, ID(r, c))
	}
	return out
}

// IsAdjacentToHeld reports whether any neighbor of id satisfies held.
// Callers pass a lookup that answers "does the acting team hold this cell".
func (g Grid) IsAdjacentToHeld(id domain.RegionID, held func(domain.RegionID) bool) bool {
	for _, n := range g.Adjacent(id) {
		if held(n) {
			return true
		}
	}
	return false
}

// Unreachable is the distance reported when no supply path exists.
const Unreachable = -1

// ShortestPath runs a breadth-first search from `from` to `to` where
// traversable cells are exactly those satisfying held, with `exclude`
// removed from the traversable set ("" excludes nothing). `from` and `to`
// must themselves be held to be traversable; from == to is distance 0
// regardless.
func (g Grid) ShortestPath(from, to domain.RegionID, held func(domain.RegionID) bool, exclude domain.RegionID) int {
	if from == to {
		return 0
	}
	if !g.Contains(from) || !g.Contains(to) {
		return Unreachable
	}
	passable := func(id domain.RegionID) bool {
		return id != exclude && held(id)
	}
	if !passable(from) || !passable(to) {
		return Unreachable
	}

	dist := map[domain.RegionID]int{from: 0}
	queue := []domain.RegionID{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.Adjacent(cur) {
			if _, seen := dist[n]; seen || !passable(n) {
				continue
			}
			dist[n] = dist[cur] + 1
			if n == to {
				return dist[n]
			}
			queue = append(queue, n)
		}
	}
	return Unreachable
}

// CutOff reports which held cells (other than home and candidate itself)
// would lose their supply path to home if candidate were abandoned. Used to
// warn before voluntarily giving up a region.
func (g Grid) CutOff(candidate, home domain.RegionID, heldAll []domain.RegionID, held func(domain.RegionID) bool) []domain.RegionID {
	var lost []domain.RegionID
	for _, id := range heldAll {
		if id == candidate || id == home {
			continue
		}
		if g.ShortestPath(id, home, held, candidate) == Unreachable {
			lost = append(lost, id)
		}
	}
	return lost
}
