// Package board implements the tile graph and the movement resolver.
package board

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"tile-race-bot/internal/model"
)

// Errors for board construction and queries.
var (
	ErrEmptyBoard   = errors.New("board has no tiles")
	ErrDanglingTile = errors.New("tile references unknown successor")
	ErrUnknownTile  = errors.New("unknown tile")
)

// Board is the directed graph of tiles built from each tile's successor list.
// A Board is read-only after Build and safe for concurrent use.
type Board struct {
	tiles map[string]model.Tile
	next  map[string][]string
	ids   []string
	chain bool
}

// Build creates a board from tiles, adding one edge per (tile, successor) pair.
// A successor that does not exist in tiles is a configuration error.
func Build(tiles map[string]model.Tile) (*Board, error) {
	if len(tiles) == 0 {
		return nil, ErrEmptyBoard
	}

	b := &Board{
		tiles: make(map[string]model.Tile, len(tiles)),
		next:  make(map[string][]string, len(tiles)),
		ids:   make([]string, 0, len(tiles)),
	}

	for id, t := range tiles {
		t.ID = id
		t.Next = slices.Clone(t.Next)
		b.tiles[id] = t
		b.ids = append(b.ids, id)
	}
	slices.SortFunc(b.ids, CompareIDs)

	for _, id := range b.ids {
		for _, succ := range b.tiles[id].Next {
			if _, ok := tiles[succ]; !ok {
				return nil, fmt.Errorf("%w: %s -> %s", ErrDanglingTile, id, succ)
			}
			// Parallel edges collapse into one.
			if slices.Contains(b.next[id], succ) {
				continue
			}
			b.next[id] = append(b.next[id], succ)
		}
	}

	b.chain = b.isChain()
	return b, nil
}

// Tile returns the tile with the given ID.
func (b *Board) Tile(id string) (model.Tile, bool) {
	t, ok := b.tiles[id]
	return t, ok
}

// Has reports whether id is a node of the board.
func (b *Board) Has(id string) bool {
	_, ok := b.tiles[id]
	return ok
}

// Tiles returns a copy of the tile set.
func (b *Board) Tiles() map[string]model.Tile {
	out := make(map[string]model.Tile, len(b.tiles))
	for id, t := range b.tiles {
		out[id] = t
	}
	return out
}

// IDs returns the tile IDs in natural order (tile2 before tile10).
func (b *Board) IDs() []string {
	return slices.Clone(b.ids)
}

// Len returns the number of tiles.
func (b *Board) Len() int {
	return len(b.ids)
}

// Successors returns the outgoing edges of id in declared order.
func (b *Board) Successors(id string) []string {
	return slices.Clone(b.next[id])
}

// IsChain reports whether the board is a single linear chain of tiles.
func (b *Board) IsChain() bool {
	return b.chain
}

// Paths returns every simple path of exactly length edges starting at from.
// Paths are produced depth-first following the declared successor order.
func (b *Board) Paths(from string, length int) ([][]string, error) {
	if !b.Has(from) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTile, from)
	}

	var paths [][]string
	b.walkPaths(from, length, func(p []string) bool {
		paths = append(paths, slices.Clone(p))
		return true
	})
	return paths, nil
}

// CanAdvance reports whether any simple path of exactly steps edges leaves from.
func (b *Board) CanAdvance(from string, steps int) bool {
	found := false
	b.walkPaths(from, steps, func([]string) bool {
		found = true
		return false
	})
	return found
}

// Walk follows the single successor of each tile for up to steps tiles and
// returns the tiles visited after from. It returns nil unless the board is a chain.
func (b *Board) Walk(from string, steps int) []string {
	if !b.chain || !b.Has(from) {
		return nil
	}

	var out []string
	cur := from
	for i := 0; i < steps; i++ {
		succ := b.next[cur]
		if len(succ) == 0 {
			break
		}
		cur = succ[0]
		out = append(out, cur)
	}
	return out
}

// walkPaths calls visit with every simple path of exactly length edges from
// start. Returning false from visit stops the search.
func (b *Board) walkPaths(start string, length int, visit func([]string) bool) {
	if length <= 0 || !b.Has(start) {
		return
	}

	path := []string{start}
	onPath := map[string]bool{start: true}
	stopped := false

	var dfs func(node string)
	dfs = func(node string) {
		if len(path)-1 == length {
			if !visit(path) {
				stopped = true
			}
			return
		}
		for _, succ := range b.next[node] {
			if onPath[succ] {
				continue
			}
			onPath[succ] = true
			path = append(path, succ)
			dfs(succ)
			path = path[:len(path)-1]
			delete(onPath, succ)
			if stopped {
				return
			}
		}
	}
	dfs(start)
}

// isChain checks for exactly one start tile, in/out degree at most one
// everywhere, and a walk from the start that covers every tile.
func (b *Board) isChain() bool {
	indeg := make(map[string]int, len(b.ids))
	for _, id := range b.ids {
		if len(b.next[id]) > 1 {
			return false
		}
		for _, succ := range b.next[id] {
			indeg[succ]++
		}
	}

	start := ""
	for _, id := range b.ids {
		switch indeg[id] {
		case 0:
			if start != "" {
				return false
			}
			start = id
		case 1:
		default:
			return false
		}
	}
	if start == "" {
		return false
	}

	visited := 1
	for cur := start; len(b.next[cur]) == 1; cur = b.next[cur][0] {
		visited++
		if visited > len(b.ids) {
			return false
		}
	}
	return visited == len(b.ids)
}

// CompareIDs orders tile IDs naturally, so "tile2" sorts before "tile10".
func CompareIDs(a, b string) int {
	pa, na, oka := splitNumericSuffix(a)
	pb, nb, okb := splitNumericSuffix(b)
	if oka && okb && pa == pb {
		if c := cmp.Compare(na, nb); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

func splitNumericSuffix(s string) (string, int, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s, 0, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		return s, 0, false
	}
	return s[:i], n, true
}
