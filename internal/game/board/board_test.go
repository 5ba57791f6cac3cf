package board

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tile-race-bot/internal/model"
)

// chainTiles builds tile0 -> tile1 -> ... -> tile{n-1}.
func chainTiles(n int) map[string]model.Tile {
	tiles := make(map[string]model.Tile, n)
	for i := 0; i < n; i++ {
		t := model.Tile{Name: fmt.Sprintf("Tile %d", i)}
		if i < n-1 {
			t.Next = []string{fmt.Sprintf("tile%d", i+1)}
		}
		tiles[fmt.Sprintf("tile%d", i)] = t
	}
	return tiles
}

// graphTiles builds tiles from an adjacency list.
func graphTiles(adj map[string][]string) map[string]model.Tile {
	tiles := make(map[string]model.Tile)
	for id, next := range adj {
		tiles[id] = model.Tile{Name: id, Next: next}
		for _, n := range next {
			if _, ok := adj[n]; !ok {
				tiles[n] = model.Tile{Name: n}
			}
		}
	}
	return tiles
}

func mustBuild(t *testing.T, tiles map[string]model.Tile) *Board {
	t.Helper()
	b, err := Build(tiles)
	require.NoError(t, err)
	return b
}

func TestBuild(t *testing.T) {
	t.Run("empty board", func(t *testing.T) {
		_, err := Build(nil)
		assert.ErrorIs(t, err, ErrEmptyBoard)
	})

	t.Run("dangling successor", func(t *testing.T) {
		_, err := Build(map[string]model.Tile{
			"tile0": {Name: "Start", Next: []string{"tile9"}},
		})
		assert.ErrorIs(t, err, ErrDanglingTile)
	})

	t.Run("parallel edges collapse", func(t *testing.T) {
		b := mustBuild(t, map[string]model.Tile{
			"tile0": {Next: []string{"tile1", "tile1"}},
			"tile1": {},
		})
		assert.Equal(t, []string{"tile1"}, b.Successors("tile0"))
	})

	t.Run("tile id comes from the key", func(t *testing.T) {
		b := mustBuild(t, map[string]model.Tile{"tile0": {ID: "other"}})
		tile, ok := b.Tile("tile0")
		require.True(t, ok)
		assert.Equal(t, "tile0", tile.ID)
	})
}

func TestBoard_IDsNaturalOrder(t *testing.T) {
	b := mustBuild(t, chainTiles(12))
	ids := b.IDs()
	assert.Equal(t, "tile0", ids[0])
	assert.Equal(t, "tile2", ids[2])
	assert.Equal(t, "tile11", ids[11])
}

func TestBoard_IsChain(t *testing.T) {
	tests := []struct {
		name  string
		tiles map[string]model.Tile
		want  bool
	}{
		{"single tile", chainTiles(1), true},
		{"ten tile chain", chainTiles(10), true},
		{"fork", graphTiles(map[string][]string{"tile0": {"tile1", "tile2"}}), false},
		{"merge", graphTiles(map[string][]string{"tile0": {"tile2"}, "tile1": {"tile2"}}), false},
		{"cycle", graphTiles(map[string][]string{"tile0": {"tile1"}, "tile1": {"tile0"}}), false},
		{"two chains", graphTiles(map[string][]string{"tile0": {"tile1"}, "tile2": {"tile3"}}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustBuild(t, tt.tiles).IsChain())
		})
	}
}

func TestBoard_Paths(t *testing.T) {
	b := mustBuild(t, graphTiles(map[string][]string{
		"tile3": {"tile4", "tile7"},
		"tile4": {"tile6"},
		"tile7": {"tile6"},
	}))

	paths, err := b.Paths("tile3", 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"tile3", "tile4", "tile6"},
		{"tile3", "tile7", "tile6"},
	}, paths)

	_, err = b.Paths("nowhere", 1)
	assert.ErrorIs(t, err, ErrUnknownTile)
}

func TestBoard_Walk(t *testing.T) {
	b := mustBuild(t, chainTiles(5))
	assert.Equal(t, []string{"tile3", "tile4"}, b.Walk("tile2", 3))

	fork := mustBuild(t, graphTiles(map[string][]string{"tile0": {"tile1", "tile2"}}))
	assert.Nil(t, fork.Walk("tile0", 1))
}

// TestResolve covers the end-to-end movement scenarios.
func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		tiles       map[string]model.Tile
		from        string
		roll        int
		kind        OutcomeKind
		destination string
		options     []string
	}{
		{
			name:        "chain advances exactly",
			tiles:       chainTiles(10),
			from:        "tile2",
			roll:        3,
			kind:        Deterministic,
			destination: "tile5",
		},
		{
			name: "two routes to one destination",
			tiles: graphTiles(map[string][]string{
				"tile3": {"tile4", "tile7"},
				"tile4": {"tile6"},
				"tile7": {"tile6"},
			}),
			from:        "tile3",
			roll:        2,
			kind:        Deterministic,
			destination: "tile6",
		},
		{
			name:    "fork of two",
			tiles:   graphTiles(map[string][]string{"tile0": {"tile1", "tile2"}}),
			from:    "tile0",
			roll:    1,
			kind:    Fork,
			options: []string{"tile1", "tile2"},
		},
		{
			name:  "zero roll",
			tiles: chainTiles(4),
			from:  "tile0",
			roll:  0,
			kind:  NoMove,
		},
		{
			name:  "overshoot end of chain",
			tiles: chainTiles(4),
			from:  "tile2",
			roll:  3,
			kind:  NoMove,
		},
		{
			name:  "sink",
			tiles: chainTiles(3),
			from:  "tile2",
			roll:  1,
			kind:  NoMove,
		},
		{
			name:  "self loop never moves",
			tiles: graphTiles(map[string][]string{"tile0": {"tile0"}}),
			from:  "tile0",
			roll:  1,
			kind:  NoMove,
		},
		{
			name: "cycle cannot revisit",
			tiles: graphTiles(map[string][]string{
				"tile0": {"tile1"},
				"tile1": {"tile2"},
				"tile2": {"tile0"},
			}),
			from:  "tile0",
			roll:  3,
			kind:  NoMove,
		},
		{
			name: "loop back shortcut",
			tiles: graphTiles(map[string][]string{
				"tile0": {"tile1"},
				"tile1": {"tile2", "tile0"},
				"tile2": {"tile3"},
			}),
			from:        "tile0",
			roll:        2,
			kind:        Deterministic,
			destination: "tile2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBuild(t, tt.tiles)
			out, err := Resolve(b, tt.from, tt.roll)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, out.Kind)
			assert.Equal(t, tt.destination, out.Destination)

			var got []string
			for _, o := range out.Options {
				got = append(got, o.Tile)
			}
			assert.Equal(t, tt.options, got)
		})
	}
}

func TestResolve_ForkKeys(t *testing.T) {
	b := mustBuild(t, graphTiles(map[string][]string{"tile0": {"tile1", "tile2"}}))
	out, err := Resolve(b, "tile0", 1)
	require.NoError(t, err)
	require.Len(t, out.Options, 2)
	assert.Equal(t, model.ForkOption{Key: "A", Symbol: "🇦", Tile: "tile1"}, out.Options[0])
	assert.Equal(t, model.ForkOption{Key: "B", Symbol: "🇧", Tile: "tile2"}, out.Options[1])
}

func TestResolve_ForkCap(t *testing.T) {
	next := make([]string, 0, 8)
	for i := 1; i <= 8; i++ {
		next = append(next, fmt.Sprintf("tile%d", i))
	}
	b := mustBuild(t, graphTiles(map[string][]string{"tile0": next}))

	out, err := Resolve(b, "tile0", 1)
	require.NoError(t, err)
	assert.Equal(t, Fork, out.Kind)
	assert.Len(t, out.Options, MaxChoices)
	assert.Equal(t, []string{"tile7", "tile8"}, out.Dropped)
}

func TestResolve_UnknownTile(t *testing.T) {
	b := mustBuild(t, chainTiles(3))
	_, err := Resolve(b, "tile99", 1)
	assert.ErrorIs(t, err, ErrUnknownTile)
}

func TestResolve_MustHit(t *testing.T) {
	t.Run("stops on must-hit tile in a chain", func(t *testing.T) {
		tiles := chainTiles(10)
		boss := tiles["tile4"]
		boss.MustHit = true
		tiles["tile4"] = boss

		out, err := Resolve(mustBuild(t, tiles), "tile2", 3)
		require.NoError(t, err)
		assert.Equal(t, Deterministic, out.Kind)
		assert.Equal(t, "tile4", out.Destination)
		assert.Equal(t, 2, out.Roll)
		assert.True(t, out.MustHit)
	})

	t.Run("landing exactly on must-hit is not an override", func(t *testing.T) {
		tiles := chainTiles(10)
		boss := tiles["tile5"]
		boss.MustHit = true
		tiles["tile5"] = boss

		out, err := Resolve(mustBuild(t, tiles), "tile2", 3)
		require.NoError(t, err)
		assert.Equal(t, "tile5", out.Destination)
		assert.False(t, out.MustHit)
	})

	t.Run("must-hit end tile catches overshoot", func(t *testing.T) {
		tiles := chainTiles(4)
		end := tiles["tile3"]
		end.MustHit = true
		tiles["tile3"] = end

		out, err := Resolve(mustBuild(t, tiles), "tile2", 3)
		require.NoError(t, err)
		assert.Equal(t, Deterministic, out.Kind)
		assert.Equal(t, "tile3", out.Destination)
	})

	t.Run("ignored on branching boards", func(t *testing.T) {
		tiles := graphTiles(map[string][]string{
			"tile0": {"tile1", "tile5"},
			"tile1": {"tile2"},
			"tile5": {"tile6"},
		})
		mh := tiles["tile1"]
		mh.MustHit = true
		tiles["tile1"] = mh

		out, err := Resolve(mustBuild(t, tiles), "tile0", 2)
		require.NoError(t, err)
		assert.Equal(t, Fork, out.Kind)
		assert.False(t, out.MustHit)
	})
}

func TestResolve_Route(t *testing.T) {
	b := mustBuild(t, graphTiles(map[string][]string{
		"tile3": {"tile4", "tile7"},
		"tile4": {"tile6"},
		"tile7": {"tile6"},
	}))
	out, err := Resolve(b, "tile3", 2)
	require.NoError(t, err)
	// First-seen route wins.
	assert.Equal(t, []string{"tile3", "tile4", "tile6"}, out.Route)
}

func TestCanAdvance(t *testing.T) {
	b := mustBuild(t, chainTiles(5))
	assert.True(t, b.CanAdvance("tile0", 4))
	assert.False(t, b.CanAdvance("tile0", 5))
	assert.False(t, b.CanAdvance("tile0", 0))
}

func TestCompareIDs(t *testing.T) {
	assert.Negative(t, CompareIDs("tile2", "tile10"))
	assert.Positive(t, CompareIDs("tile10", "tile9"))
	assert.Zero(t, CompareIDs("tile3", "tile3"))
	assert.Negative(t, CompareIDs("alpha", "beta"))
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "no_move", NoMove.String())
	assert.Equal(t, "deterministic", Deterministic.String())
	assert.Equal(t, "fork", Fork.String())
}
