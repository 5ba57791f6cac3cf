package repository

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"tile-race-bot/internal/model"
)

func newTestTeams() map[string]model.Team {
	return map[string]model.Team{
		"Red":  {Members: []int64{1, 2}, Tile: "tile0", Rerolls: 1, Skips: 1},
		"Blue": {Members: []int64{3}, Tile: "tile0"},
	}
}

func TestNewTeamRepository(t *testing.T) {
	t.Run("no teams", func(t *testing.T) {
		_, err := NewTeamRepository(nil)
		assert.ErrorIs(t, err, ErrNoTeams)
	})

	t.Run("duplicate member", func(t *testing.T) {
		_, err := NewTeamRepository(map[string]model.Team{
			"Red":  {Members: []int64{1}},
			"Blue": {Members: []int64{1}},
		})
		assert.ErrorIs(t, err, ErrDuplicateMember)
	})

	t.Run("name comes from the key", func(t *testing.T) {
		repo, err := NewTeamRepository(map[string]model.Team{"Red": {Name: "ignored"}})
		require.NoError(t, err)
		team, err := repo.Get("Red")
		require.NoError(t, err)
		assert.Equal(t, "Red", team.Name)
	})
}

func TestTeamRepository_FindByMember(t *testing.T) {
	repo, err := NewTeamRepository(newTestTeams())
	require.NoError(t, err)

	name, ok := repo.FindByMember(2)
	assert.True(t, ok)
	assert.Equal(t, "Red", name)

	_, ok = repo.FindByMember(99)
	assert.False(t, ok)
}

func TestTeamRepository_GetNotFound(t *testing.T) {
	repo, err := NewTeamRepository(newTestTeams())
	require.NoError(t, err)

	_, err = repo.Get("Green")
	assert.ErrorIs(t, err, ErrTeamNotFound)

	_, err = repo.Mutate("Green", func(*model.Team) error { return nil })
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestTeamRepository_Mutate(t *testing.T) {
	repo, err := NewTeamRepository(newTestTeams())
	require.NoError(t, err)

	updated, err := repo.Mutate("Red", func(team *model.Team) error {
		team.PreviousTile = team.Tile
		team.Tile = "tile3"
		team.Rerolls--
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "tile3", updated.Tile)
	assert.Equal(t, 0, updated.Rerolls)

	stored, err := repo.Get("Red")
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

func TestTeamRepository_MutateErrorLeavesStateUnchanged(t *testing.T) {
	repo, err := NewTeamRepository(newTestTeams())
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = repo.Mutate("Red", func(team *model.Team) error {
		team.Tile = "tile9"
		team.Skips = 0
		return boom
	})
	assert.ErrorIs(t, err, boom)

	team, err := repo.Get("Red")
	require.NoError(t, err)
	assert.Equal(t, "tile0", team.Tile)
	assert.Equal(t, 1, team.Skips)
}

func TestTeamRepository_GetReturnsCopy(t *testing.T) {
	repo, err := NewTeamRepository(newTestTeams())
	require.NoError(t, err)

	_, err = repo.Mutate("Red", func(team *model.Team) error {
		team.Pending = &model.PendingChoice{PromptID: "p1", Options: []model.ForkOption{{Key: "A", Tile: "tile1"}}}
		return nil
	})
	require.NoError(t, err)

	team, err := repo.Get("Red")
	require.NoError(t, err)
	team.Members[0] = 99
	team.Pending.Options[0].Tile = "changed"

	again, err := repo.Get("Red")
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.Members[0])
	assert.Equal(t, "tile1", again.Pending.Options[0].Tile)
}

func TestTeamRepository_ListSorted(t *testing.T) {
	repo, err := NewTeamRepository(newTestTeams())
	require.NoError(t, err)

	teams := repo.List()
	require.Len(t, teams, 2)
	assert.Equal(t, "Blue", teams[0].Name)
	assert.Equal(t, "Red", teams[1].Name)
	assert.Equal(t, 2, repo.Count())
}

// TestConcurrentMutateProperty: concurrent token spends on one team never
// drive a counter below zero and match sequential execution.
func TestConcurrentMutateProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tokens := rapid.IntRange(0, 10).Draw(t, "tokens")
		attempts := rapid.IntRange(1, 20).Draw(t, "attempts")

		repo, err := NewTeamRepository(map[string]model.Team{
			"Red": {Tile: "tile0", Rerolls: tokens},
		})
		if err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		errEmpty := errors.New("no rerolls")
		var wg sync.WaitGroup
		wg.Add(attempts)
		for i := 0; i < attempts; i++ {
			go func() {
				defer wg.Done()
				_, _ = repo.Mutate("Red", func(team *model.Team) error {
					if team.Rerolls <= 0 {
						return errEmpty
					}
					team.Rerolls--
					return nil
				})
			}()
		}
		wg.Wait()

		team, _ := repo.Get("Red")
		want := max(tokens-attempts, 0)
		if team.Rerolls != want {
			t.Fatalf("rerolls: expected %d, got %d", want, team.Rerolls)
		}
	})
}

// TestIndependentTeamsProperty: mutations of one team never touch another.
func TestIndependentTeamsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numTeams := rapid.IntRange(2, 6).Draw(t, "numTeams")
		teams := make(map[string]model.Team, numTeams)
		for i := 0; i < numTeams; i++ {
			teams[fmt.Sprintf("team%d", i)] = model.Team{Members: []int64{int64(i)}, Tile: "tile0"}
		}
		repo, err := NewTeamRepository(teams)
		if err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		target := fmt.Sprintf("team%d", rapid.IntRange(0, numTeams-1).Draw(t, "target"))
		_, err = repo.Mutate(target, func(team *model.Team) error {
			team.Tile = "tile5"
			return nil
		})
		if err != nil {
			t.Fatalf("mutate failed: %v", err)
		}

		for _, team := range repo.List() {
			if team.Name == target && team.Tile != "tile5" {
				t.Fatalf("target %s not updated", target)
			}
			if team.Name != target && team.Tile != "tile0" {
				t.Fatalf("team %s changed by mutation of %s", team.Name, target)
			}
		}
	})
}
