// Package repository provides the team state store and the move journal.
package repository

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"tile-race-bot/internal/model"
	"tile-race-bot/internal/pkg/lock"
)

// Team store errors.
var (
	ErrTeamNotFound    = errors.New("team not found")
	ErrDuplicateMember = errors.New("member belongs to more than one team")
	ErrNoTeams         = errors.New("no teams configured")
)

// TeamRepository holds the live state of every team in memory.
// Mutations of one team are serialized; different teams never block each other.
type TeamRepository struct {
	mu      sync.RWMutex
	teams   map[string]*model.Team
	members map[int64]string
	locks   *lock.KeyLock
}

// NewTeamRepository creates a store from the loaded teams. Each team is keyed by
// its map key, which also becomes its Name.
func NewTeamRepository(teams map[string]model.Team) (*TeamRepository, error) {
	if len(teams) == 0 {
		return nil, ErrNoTeams
	}

	r := &TeamRepository{
		teams:   make(map[string]*model.Team, len(teams)),
		members: make(map[int64]string),
		locks:   lock.NewKeyLock(),
	}

	for name, t := range teams {
		c := t.Clone()
		c.Name = name
		r.teams[name] = &c
		for _, m := range c.Members {
			if other, ok := r.members[m]; ok && other != name {
				return nil, fmt.Errorf("%w: %d in %s and %s", ErrDuplicateMember, m, other, name)
			}
			r.members[m] = name
		}
	}
	return r, nil
}

// Get returns a copy of the named team.
func (r *TeamRepository) Get(name string) (model.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.teams[name]
	if !ok {
		return model.Team{}, fmt.Errorf("%w: %s", ErrTeamNotFound, name)
	}
	return t.Clone(), nil
}

// Mutate applies fn to a copy of the named team and stores the result.
// If fn returns an error nothing is stored and the error is returned as is.
// Calls for the same team are serialized.
func (r *TeamRepository) Mutate(name string, fn func(*model.Team) error) (model.Team, error) {
	r.locks.Lock(name)
	defer r.locks.Unlock(name)

	current, err := r.Get(name)
	if err != nil {
		return model.Team{}, err
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return current, err
	}
	next.Name = name

	r.mu.Lock()
	r.teams[name] = &next
	r.mu.Unlock()

	return next.Clone(), nil
}

// FindByMember returns the name of the team userID belongs to.
func (r *TeamRepository) FindByMember(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.members[userID]
	return name, ok
}

// List returns copies of all teams ordered by name.
func (r *TeamRepository) List() []model.Team {
	r.mu.RLock()
	out := make([]model.Team, 0, len(r.teams))
	for _, t := range r.teams {
		out = append(out, t.Clone())
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.Team) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Count returns the number of teams.
func (r *TeamRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.teams)
}
