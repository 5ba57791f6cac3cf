package board

import (
	"fmt"

	"tile-race-bot/internal/model"
)

// MaxChoices is the number of fork options a team can pick from.
const MaxChoices = 6

// ChoiceKeys are the option keys offered at a fork, in order.
var ChoiceKeys = [MaxChoices]string{"A", "B", "C", "D", "E", "F"}

// ChoiceSymbols are the symbols shown next to each option key.
var ChoiceSymbols = [MaxChoices]string{"🇦", "🇧", "🇨", "🇩", "🇪", "🇫"}

// OutcomeKind classifies the result of resolving a roll.
type OutcomeKind int

const (
	NoMove        OutcomeKind = iota // No simple path of the rolled length
	Deterministic                    // Exactly one destination
	Fork                             // Two or more destinations, team must choose
)

func (k OutcomeKind) String() string {
	switch k {
	case NoMove:
		return "no_move"
	case Deterministic:
		return "deterministic"
	case Fork:
		return "fork"
	default:
		return "unknown"
	}
}

// Outcome is the result of Resolve.
type Outcome struct {
	Kind OutcomeKind
	// Roll is the distance actually resolved. It differs from the rolled
	// value only when a must-hit tile shortened the move.
	Roll        int
	MustHit     bool
	Destination string
	Route       []string
	Options     []model.ForkOption
	Dropped     []string // destinations beyond MaxChoices
}

// Resolve computes where a team on from can go with roll.
//
// All simple paths of exactly roll edges are enumerated and grouped by their
// terminal tile; the first path found for a tile is its canonical route. Zero
// destinations is NoMove, one is Deterministic, more is Fork. A zero or
// negative roll never moves.
//
// On a single-chain board a must-hit tile before the rolled distance stops
// the move on that tile. Branching boards ignore the must-hit flag.
func Resolve(b *Board, from string, roll int) (Outcome, error) {
	if !b.Has(from) {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownTile, from)
	}

	out := Outcome{Kind: NoMove, Roll: roll}
	if roll <= 0 {
		return out, nil
	}

	if steps, ok := b.mustHitStop(from, roll); ok {
		out.Roll = steps
		out.MustHit = true
	}

	var dests []string
	routes := make(map[string][]string)
	b.walkPaths(from, out.Roll, func(p []string) bool {
		dest := p[len(p)-1]
		if _, seen := routes[dest]; !seen {
			routes[dest] = append([]string(nil), p...)
			dests = append(dests, dest)
		}
		return true
	})

	switch len(dests) {
	case 0:
		return out, nil
	case 1:
		out.Kind = Deterministic
		out.Destination = dests[0]
		out.Route = routes[dests[0]]
	default:
		out.Kind = Fork
		for i, dest := range dests {
			if i >= MaxChoices {
				out.Dropped = append(out.Dropped, dest)
				continue
			}
			out.Options = append(out.Options, model.ForkOption{
				Key:    ChoiceKeys[i],
				Symbol: ChoiceSymbols[i],
				Tile:   dest,
			})
		}
	}
	return out, nil
}

// mustHitStop returns the distance to the first must-hit tile strictly
// before roll along a chain board.
func (b *Board) mustHitStop(from string, roll int) (int, bool) {
	for i, id := range b.Walk(from, roll) {
		step := i + 1
		if step >= roll {
			break
		}
		if b.tiles[id].MustHit {
			return step, true
		}
	}
	return 0, false
}

// SymbolFor returns the display symbol for an option key.
func SymbolFor(key string) string {
	for i, k := range ChoiceKeys {
		if k == key {
			return ChoiceSymbols[i]
		}
	}
	return key
}
