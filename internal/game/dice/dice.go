// Package dice implements the roll generator used to advance teams.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
)

const (
	// DefaultMaxRoll is the highest face of the regular die.
	DefaultMaxRoll = 3

	// DefaultBonusChance is the probability of a bonus roll when eligible.
	DefaultBonusChance = 0.05
)

// Roller produces dice outcomes.
type Roller interface {
	// Roll returns a value in [1, max], or the bonus value when
	// bonusEligible is true and the bonus check succeeds.
	Roll(max int, bonusEligible bool) int
}

// Config holds configuration for the roll generator.
type Config struct {
	// BonusChance is the probability in [0, 1] of the bonus path.
	BonusChance float64
	// BonusValue is the value returned on the bonus path. Zero means max+1.
	BonusValue int
}

// Dice is a Roller backed by math/rand. Safe for concurrent use.
type Dice struct {
	mu          sync.Mutex
	rng         *rand.Rand
	bonusChance float64
	bonusValue  int
}

// New creates a Dice seeded from crypto/rand.
func New(cfg *Config) *Dice {
	return NewSeeded(newSeed(), cfg)
}

// NewSeeded creates a Dice with a fixed seed, for reproducible sequences.
func NewSeeded(seed int64, cfg *Config) *Dice {
	d := &Dice{
		rng:         rand.New(rand.NewSource(seed)),
		bonusChance: DefaultBonusChance,
	}
	if cfg != nil {
		if cfg.BonusChance >= 0 && cfg.BonusChance <= 1 {
			d.bonusChance = cfg.BonusChance
		}
		if cfg.BonusValue > 0 {
			d.bonusValue = cfg.BonusValue
		}
	}
	return d
}

// Roll implements Roller. The bonus check happens first; the bonus and
// uniform paths are mutually exclusive. A max below 1 is treated as 1.
func (d *Dice) Roll(max int, bonusEligible bool) int {
	if max < 1 {
		max = 1
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if bonusEligible && d.rng.Float64() < d.bonusChance {
		return d.BonusValue(max)
	}
	return d.rng.Intn(max) + 1
}

// BonusValue returns the bonus outcome for a die with the given max.
func (d *Dice) BonusValue(max int) int {
	if d.bonusValue > 0 {
		return d.bonusValue
	}
	return max + 1
}

// Fixed is a Roller that replays a sequence of values. Once the sequence is
// exhausted the last value repeats. Used by tests and dry runs.
type Fixed struct {
	mu     sync.Mutex
	values []int
	calls  int
}

// NewFixed creates a Fixed roller.
func NewFixed(values ...int) *Fixed {
	return &Fixed{values: values}
}

// Roll implements Roller.
func (f *Fixed) Roll(int, bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if len(f.values) == 0 {
		return 1
	}
	i := min(f.calls-1, len(f.values)-1)
	return f.values[i]
}

// Calls returns how many times Roll was called.
func (f *Fixed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic(err)
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
