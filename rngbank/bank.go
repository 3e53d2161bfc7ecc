// Package rngbank implements the RNG multiplexer described in spec.md §4.4:
// a fixed bank of independent pseudo-random streams identified by integer
// slot, with a cooperative reservation protocol so that stochastic
// consumers (a system's process/measurement noise, the filter's resampler,
// auxiliary Bernoulli draws) never contaminate one another's stream.
//
// Each slot owns its own *rand.Rand seeded off the bank's two-integer seed
// set, generalizing the per-call rand.New(rand.NewSource(...)) construction
// in noise/gaussian.go into a persistent, independently-advancing source
// per slot.
package rngbank

import (
	"fmt"

	"github.com/milosgajdos/go-smcfilter/pferrors"
	"golang.org/x/exp/rand"
)

// MinSlots is the minimum bank size spec.md §4.4 assumes a caller can rely
// on being available.
const MinSlots = 16

// Bank is a fixed-size collection of independent RNG streams.
type Bank struct {
	seed1, seed2 uint64
	sources      []*rand.Rand
	occupied     []bool
	current      int
}

// NewBank creates a Bank with the given number of slots (at least
// MinSlots), each deterministically seeded from seed1 and seed2 combined
// with the slot index so that slots are independent of one another but
// reproducible under a fixed seed pair.
func NewBank(slots int, seed1, seed2 uint64) (*Bank, error) {
	if slots < MinSlots {
		return nil, fmt.Errorf("bank must have at least %d slots, got %d: %w", MinSlots, slots, pferrors.ErrParameterOutOfDomain)
	}

	b := &Bank{
		seed1:    seed1,
		seed2:    seed2,
		sources:  make([]*rand.Rand, slots),
		occupied: make([]bool, slots),
		current:  -1,
	}
	for i := range b.sources {
		b.sources[i] = rand.New(rand.NewSource(seedForSlot(seed1, seed2, i)))
	}
	return b, nil
}

// seedForSlot derives a per-slot seed from the bank's two-integer seed set
// and the slot index, using a simple splitmix-style mix so distinct slots
// never share a stream even under adjacent indices.
func seedForSlot(seed1, seed2 uint64, slot int) uint64 {
	s := seed1*6364136223846793005 + seed2 + uint64(slot)*0x9E3779B97F4A7C15
	s ^= s >> 30
	s *= 0xBF58476D1CE4E5B9
	s ^= s >> 27
	s *= 0x94D049BB133111EB
	s ^= s >> 31
	return s
}

// Slots returns the number of slots in the bank.
func (b *Bank) Slots() int { return len(b.sources) }

func (b *Bank) inRange(n int) bool { return n >= 0 && n < len(b.sources) }

// SetCurrentGenerator selects slot n as the active generator. It returns
// false if n is out of range.
func (b *Bank) SetCurrentGenerator(n int) bool {
	if !b.inRange(n) {
		return false
	}
	b.current = n
	return true
}

// CurrentGenerator returns the currently active slot, or -1 if none has
// been selected yet.
func (b *Bank) CurrentGenerator() int { return b.current }

// IsSlotFree reports whether slot n is unoccupied. It returns false for an
// out-of-range slot.
func (b *Bank) IsSlotFree(n int) bool {
	if !b.inRange(n) {
		return false
	}
	return !b.occupied[n]
}

// OccupySlot reserves slot n for a caller. It returns ErrSlotUnavailable if
// n is out of range and ErrSlotBusy if the slot is already occupied.
func (b *Bank) OccupySlot(n int) error {
	if !b.inRange(n) {
		return fmt.Errorf("slot %d out of range [0, %d): %w", n, len(b.sources), pferrors.ErrSlotUnavailable)
	}
	if b.occupied[n] {
		return fmt.Errorf("slot %d already occupied: %w", n, pferrors.ErrSlotBusy)
	}
	b.occupied[n] = true
	return nil
}

// FreeSlot releases a previously occupied slot. It returns
// ErrSlotUnavailable if n is out of range.
func (b *Bank) FreeSlot(n int) error {
	if !b.inRange(n) {
		return fmt.Errorf("slot %d out of range [0, %d): %w", n, len(b.sources), pferrors.ErrSlotUnavailable)
	}
	b.occupied[n] = false
	return nil
}

// SuggestEmptySlot returns the index of the first free slot, or -1 if all
// slots are occupied.
func (b *Bank) SuggestEmptySlot() int {
	for i, occ := range b.occupied {
		if !occ {
			return i
		}
	}
	return -1
}

// SeedForSlot derives the same per-slot seed NewBank mixes internally,
// combined with an extra salt. A caller that needs a reproducible-yet-
// distinct stream tied to the bank's own seed pair (e.g. common random
// numbers across a matched pair of evaluations) reseeds a slot with this
// value rather than minting an unrelated seed of its own.
func (b *Bank) SeedForSlot(slot int, salt uint64) uint64 {
	return seedForSlot(b.seed1, b.seed2+salt, slot)
}

// Reseed replaces slot's generator with a fresh one seeded from seed,
// discarding its current stream position. It returns ErrSlotUnavailable if
// slot is out of range.
func (b *Bank) Reseed(slot int, seed uint64) error {
	if !b.inRange(slot) {
		return fmt.Errorf("slot %d out of range [0, %d): %w", slot, len(b.sources), pferrors.ErrSlotUnavailable)
	}
	b.sources[slot] = rand.New(rand.NewSource(seed))
	return nil
}

// Source returns the slot's *rand.Rand directly. Switching the active
// "current" generator elsewhere in the bank never disturbs this source's
// internal state: each slot carries its own independent stream.
func (b *Bank) Source(slot int) (*rand.Rand, error) {
	if !b.inRange(slot) {
		return nil, fmt.Errorf("slot %d out of range [0, %d): %w", slot, len(b.sources), pferrors.ErrSlotUnavailable)
	}
	return b.sources[slot], nil
}

// Float64 draws a uniform float64 in [0, 1) from the given slot.
func (b *Bank) Float64(slot int) (float64, error) {
	src, err := b.Source(slot)
	if err != nil {
		return 0, err
	}
	return src.Float64(), nil
}

// NormFloat64 draws a standard-normal float64 from the given slot.
func (b *Bank) NormFloat64(slot int) (float64, error) {
	src, err := b.Source(slot)
	if err != nil {
		return 0, err
	}
	return src.NormFloat64(), nil
}
