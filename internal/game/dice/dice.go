// Package dice provides the randomness abstraction used by the battle
// simulator: army placement shuffles and damage rolls draw from a Source
// so that a run can be replayed from a seed.
package dice

import "fmt"

// RollResult holds the full audit trail for a single damage roll.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string // original expression string, e.g. "1d6+2"
	Dice       []int  // individual die results before modifier
	Modifier   int    // flat modifier (may be negative)
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll as "1d6+2 → [4] +2 = 6".
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	return fmt.Sprintf("%s → %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}

// Source is the randomness provider for shuffles and rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Shuffle permutes n elements in place with the Fisher-Yates algorithm,
// drawing every swap index from src.
//
// Precondition: src must be non-nil; n >= 0; swap must be non-nil.
// Postcondition: exactly n-1 swaps are performed for n > 1.
func Shuffle(src Source, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, src.Intn(i+1))
	}
}
