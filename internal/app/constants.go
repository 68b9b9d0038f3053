package app

// PlayersPerMatch is the exact number of seated players a match needs.
// Keep this centralized so tests and handlers share the rule.
const PlayersPerMatch = 2

// DefaultRoundsPerSet and DefaultTotalSets describe the standard match
// shape: four sets of three scored rounds with a side flip between sets.
const (
	DefaultRoundsPerSet = 3
	DefaultTotalSets    = 4
)
