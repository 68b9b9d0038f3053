package domain

// Phase represents the lifecycle stage of an E-card match.
type Phase string

const (
	// PhaseSets is the regular flow of scored rounds grouped into sets.
	PhaseSets Phase = "sets"
	// PhaseTiebreak is the sudden-death decider entered only from a
	// tied completion of all sets.
	PhaseTiebreak Phase = "tiebreak"
	// PhaseDone is terminal; the match winner and summary are set.
	PhaseDone Phase = "done"
)

// RoundRef locates a history entry: 1-based set and round-in-set.
type RoundRef struct {
	Set   int `json:"set"`
	InSet int `json:"inSet"`
}

// PlayRecord is one player's revealed card in a resolved exchange.
type PlayRecord struct {
	UserID string `json:"id"`
	Card   Card   `json:"card"`
}

// HistoryEntry records one resolved exchange. Entries are append-only
// and never mutated. WinnerID is empty on a draw.
type HistoryEntry struct {
	Round    RoundRef   `json:"round"`
	A        PlayRecord `json:"a"`
	B        PlayRecord `json:"b"`
	WinnerID string     `json:"winnerId"`
	Flavor   string     `json:"flavor"`
}

// Match holds the authoritative state of one in-progress match. It is
// exclusively owned by its Room and replaced wholesale on rematch,
// never partially reset.
type Match struct {
	Phase      Phase
	SetIndex   int // 0-based
	RoundInSet int // 1-based

	RoundsPerSet int
	TotalSets    int

	Hands map[string][]Card
	Picks map[string]Card // pending secret picks; absent key = not picked
	// RoundWins counts decisive rounds per player; draws never count.
	RoundWins map[string]int
	History   []HistoryEntry

	WinnerID string
	Summary  string

	// Resolving guards against re-entrant resolution of the same room
	// while a resolution pass is still executing.
	Resolving bool
}

// NewMatch creates a fresh match in the sets phase for the given player
// ids, with empty picks, zero win counters, and no history. Hands are
// dealt separately once sides are assigned.
func NewMatch(roundsPerSet, totalSets int, playerIDs ...string) *Match {
	m := &Match{
		Phase:        PhaseSets,
		SetIndex:     0,
		RoundInSet:   1,
		RoundsPerSet: roundsPerSet,
		TotalSets:    totalSets,
		Hands:        make(map[string][]Card, len(playerIDs)),
		Picks:        make(map[string]Card, len(playerIDs)),
		RoundWins:    make(map[string]int, len(playerIDs)),
	}
	for _, id := range playerIDs {
		m.RoundWins[id] = 0
	}
	return m
}
