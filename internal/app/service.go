package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"ecard/internal/domain"
)

// Service contains E-card use-cases operating on domain state. All
// mutations run as a reaction to one inbound event at a time; the only
// re-entrancy hazard is resolution, guarded per match.
type Service struct {
	rng          *rand.Rand
	roundsPerSet int
	totalSets    int
}

// NewService constructs a Service with the provided rng or a
// time-seeded default. Non-positive round/set values fall back to the
// standard 3x4 match shape.
func NewService(rng *rand.Rand, roundsPerSet, totalSets int) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if roundsPerSet <= 0 {
		roundsPerSet = DefaultRoundsPerSet
	}
	if totalSets <= 0 {
		totalSets = DefaultTotalSets
	}
	return &Service{rng: rng, roundsPerSet: roundsPerSet, totalSets: totalSets}
}

var (
	ErrNotAPlayer         = errors.New("actor is not a seated player")
	ErrWrongPlayerCount   = errors.New("room does not have exactly two players")
	ErrSpectatorForbidden = errors.New("spectators cannot play")
	ErrCardNotInHand      = errors.New("card not in hand")
)

// StartMatch replaces any prior match state outright: random sides,
// set 0, round 1, fresh hands, empty picks and history.
func (s *Service) StartMatch(room *domain.Room, actorID string) ([]Event, error) {
	if !room.IsPlayer(actorID) {
		return nil, ErrNotAPlayer
	}
	if len(room.Players) != PlayersPerMatch {
		return nil, ErrWrongPlayerCount
	}
	s.beginMatch(room)
	return s.pushEvents(room), nil
}

// Rematch has the same effect as StartMatch but is silently ignored
// when its preconditions are unmet.
func (s *Service) Rematch(room *domain.Room, actorID string) ([]Event, error) {
	if len(room.Players) != PlayersPerMatch || !room.IsPlayer(actorID) {
		return nil, nil
	}
	s.beginMatch(room)
	return s.pushEvents(room), nil
}

func (s *Service) beginMatch(room *domain.Room) {
	ids := make([]string, 0, len(room.Players))
	for _, p := range room.Players {
		ids = append(ids, p.UserID)
	}
	room.Match = domain.NewMatch(s.roundsPerSet, s.totalSets, ids...)
	room.AssignSides(s.rng.Intn(2) == 0)
	room.Redeal()
}

// SubmitPick records a player's secret pick. The first pick of a round
// yields a locked notice for the opponent plus a tailored push for the
// submitter; the second pick triggers resolution. All failures are
// rejected before any mutation.
func (s *Service) SubmitPick(room *domain.Room, actorID string, card domain.Card) ([]Event, error) {
	m := room.Match
	if m == nil || m.Phase == domain.PhaseDone {
		return nil, nil
	}
	if !room.IsPlayer(actorID) {
		return nil, ErrSpectatorForbidden
	}
	if !domain.HandContains(m.Hands[actorID], card) {
		return nil, ErrCardNotInHand
	}
	m.Picks[actorID] = card

	opp := room.Opponent(actorID)
	if opp == nil {
		// Seat vacated mid-match; the pick waits, the match stalls.
		return nil, nil
	}
	if _, ok := m.Picks[opp.UserID]; !ok {
		return []Event{
			{
				Kind:       EventStatePushed,
				Payload:    StatePushedPayload{State: BuildTailoredState(room, actorID)},
				Recipients: []string{actorID},
			},
			{
				Kind:       EventOpponentLocked,
				Payload:    OpponentLockedPayload{Locked: true},
				Recipients: []string{opp.UserID},
			},
		}, nil
	}

	// Both picks are in. At most one resolution may execute per room at
	// a time; a re-entrant attempt is a no-op.
	if m.Resolving {
		return nil, nil
	}
	m.Resolving = true
	defer func() { m.Resolving = false }()

	return s.resolve(room, actorID, opp.UserID), nil
}

func (s *Service) resolve(room *domain.Room, aID, bID string) []Event {
	m := room.Match
	aPick, bPick := m.Picks[aID], m.Picks[bID]

	outcome, ok := domain.ResolveClash(aPick, bPick)
	if !ok {
		// Unreachable with legal hands; drop the picks and move on.
		delete(m.Picks, aID)
		delete(m.Picks, bID)
		return s.pushEvents(room)
	}

	base := domain.ClashLine(aPick, bPick)
	m.Hands[aID], _ = domain.RemoveCard(m.Hands[aID], aPick)
	m.Hands[bID], _ = domain.RemoveCard(m.Hands[bID], bPick)
	ref := domain.RoundRef{Set: m.SetIndex + 1, InSet: m.RoundInSet}

	if outcome.Draw {
		m.History = append(m.History, domain.HistoryEntry{
			Round:  ref,
			A:      domain.PlayRecord{UserID: aID, Card: aPick},
			B:      domain.PlayRecord{UserID: bID, Card: bPick},
			Flavor: base + " draw.",
		})
		delete(m.Picks, aID)
		delete(m.Picks, bID)

		if len(m.Hands[aID]) > 0 && len(m.Hands[bID]) > 0 {
			// Cards remain: the round stays open for another exchange
			// at the same coordinates.
			return s.pushEvents(room)
		}
		if m.Phase == domain.PhaseTiebreak {
			// Sudden death keeps repeating on an exhausted draw.
			m.RoundInSet = 1
			room.Redeal()
			return s.pushEvents(room)
		}
		return s.advance(room)
	}

	winner := room.PlayerBySide(outcome.Winner)
	if winner == nil {
		delete(m.Picks, aID)
		delete(m.Picks, bID)
		return s.pushEvents(room)
	}
	winName := room.PlayerName(winner.UserID)
	m.History = append(m.History, domain.HistoryEntry{
		Round:    ref,
		A:        domain.PlayRecord{UserID: aID, Card: aPick},
		B:        domain.PlayRecord{UserID: bID, Card: bPick},
		WinnerID: winner.UserID,
		Flavor:   base + " " + winName + " wins.",
	})
	m.RoundWins[winner.UserID]++
	delete(m.Picks, aID)
	delete(m.Picks, bID)

	if m.Phase == domain.PhaseTiebreak {
		// A decisive sudden-death round ends the match immediately,
		// regardless of hand state.
		m.WinnerID = winner.UserID
		m.Summary = fmt.Sprintf("Sudden Death — %s %s wins.", base, winName)
		m.Phase = domain.PhaseDone
		return s.pushEvents(room)
	}
	return s.advance(room)
}

// advance moves the sets-phase progression forward after a resolved
// round: next round in the set, next set with a side flip, or the end
// of all sets, where unequal win counts decide the match and equal
// counts enter sudden death.
func (s *Service) advance(room *domain.Room) []Event {
	m := room.Match

	if m.RoundInSet < m.RoundsPerSet {
		m.RoundInSet++
		room.Redeal()
		return s.pushEvents(room)
	}
	if m.SetIndex < m.TotalSets-1 {
		m.SetIndex++
		m.RoundInSet = 1
		room.FlipSides()
		return s.pushEvents(room)
	}

	p1, p2 := room.Players[0], room.Players[1]
	w1, w2 := m.RoundWins[p1.UserID], m.RoundWins[p2.UserID]
	if w1 != w2 {
		winnerID := p1.UserID
		if w2 > w1 {
			winnerID = p2.UserID
		}
		m.WinnerID = winnerID
		m.Summary = fmt.Sprintf("Match Over — %s wins %d-%d.", room.PlayerName(winnerID), w1, w2)
		m.Phase = domain.PhaseDone
		return s.pushEvents(room)
	}

	// Tied after all sets: sudden death with freshly randomized sides.
	room.AssignSides(s.rng.Intn(2) == 0)
	m.Phase = domain.PhaseTiebreak
	m.RoundInSet = 1
	room.Redeal()
	return s.pushEvents(room)
}

// pushEvents builds the standard outbound batch: one tailored state per
// seated player plus the room-wide snapshot broadcast.
func (s *Service) pushEvents(room *domain.Room) []Event {
	events := make([]Event, 0, len(room.Players)+1)
	for _, p := range room.Players {
		events = append(events, Event{
			Kind:       EventStatePushed,
			Payload:    StatePushedPayload{State: BuildTailoredState(room, p.UserID)},
			Recipients: []string{p.UserID},
		})
	}
	events = append(events, Event{
		Kind:    EventRoomUpdated,
		Payload: RoomUpdatedPayload{Snapshot: BuildRoomSnapshot(room)},
	})
	return events
}
