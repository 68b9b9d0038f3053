package app

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"ecard/internal/domain"
)

func newTestService(seed int64) *Service {
	return NewService(rand.New(rand.NewSource(seed)), 0, 0)
}

// startedRoom returns a two-player room with a running match and
// deterministic sides: u1 holds the emperor, u2 the slave.
func startedRoom(t *testing.T, svc *Service) *domain.Room {
	t.Helper()
	room := domain.NewRoom("AB12")
	room.Seat("u1", "alice")
	room.Seat("u2", "bob")
	if _, err := svc.StartMatch(room, "u1"); err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	room.AssignSides(true)
	room.Redeal()
	return room
}

// playRound submits both picks and returns the resolution events.
func playRound(t *testing.T, svc *Service, room *domain.Room, c1, c2 domain.Card) []Event {
	t.Helper()
	if _, err := svc.SubmitPick(room, "u1", c1); err != nil {
		t.Fatalf("SubmitPick(u1, %s): %v", c1, err)
	}
	events, err := svc.SubmitPick(room, "u2", c2)
	if err != nil {
		t.Fatalf("SubmitPick(u2, %s): %v", c2, err)
	}
	return events
}

func lastHistory(t *testing.T, room *domain.Room) domain.HistoryEntry {
	t.Helper()
	h := room.Match.History
	if len(h) == 0 {
		t.Fatal("history is empty")
	}
	return h[len(h)-1]
}

func TestStartMatchValidation(t *testing.T) {
	svc := newTestService(1)

	room := domain.NewRoom("AB12")
	room.Seat("u1", "alice")
	if _, err := svc.StartMatch(room, "u1"); !errors.Is(err, ErrWrongPlayerCount) {
		t.Fatalf("err = %v, want ErrWrongPlayerCount", err)
	}

	room.Seat("u2", "bob")
	room.Seat("u3", "carol")
	if _, err := svc.StartMatch(room, "u3"); !errors.Is(err, ErrNotAPlayer) {
		t.Fatalf("err = %v, want ErrNotAPlayer", err)
	}

	events, err := svc.StartMatch(room, "u2")
	if err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	m := room.Match
	if m == nil || m.Phase != domain.PhaseSets || m.SetIndex != 0 || m.RoundInSet != 1 {
		t.Fatalf("match after start = %+v", m)
	}
	if len(m.Hands["u1"]) != domain.HandSize || len(m.Hands["u2"]) != domain.HandSize {
		t.Fatal("both players should hold full hands")
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 2 pushes and 1 broadcast", len(events))
	}
	if events[len(events)-1].Kind != EventRoomUpdated {
		t.Fatalf("last event = %s, want %s", events[len(events)-1].Kind, EventRoomUpdated)
	}
}

func TestSubmitPickValidation(t *testing.T) {
	svc := newTestService(1)
	room := startedRoom(t, svc)
	room.Seat("u3", "carol")

	if _, err := svc.SubmitPick(room, "u3", domain.CardCitizen); !errors.Is(err, ErrSpectatorForbidden) {
		t.Fatalf("spectator pick err = %v, want ErrSpectatorForbidden", err)
	}
	if _, err := svc.SubmitPick(room, "u1", domain.CardSlave); !errors.Is(err, ErrCardNotInHand) {
		t.Fatalf("off-side pick err = %v, want ErrCardNotInHand", err)
	}

	room.Match.Phase = domain.PhaseDone
	events, err := svc.SubmitPick(room, "u1", domain.CardCitizen)
	if err != nil || events != nil {
		t.Fatalf("pick after done = (%v, %v), want silent no-op", events, err)
	}
}

func TestFirstPickLocksOpponent(t *testing.T) {
	svc := newTestService(1)
	room := startedRoom(t, svc)

	events, err := svc.SubmitPick(room, "u1", domain.CardEmperor)
	if err != nil {
		t.Fatalf("SubmitPick: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Kind != EventStatePushed || len(events[0].Recipients) != 1 || events[0].Recipients[0] != "u1" {
		t.Fatalf("first event = %+v, want tailored push to u1", events[0])
	}
	if events[1].Kind != EventOpponentLocked || len(events[1].Recipients) != 1 || events[1].Recipients[0] != "u2" {
		t.Fatalf("second event = %+v, want locked notice to u2", events[1])
	}
	if payload := events[1].Payload.(OpponentLockedPayload); !payload.Locked {
		t.Fatal("locked payload should be true")
	}
	if len(room.Match.History) != 0 {
		t.Fatal("single pick must not resolve a round")
	}
}

func TestSlaveBeatsEmperor(t *testing.T) {
	svc := newTestService(1)
	room := startedRoom(t, svc)

	playRound(t, svc, room, domain.CardEmperor, domain.CardSlave)

	entry := lastHistory(t, room)
	if entry.WinnerID != "u2" {
		t.Fatalf("winner = %q, want u2", entry.WinnerID)
	}
	want := "the emperor is brutalized by the slave. bob wins."
	if entry.Flavor != want {
		t.Fatalf("flavor = %q, want %q", entry.Flavor, want)
	}
	if room.Match.RoundWins["u2"] != 1 || room.Match.RoundWins["u1"] != 0 {
		t.Fatalf("round wins = %v", room.Match.RoundWins)
	}
	if room.Match.RoundInSet != 2 {
		t.Fatalf("roundInSet = %d, want 2", room.Match.RoundInSet)
	}
	if len(room.Match.Hands["u1"]) != domain.HandSize {
		t.Fatal("a scored round should redeal full hands")
	}
}

func TestCitizenDrawKeepsRoundOpen(t *testing.T) {
	svc := newTestService(1)
	room := startedRoom(t, svc)

	playRound(t, svc, room, domain.CardCitizen, domain.CardCitizen)

	m := room.Match
	entry := lastHistory(t, room)
	if entry.WinnerID != "" {
		t.Fatalf("draw should have no winner, got %q", entry.WinnerID)
	}
	if entry.Flavor != "two citizens glare, nothing happens. draw." {
		t.Fatalf("flavor = %q", entry.Flavor)
	}
	if m.SetIndex != 0 || m.RoundInSet != 1 {
		t.Fatalf("coordinates moved on open draw: set %d round %d", m.SetIndex, m.RoundInSet)
	}
	if len(m.Hands["u1"]) != domain.HandSize-1 || len(m.Hands["u2"]) != domain.HandSize-1 {
		t.Fatal("each hand should shrink by one on a draw")
	}
	if len(m.Picks) != 0 {
		t.Fatalf("picks should be cleared, got %v", m.Picks)
	}
}

func TestExhaustedDrawAdvancesRound(t *testing.T) {
	svc := newTestService(1)
	room := startedRoom(t, svc)
	m := room.Match
	m.Hands["u1"] = []domain.Card{domain.CardCitizen}
	m.Hands["u2"] = []domain.Card{domain.CardCitizen}

	playRound(t, svc, room, domain.CardCitizen, domain.CardCitizen)

	if m.RoundInSet != 2 {
		t.Fatalf("roundInSet = %d, want 2", m.RoundInSet)
	}
	if m.SetIndex != 0 {
		t.Fatalf("setIndex = %d, want 0", m.SetIndex)
	}
	if len(m.Hands["u1"]) != domain.HandSize || len(m.Hands["u2"]) != domain.HandSize {
		t.Fatal("exhausted draw should redeal full hands")
	}
}

func TestSetProgressionFlipsSides(t *testing.T) {
	svc := newTestService(1)
	room := startedRoom(t, svc)

	// Three scored rounds close the first set. Sides start fixed as
	// u1 emperor, u2 slave, and must flip at the set boundary.
	playRound(t, svc, room, domain.CardEmperor, domain.CardCitizen)
	playRound(t, svc, room, domain.CardEmperor, domain.CardCitizen)
	playRound(t, svc, room, domain.CardEmperor, domain.CardCitizen)

	m := room.Match
	if m.SetIndex != 1 || m.RoundInSet != 1 {
		t.Fatalf("coordinates = set %d round %d, want set 1 round 1", m.SetIndex, m.RoundInSet)
	}
	if room.Players[0].Side != domain.SideSlave || room.Players[1].Side != domain.SideEmperor {
		t.Fatalf("sides after set = %s/%s, want flipped", room.Players[0].Side, room.Players[1].Side)
	}
	if !domain.HandContains(m.Hands["u1"], domain.CardSlave) {
		t.Fatal("u1 should hold the slave in set two")
	}
	if entry := lastHistory(t, room); entry.Round.Set != 1 || entry.Round.InSet != 3 {
		t.Fatalf("last entry coordinates = %+v", entry.Round)
	}
}

func TestDecisiveMatchSummary(t *testing.T) {
	svc := newTestService(1)
	room := startedRoom(t, svc)
	m := room.Match

	// u1 wins every scored round: the emperor tramples u2's citizen in
	// emperor sets, the citizen squashes u2's slave in slave sets.
	for set := 0; set < m.TotalSets; set++ {
		for round := 0; round < m.RoundsPerSet; round++ {
			if room.PlayerBySide(domain.SideEmperor).UserID == "u1" {
				playRound(t, svc, room, domain.CardEmperor, domain.CardCitizen)
			} else {
				playRound(t, svc, room, domain.CardCitizen, domain.CardSlave)
			}
		}
	}

	if m.Phase != domain.PhaseDone {
		t.Fatalf("phase = %s, want done", m.Phase)
	}
	if m.WinnerID != "u1" {
		t.Fatalf("winner = %q, want u1", m.WinnerID)
	}
	if want := "Match Over — alice wins 12-0."; m.Summary != want {
		t.Fatalf("summary = %q, want %q", m.Summary, want)
	}

	decisive := 0
	for _, entry := range m.History {
		if entry.WinnerID != "" {
			decisive++
		}
	}
	if total := m.RoundWins["u1"] + m.RoundWins["u2"]; total != decisive {
		t.Fatalf("round wins %d != decisive entries %d", total, decisive)
	}
}

func TestTieEntersSuddenDeath(t *testing.T) {
	svc := newTestService(1)
	room := startedRoom(t, svc)
	m := room.Match

	// Alternate winners round by round across the whole match so the
	// twelve scored rounds end 6-6.
	for r := 0; r < m.TotalSets*m.RoundsPerSet; r++ {
		u1Wins := r%2 == 0
		u1HasEmperor := room.PlayerBySide(domain.SideEmperor).UserID == "u1"
		switch {
		case u1Wins && u1HasEmperor:
			playRound(t, svc, room, domain.CardEmperor, domain.CardCitizen)
		case u1Wins && !u1HasEmperor:
			playRound(t, svc, room, domain.CardSlave, domain.CardEmperor)
		case !u1Wins && u1HasEmperor:
			playRound(t, svc, room, domain.CardEmperor, domain.CardSlave)
		default:
			playRound(t, svc, room, domain.CardCitizen, domain.CardEmperor)
		}
	}

	if m.RoundWins["u1"] != m.RoundWins["u2"] {
		t.Fatalf("round wins = %v, want a tie", m.RoundWins)
	}
	if m.Phase != domain.PhaseTiebreak {
		t.Fatalf("phase = %s, want tiebreak", m.Phase)
	}
	if m.WinnerID != "" || m.Summary != "" {
		t.Fatal("a tied match must never end without sudden death")
	}
	if m.RoundInSet != 1 {
		t.Fatalf("tiebreak roundInSet = %d, want 1", m.RoundInSet)
	}
	if len(m.Hands["u1"]) != domain.HandSize {
		t.Fatal("sudden death should deal fresh hands")
	}
}

func suddenDeathRoom(t *testing.T, svc *Service) *domain.Room {
	t.Helper()
	room := startedRoom(t, svc)
	room.Match.Phase = domain.PhaseTiebreak
	room.Match.RoundInSet = 1
	room.Redeal()
	return room
}

func TestSuddenDeathDecisiveEndsMatch(t *testing.T) {
	svc := newTestService(1)
	room := suddenDeathRoom(t, svc)

	playRound(t, svc, room, domain.CardEmperor, domain.CardSlave)

	m := room.Match
	if m.Phase != domain.PhaseDone {
		t.Fatalf("phase = %s, want done", m.Phase)
	}
	if m.WinnerID != "u2" {
		t.Fatalf("winner = %q, want u2", m.WinnerID)
	}
	want := "Sudden Death — the emperor is brutalized by the slave. bob wins."
	if m.Summary != want {
		t.Fatalf("summary = %q, want %q", m.Summary, want)
	}
}

func TestSuddenDeathExhaustedDrawRedeals(t *testing.T) {
	svc := newTestService(1)
	room := suddenDeathRoom(t, svc)
	m := room.Match
	m.Hands["u1"] = []domain.Card{domain.CardCitizen}
	m.Hands["u2"] = []domain.Card{domain.CardCitizen}

	playRound(t, svc, room, domain.CardCitizen, domain.CardCitizen)

	if m.Phase != domain.PhaseTiebreak {
		t.Fatalf("phase = %s, want tiebreak to continue", m.Phase)
	}
	if m.RoundInSet != 1 {
		t.Fatalf("roundInSet = %d, want 1", m.RoundInSet)
	}
	if len(m.Hands["u1"]) != domain.HandSize || len(m.Hands["u2"]) != domain.HandSize {
		t.Fatal("exhausted sudden-death draw should redeal full hands")
	}
	if !strings.HasSuffix(lastHistory(t, room).Flavor, " draw.") {
		t.Fatalf("flavor = %q", lastHistory(t, room).Flavor)
	}
}

func TestResolvingGuardIsNoOp(t *testing.T) {
	svc := newTestService(1)
	room := startedRoom(t, svc)
	m := room.Match
	m.Picks["u2"] = domain.CardCitizen
	m.Resolving = true

	events, err := svc.SubmitPick(room, "u1", domain.CardCitizen)
	if err != nil || events != nil {
		t.Fatalf("guarded pick = (%v, %v), want silent no-op", events, err)
	}
	if len(m.History) != 0 {
		t.Fatal("guarded pick must not resolve")
	}
}

func TestRematchRules(t *testing.T) {
	svc := newTestService(1)

	room := domain.NewRoom("AB12")
	room.Seat("u1", "alice")
	if events, err := svc.Rematch(room, "u1"); err != nil || events != nil {
		t.Fatalf("solo rematch = (%v, %v), want silent no-op", events, err)
	}

	room.Seat("u2", "bob")
	room.Seat("u3", "carol")
	if events, err := svc.Rematch(room, "u3"); err != nil || events != nil {
		t.Fatalf("spectator rematch = (%v, %v), want silent no-op", events, err)
	}

	events, err := svc.Rematch(room, "u1")
	if err != nil {
		t.Fatalf("Rematch: %v", err)
	}
	if room.Match == nil || room.Match.Phase != domain.PhaseSets {
		t.Fatalf("match after rematch = %+v", room.Match)
	}
	if len(events) == 0 || events[len(events)-1].Kind != EventRoomUpdated {
		t.Fatal("rematch should broadcast the room")
	}
}

func TestRandomizedMatchesAlwaysTerminateLegally(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		svc := newTestService(seed)
		rng := rand.New(rand.NewSource(seed + 100))
		room := startedRoom(t, svc)
		m := room.Match

		for steps := 0; m.Phase != domain.PhaseDone && steps < 500; steps++ {
			for _, id := range []string{"u1", "u2"} {
				hand := m.Hands[id]
				if _, err := svc.SubmitPick(room, id, hand[rng.Intn(len(hand))]); err != nil {
					t.Fatalf("seed %d: SubmitPick(%s): %v", seed, id, err)
				}
				if m.Phase == domain.PhaseDone {
					break
				}
			}
		}

		if m.Phase != domain.PhaseDone {
			t.Fatalf("seed %d: match did not finish", seed)
		}
		if m.WinnerID != "u1" && m.WinnerID != "u2" {
			t.Fatalf("seed %d: winner = %q", seed, m.WinnerID)
		}
		if m.Summary == "" {
			t.Fatalf("seed %d: empty summary", seed)
		}
	}
}
