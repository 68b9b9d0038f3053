package domain

// Card is one of the three E-card kinds. A card is a value, not a
// unique object: hands hold multiplicities.
type Card string

const (
	CardEmperor Card = "EMPEROR"
	CardSlave   Card = "SLAVE"
	CardCitizen Card = "CITIZEN"
)

// Side represents one of the two mutually exclusive match roles. Each
// side owns exactly one unique special card.
type Side string

const (
	SideEmperor Side = "EMPEROR_SIDE"
	SideSlave   Side = "SLAVE_SIDE"
)

// HandSize is the number of cards dealt to each player: the side's
// special card plus four citizens.
const HandSize = 5

// Opposite returns the complementary side.
func (s Side) Opposite() Side {
	if s == SideEmperor {
		return SideSlave
	}
	return SideEmperor
}

// SpecialCard returns the side's unique special card.
func (s Side) SpecialCard() Card {
	if s == SideEmperor {
		return CardEmperor
	}
	return CardSlave
}

// DealHand returns a fresh hand for the side. Deterministic given the
// side; a hand never contains the opposing special card.
func DealHand(side Side) []Card {
	hand := make([]Card, 0, HandSize)
	hand = append(hand, side.SpecialCard())
	for i := 1; i < HandSize; i++ {
		hand = append(hand, CardCitizen)
	}
	return hand
}

// CountByKind tallies the remaining cards of each kind in a hand. All
// three kinds are always present in the result, zero when exhausted.
func CountByKind(hand []Card) map[Card]int {
	counts := map[Card]int{CardEmperor: 0, CardSlave: 0, CardCitizen: 0}
	for _, c := range hand {
		counts[c]++
	}
	return counts
}

// HandContains reports whether at least one instance of the card
// remains in the hand.
func HandContains(hand []Card, card Card) bool {
	for _, c := range hand {
		if c == card {
			return true
		}
	}
	return false
}

// RemoveCard removes a single instance of the card from the hand. The
// second return is false when the card was absent and the hand is
// returned unchanged.
func RemoveCard(hand []Card, card Card) ([]Card, bool) {
	for i, c := range hand {
		if c == card {
			out := make([]Card, 0, len(hand)-1)
			out = append(out, hand[:i]...)
			out = append(out, hand[i+1:]...)
			return out, true
		}
	}
	return hand, false
}
