package bot

import (
	"fmt"
	"math/rand"
	"time"

	"ecard/internal/domain"
)

// Agent represents an autonomous bot player for one match.
type Agent struct {
	ID  string
	rng *rand.Rand
}

// NewAgent builds an agent for a pooled bot identity.
func NewAgent(userID string, rng *rand.Rand) (*Agent, error) {
	if !IsBot(userID) {
		return nil, fmt.Errorf("not a bot id: %s", userID)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Agent{ID: userID, rng: rng}, nil
}

// Pick chooses a card from the agent's hand. The special card is held
// back with probability proportional to the citizens still covering it,
// so the agent gets less predictable as the hand thins out.
func (a *Agent) Pick(hand []domain.Card) (domain.Card, error) {
	if len(hand) == 0 {
		return "", fmt.Errorf("empty hand")
	}

	counts := domain.CountByKind(hand)
	citizens := counts[domain.CardCitizen]
	var special domain.Card
	switch {
	case counts[domain.CardEmperor] > 0:
		special = domain.CardEmperor
	case counts[domain.CardSlave] > 0:
		special = domain.CardSlave
	default:
		return domain.CardCitizen, nil
	}

	if citizens == 0 {
		return special, nil
	}
	if a.rng.Intn(citizens+1) == 0 {
		return special, nil
	}
	return domain.CardCitizen, nil
}
