package bot

import (
	"math/rand"
	"testing"

	"ecard/internal/domain"
)

func TestNewAgentRejectsHumans(t *testing.T) {
	if _, err := NewAgent("user-123", nil); err == nil {
		t.Fatal("expected error for a non-bot id")
	}
	if _, err := NewAgent("bot-kaiji", nil); err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
}

func TestPickAlwaysFromHand(t *testing.T) {
	agent, err := NewAgent("bot-kaiji", rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}

	hand := domain.DealHand(domain.SideEmperor)
	for len(hand) > 0 {
		card, err := agent.Pick(hand)
		if err != nil {
			t.Fatalf("Pick: %v", err)
		}
		var removed bool
		hand, removed = domain.RemoveCard(hand, card)
		if !removed {
			t.Fatalf("agent picked %s which is not in hand", card)
		}
	}

	if _, err := agent.Pick(hand); err == nil {
		t.Fatal("expected error for empty hand")
	}
}

func TestPickPlaysSpecialWhenCornered(t *testing.T) {
	agent, err := NewAgent("bot-kaiji", rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	card, err := agent.Pick([]domain.Card{domain.CardSlave})
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if card != domain.CardSlave {
		t.Fatalf("pick = %s, want the last remaining slave", card)
	}
}

func TestIdentityPoolFallback(t *testing.T) {
	identity := GetIdentity(0)
	if identity.UserID == "" || !IsBot(identity.UserID) {
		t.Fatalf("identity = %+v, want a pooled bot", identity)
	}
	if GetIdentity(100).UserID == "" {
		t.Fatal("index wraparound should always yield an identity")
	}
	if DisplayName(identity.UserID) == "" {
		t.Fatal("pooled bot should have a display name")
	}
	if IsBot("user-123") {
		t.Fatal("human id reported as bot")
	}
}
