package domain

// AssignSides gives the first seated player the emperor side when
// emperorFirst is true, the slave side otherwise; the other player
// always gets the complement, so sides stay pairwise exclusive.
func (r *Room) AssignSides(emperorFirst bool) {
	if len(r.Players) != MaxPlayers {
		return
	}
	first := SideEmperor
	if !emperorFirst {
		first = SideSlave
	}
	r.Players[0].Side = first
	r.Players[1].Side = first.Opposite()
}

// Redeal regenerates both players' hands from their current sides.
// Picks, history, and win counters are untouched; callers clear picks
// separately.
func (r *Room) Redeal() {
	if r.Match == nil {
		return
	}
	for _, p := range r.Players {
		r.Match.Hands[p.UserID] = DealHand(p.Side)
	}
}

// FlipSides swaps the two players' side assignments and redeals, so
// both players experience both sides across a match.
func (r *Room) FlipSides() {
	if len(r.Players) != MaxPlayers {
		return
	}
	r.Players[0].Side, r.Players[1].Side = r.Players[1].Side, r.Players[0].Side
	r.Redeal()
}
