package domain

import "strings"

// Outcome is the result of resolving two simultaneous picks.
type Outcome struct {
	Draw   bool
	Winner Side // meaningful only when Draw is false
}

// ResolveClash resolves an unordered pair of picks. The rule table is
// symmetric: the emperor beats citizens, citizens beat the slave, and
// the slave alone topples the emperor. Draws happen only on
// citizen-vs-citizen. The second return is false for pairings that
// cannot occur with legal hands (two specials of the same kind).
func ResolveClash(a, b Card) (Outcome, bool) {
	switch pairKey(a, b) {
	case "CITIZEN+CITIZEN":
		return Outcome{Draw: true}, true
	case "CITIZEN+EMPEROR":
		return Outcome{Winner: SideEmperor}, true
	case "CITIZEN+SLAVE":
		return Outcome{Winner: SideEmperor}, true
	case "EMPEROR+SLAVE":
		return Outcome{Winner: SideSlave}, true
	}
	return Outcome{}, false
}

// ClashLine returns the flavor line for an unordered pair of picks,
// independent of who played which card.
func ClashLine(a, b Card) string {
	switch pairKey(a, b) {
	case "CITIZEN+CITIZEN":
		return "two citizens glare, nothing happens."
	case "CITIZEN+EMPEROR":
		return "the emperor tramples the citizen."
	case "CITIZEN+SLAVE":
		return "the citizen squashes the slave."
	case "EMPEROR+SLAVE":
		return "the emperor is brutalized by the slave."
	}
	return "chaos."
}

func pairKey(a, b Card) string {
	if strings.Compare(string(a), string(b)) > 0 {
		a, b = b, a
	}
	return string(a) + "+" + string(b)
}
