package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Identity is a bot profile used to fill the second seat of a lobby.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

const botIDPrefix = "bot-"

// defaultIdentities keeps bots working when no identity file ships
// with the deployment.
var defaultIdentities = []Identity{
	{UserID: "bot-kaiji", DisplayName: "Kaiji"},
	{UserID: "bot-tonegawa", DisplayName: "Tonegawa"},
	{UserID: "bot-ichijou", DisplayName: "Ichijou"},
}

var (
	identities []Identity
	idSet      map[string]bool
	loadOnce   sync.Once
	loadErr    error
)

// LoadIdentities loads the bot profiles from the given path. Call it
// once at module init; lookups fall back to the built-in pool until
// then or when loading fails.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read bot identities: %w", err)
			return
		}
		var loaded []Identity
		if err := json.Unmarshal(data, &loaded); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal bot identities: %w", err)
			return
		}

		idSet = make(map[string]bool, len(loaded))
		for _, identity := range loaded {
			if identity.UserID != "" {
				idSet[identity.UserID] = true
			}
		}
		identities = loaded
	})
	return loadErr
}

func pool() []Identity {
	if len(identities) == 0 {
		return defaultIdentities
	}
	return identities
}

// GetIdentity returns an identity by index, wrapping around the pool.
func GetIdentity(index int) Identity {
	p := pool()
	if index < 0 {
		index = -index
	}
	return p[index%len(p)]
}

// IsBot reports whether the given user ID belongs to a bot.
func IsBot(userID string) bool {
	if idSet != nil && idSet[userID] {
		return true
	}
	return strings.HasPrefix(userID, botIDPrefix)
}

// DisplayName returns the display name for a bot ID, or the ID itself
// for bots outside the pool.
func DisplayName(userID string) string {
	for _, identity := range pool() {
		if identity.UserID == userID {
			return identity.DisplayName
		}
	}
	return userID
}
