package app

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// VivoxService signs Vivox access tokens for voice chat inside a room.
type VivoxService struct {
	secret string
	issuer string
	domain string
	ttl    time.Duration
}

const (
	VivoxTokenActionLogin = "login"
	VivoxTokenActionJoin  = "join"

	vivoxDefaultTTL = time.Hour
)

func NewVivoxService(secret, issuer, domain string) *VivoxService {
	return &VivoxService{
		secret: secret,
		issuer: issuer,
		domain: domain,
		ttl:    vivoxDefaultTTL,
	}
}

// RoomChannelName derives the voice channel for a room code. Codes are
// case-insensitive on the wire, so the channel name is canonicalized.
func RoomChannelName(code string) string {
	return "ecard-" + strings.ToUpper(strings.TrimSpace(code))
}

// GenerateToken signs an HS256 token for the given action. Login tokens
// target the user, join tokens target a room channel.
func (s *VivoxService) GenerateToken(user, action, channelName string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("vivox service is nil")
	}
	if user == "" {
		return "", fmt.Errorf("user is required")
	}
	if s.secret == "" || s.issuer == "" || s.domain == "" {
		return "", fmt.Errorf("vivox config is incomplete")
	}

	userURI := s.userURI(user)
	targetURI, err := s.targetURI(action, channelName, userURI)
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": user,
		"exp": time.Now().Add(s.ttl).Unix(),
		"vxa": action,
		"vxi": fmt.Sprintf("%d-%d", time.Now().UnixNano(), rand.Int63()),
		"f":   userURI,
		"t":   targetURI,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

func (s *VivoxService) userURI(user string) string {
	return "sip:." + s.issuer + "." + user + ".@" + s.domain
}

func (s *VivoxService) channelURI(channelName string) string {
	return "sip:confctl-g-" + channelName + "@" + s.domain
}

func (s *VivoxService) targetURI(action, channelName, userURI string) (string, error) {
	switch action {
	case VivoxTokenActionLogin:
		return userURI, nil
	case VivoxTokenActionJoin:
		if channelName == "" {
			return "", fmt.Errorf("channel name is required for join tokens")
		}
		return s.channelURI(channelName), nil
	default:
		return "", fmt.Errorf("unsupported vivox action: %s", action)
	}
}
