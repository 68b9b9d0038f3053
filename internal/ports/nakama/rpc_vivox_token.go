package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"ecard/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// vivoxService is configured from the runtime env on first use. Tests
// may set it directly.
var vivoxService *app.VivoxService

// VivoxTokenRequest asks for a signed voice token. RoomCode is only
// needed for join tokens.
type VivoxTokenRequest struct {
	Action   string `json:"action"`
	RoomCode string `json:"room_code"`
}

// VivoxTokenResponse carries the signed token.
type VivoxTokenResponse struct {
	Token string `json:"token"`
}

func rpcVivoxToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("authentication required", 16)
	}

	var request VivoxTokenRequest
	if err := json.Unmarshal([]byte(payload), &request); err != nil {
		return "", runtime.NewError("invalid vivox payload", 3)
	}

	svc := vivoxService
	if svc == nil {
		env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
		svc = app.NewVivoxService(env["vivox_secret"], env["vivox_issuer"], env["vivox_domain"])
		vivoxService = svc
	}

	var channel string
	if request.Action == app.VivoxTokenActionJoin {
		if request.RoomCode == "" {
			return "", runtime.NewError("room code is required for join tokens", 3)
		}
		channel = app.RoomChannelName(request.RoomCode)
	}

	token, err := svc.GenerateToken(userID, request.Action, channel)
	if err != nil {
		logger.Error("VivoxToken: Failed to generate token for %s: %v", userID, err)
		return "", runtime.NewError("failed to generate vivox token", 13)
	}

	b, _ := json.Marshal(VivoxTokenResponse{Token: token})
	return string(b), nil
}
