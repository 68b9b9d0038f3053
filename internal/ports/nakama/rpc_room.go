package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Room codes avoid easily confused glyphs (0/O, 1/I/L).
const (
	roomCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 4

	createRoomMaxAttempts = 5
)

// CreateRoomResponse is returned when a room has been created.
type CreateRoomResponse struct {
	MatchID string `json:"match_id"`
	Code    string `json:"code"`
}

// JoinRoomRequest carries the room code a client wants to enter.
type JoinRoomRequest struct {
	Code string `json:"code"`
}

// JoinRoomResponse points the client at the match behind a room code.
// Spectator is a hint only; seating stays server-authoritative on join.
type JoinRoomResponse struct {
	MatchID   string `json:"match_id"`
	Code      string `json:"code"`
	Spectator bool   `json:"spectator"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcIdCreateRoom, rpcCreateRoom); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcIdJoinRoom, rpcJoinRoom); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcIdVivoxToken, rpcVivoxToken)
}

func newRoomCode() string {
	b := make([]byte, roomCodeLength)
	for i := range b {
		b[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
	}
	return string(b)
}

func findRoomMatch(ctx context.Context, nk runtime.NakamaModule, code string) (string, *matchLabel, error) {
	query := fmt.Sprintf("+label.game:ecard +label.code:%s", code)
	limit := 1
	authoritative := true

	matches, err := nk.MatchList(ctx, limit, authoritative, "", nil, nil, query)
	if err != nil {
		return "", nil, err
	}
	if len(matches) == 0 {
		return "", nil, nil
	}

	var label matchLabel
	if err := json.Unmarshal([]byte(matches[0].GetLabel().GetValue()), &label); err != nil {
		return "", nil, err
	}
	return matches[0].MatchId, &label, nil
}

func rpcCreateRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	for attempt := 0; attempt < createRoomMaxAttempts; attempt++ {
		code := newRoomCode()

		// Codes are short on purpose, so collisions are possible. Retry
		// with a fresh code instead of joining a stranger's room.
		matchID, _, err := findRoomMatch(ctx, nk, code)
		if err != nil {
			logger.Error("CreateRoom: MatchList error: %v", err)
			return "", runtime.NewError("failed to create room", 13)
		}
		if matchID != "" {
			continue
		}

		matchID, err = nk.MatchCreate(ctx, MatchNameEcard, map[string]interface{}{"code": code})
		if err != nil {
			logger.Error("CreateRoom: MatchCreate error: %v", err)
			return "", runtime.NewError("failed to create room", 13)
		}

		b, _ := json.Marshal(CreateRoomResponse{MatchID: matchID, Code: code})
		return string(b), nil
	}

	return "", runtime.NewError("failed to allocate a room code", 13)
}

func rpcJoinRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var request JoinRoomRequest
	if err := json.Unmarshal([]byte(payload), &request); err != nil {
		return "", runtime.NewError("invalid join payload", 3)
	}

	code := strings.ToUpper(strings.TrimSpace(request.Code))
	if code == "" {
		return "", runtime.NewError("room code is required", 3)
	}

	matchID, label, err := findRoomMatch(ctx, nk, code)
	if err != nil {
		logger.Error("JoinRoom: MatchList error: %v", err)
		return "", runtime.NewError("failed to look up room", 13)
	}
	if matchID == "" {
		return "", runtime.NewError("room not found", 5)
	}

	resp := JoinRoomResponse{
		MatchID:   matchID,
		Code:      code,
		Spectator: label != nil && label.Open <= 0,
	}
	b, _ := json.Marshal(resp)
	return string(b), nil
}
