package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"ecard/internal/app"
	"ecard/internal/bot"
	"ecard/internal/config"
	"ecard/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// matchLabel is the queryable label kept current on the match. Open
// counts free player seats; spectators can always join.
type matchLabel struct {
	Game  string `json:"game"`
	Code  string `json:"code"`
	Open  int    `json:"open"`
	Phase string `json:"phase"`
}

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Room      *domain.Room                `json:"-"` // Seats, spectators and the running match
	Presences map[string]runtime.Presence `json:"-"` // Map UserId -> Presence for targeted messaging
	App       *app.Service                `json:"-"` // E-card app service with the match state machine
	Tick      int64                       `json:"tick"`

	BotsEnabled      bool                  `json:"bots_enabled"`        // Whether an AI opponent may fill the second seat
	BotMinDelay      int                   `json:"bot_min_delay"`       // Min seconds a bot waits before picking
	BotMaxDelay      int                   `json:"bot_max_delay"`       // Max seconds a bot waits before picking
	BotAutoFillDelay int                   `json:"bot_auto_fill_delay"` // Seconds a solo human waits before a bot joins
	BotWaitUntil     int64                 `json:"bot_wait_until"`      // Tick when the bot should pick
	LastSoloTick     int64                 `json:"last_solo_tick"`      // Tick when a solo human started waiting
	Bots             map[string]*bot.Agent `json:"-"`                   // Active bot agents
}

func (ms *MatchState) openSeats() int {
	open := domain.MaxPlayers - len(ms.Room.Players)
	if open < 0 {
		return 0
	}
	return open
}

func (ms *MatchState) humanPlayerCount() int {
	count := 0
	for _, p := range ms.Room.Players {
		if !bot.IsBot(p.UserID) {
			count++
		}
	}
	return count
}

func (ms *MatchState) matchPhase() string {
	if ms.Room.Match == nil {
		return "lobby"
	}
	return string(ms.Room.Match.Phase)
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	if err := bot.LoadIdentities("data/bot_identities.json"); err != nil {
		logger.Warn("MatchInit: Could not load bot identities: %v", err)
	}
	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	code, _ := params["code"].(string)
	if code == "" {
		logger.Warn("MatchInit: Match created without a room code.")
	}

	state := &MatchState{
		Room:      domain.NewRoom(code),
		Presences: make(map[string]runtime.Presence),
		App:       app.NewService(nil, config.GetRoundsPerSet(), config.GetTotalSets()),
		Tick:      time.Now().Unix(),
		Bots:      make(map[string]*bot.Agent),
	}

	env := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if val, ok := env["ecard_bots_enabled"]; ok {
		state.BotsEnabled = val == "true"
	}
	if val, ok := env["ecard_bot_min_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMinDelay = i
		}
	}
	if val, ok := env["ecard_bot_max_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMaxDelay = i
		}
	}
	if val, ok := env["ecard_bot_auto_fill_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotAutoFillDelay = i
		}
	}

	if cfg := config.GetGameConfig(); cfg != nil {
		if state.BotMinDelay == 0 {
			state.BotMinDelay = cfg.BotMinDelaySeconds
		}
		if state.BotMaxDelay == 0 {
			state.BotMaxDelay = cfg.BotMaxDelaySeconds
		}
		if state.BotAutoFillDelay == 0 {
			state.BotAutoFillDelay = cfg.BotAutoFillDelaySeconds
		}
	}
	if state.BotMinDelay == 0 {
		state.BotMinDelay = 1
	}
	if state.BotMaxDelay == 0 {
		state.BotMaxDelay = 3
	}
	if state.BotAutoFillDelay == 0 {
		state.BotAutoFillDelay = 5
	}

	labelBytes, err := json.Marshal(matchLabel{Game: "ecard", Code: code, Open: state.openSeats(), Phase: state.matchPhase()})
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(labelBytes)
}

// MatchJoinAttempt always admits; late arrivals become spectators.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	if _, ok := state.(*MatchState); !ok {
		return state, false, "state not found"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p

		seated := matchState.Room.Seat(p.GetUserId(), p.GetUsername())
		if seated {
			logger.Info("MatchJoin: %s took a player seat in room %s.", p.GetUserId(), matchState.Room.Code)
		} else {
			logger.Info("MatchJoin: %s joined room %s as spectator.", p.GetUserId(), matchState.Room.Code)
		}

		// A late joiner with a match already running gets caught up
		// immediately: players get their tailored state, spectators the
		// shared snapshot.
		if matchState.Room.Match != nil {
			if seated && matchState.Room.IsPlayer(p.GetUserId()) {
				mh.sendTailoredState(matchState, dispatcher, logger, p.GetUserId())
			} else {
				mh.sendSnapshot(matchState, dispatcher, logger, p)
			}
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastRoom(matchState, dispatcher, logger)

	return matchState
}

// MatchLeave is called when one or more occupants leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		if matchState.Room.Remove(p.GetUserId()) {
			logger.Debug("MatchLeave: %s left room %s.", p.GetUserId(), matchState.Room.Code)
		}
	}

	// Drop bot seats once no human remains to play against.
	if matchState.humanPlayerCount() == 0 {
		for botID := range matchState.Bots {
			matchState.Room.Remove(botID)
			delete(matchState.Bots, botID)
		}
	}

	if matchState.Room.Empty() {
		logger.Info("MatchLeave: Room %s is empty, terminating match.", matchState.Room.Code)
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastRoom(matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartMatch:
			mh.handleStartMatch(matchState, dispatcher, logger, msg)
		case OpSubmitPick:
			mh.handleSubmitPick(matchState, dispatcher, logger, msg)
		case OpRematch:
			mh.handleRematch(matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.BotsEnabled {
		mh.processBots(matchState, dispatcher, logger)
	}

	return matchState
}

func (mh *matchHandler) handleStartMatch(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	events, err := state.App.StartMatch(state.Room, senderID)
	if err != nil {
		logger.Warn("StartMatch: %s could not start a match: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, err)
		return
	}

	mh.updateLabel(state, dispatcher, logger)
	for _, ev := range events {
		mh.dispatchEvent(state, dispatcher, logger, ev)
	}
	logger.Info("StartMatch: Match started in room %s by %s.", state.Room.Code, senderID)
}

// submitPickRequest is the payload for pick messages.
type submitPickRequest struct {
	Card domain.Card `json:"card"`
}

func (mh *matchHandler) handleSubmitPick(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var request submitPickRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Warn("SubmitPick: Invalid payload from %s: %v", senderID, err)
		return
	}

	events, err := state.App.SubmitPick(state.Room, senderID, request.Card)
	if err != nil {
		logger.Warn("SubmitPick: %s (room %s) rejected: %v", senderID, state.Room.Code, err)
		mh.sendError(state, dispatcher, logger, senderID, err)
		return
	}

	mh.updateLabel(state, dispatcher, logger)
	for _, ev := range events {
		mh.dispatchEvent(state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handleRematch(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	events, err := state.App.Rematch(state.Room, senderID)
	if err != nil {
		mh.sendError(state, dispatcher, logger, senderID, err)
		return
	}
	if len(events) == 0 {
		logger.Debug("Rematch: Ignored request from %s in room %s.", senderID, state.Room.Code)
		return
	}

	mh.updateLabel(state, dispatcher, logger)
	for _, ev := range events {
		mh.dispatchEvent(state, dispatcher, logger, ev)
	}
	logger.Info("Rematch: New match started in room %s by %s.", state.Room.Code, senderID)
}

func (mh *matchHandler) processBots(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// 1. Auto-fill the lobby with a bot when one human waits alone.
	if len(state.Room.Players) < domain.MaxPlayers {
		if state.humanPlayerCount() == 1 {
			if state.LastSoloTick == 0 {
				state.LastSoloTick = state.Tick
				logger.Debug("processBots: Solo player detected, starting auto-fill timer.")
			}

			if state.Tick-state.LastSoloTick >= int64(state.BotAutoFillDelay) {
				identity := bot.GetIdentity(rand.Intn(1000))
				agent, err := bot.NewAgent(identity.UserID, nil)
				if err != nil {
					logger.Error("processBots: Failed to create bot agent for %s: %v", identity.UserID, err)
				} else if state.Room.Seat(identity.UserID, identity.DisplayName) {
					state.Bots[identity.UserID] = agent
					logger.Info("processBots: Added bot %s (%s) to room %s.", identity.DisplayName, identity.UserID, state.Room.Code)
					mh.updateLabel(state, dispatcher, logger)
					mh.broadcastRoom(state, dispatcher, logger)
				}
				state.LastSoloTick = 0
			}
		} else {
			state.LastSoloTick = 0
		}
	}

	// 2. Schedule and submit bot picks while a match is live.
	m := state.Room.Match
	if m == nil || m.Phase == domain.PhaseDone {
		state.BotWaitUntil = 0
		return
	}

	for botID, agent := range state.Bots {
		if !state.Room.IsPlayer(botID) {
			continue
		}
		if _, picked := m.Picks[botID]; picked {
			continue
		}

		if state.BotWaitUntil == 0 {
			delay := state.BotMinDelay
			if state.BotMaxDelay > state.BotMinDelay {
				delay += rand.Intn(state.BotMaxDelay - state.BotMinDelay + 1)
			}
			state.BotWaitUntil = state.Tick + int64(delay)
			logger.Debug("processBots: Bot %s will pick at tick %d (current %d).", botID, state.BotWaitUntil, state.Tick)
			return
		}
		if state.Tick < state.BotWaitUntil {
			return
		}
		state.BotWaitUntil = 0

		card, err := agent.Pick(m.Hands[botID])
		if err != nil {
			logger.Error("processBots: Bot %s failed to pick: %v", botID, err)
			return
		}
		events, err := state.App.SubmitPick(state.Room, botID, card)
		if err != nil {
			logger.Error("processBots: Bot %s pick rejected: %v", botID, err)
			return
		}
		mh.updateLabel(state, dispatcher, logger)
		for _, ev := range events {
			mh.dispatchEvent(state, dispatcher, logger, ev)
		}
		return
	}
}

// dispatchEvent converts an app event into a Nakama broadcast.
func (mh *matchHandler) dispatchEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	var opCode int64
	var payload interface{}

	switch ev.Kind {
	case app.EventRoomUpdated:
		opCode = OpRoomUpdated
		payload = ev.Payload.(app.RoomUpdatedPayload).Snapshot
	case app.EventStatePushed:
		opCode = OpStatePushed
		payload = ev.Payload.(app.StatePushedPayload).State
	case app.EventOpponentLocked:
		opCode = OpOpponentLocked
		payload = ev.Payload.(app.OpponentLockedPayload)
	default:
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	bytes, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// If the intended recipients are not connected (e.g. bots),
		// the message MUST NOT fall through to a broadcast.
		if len(recipients) == 0 {
			return
		}
	}

	dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true)
}

// matchErrorEvent is the payload for rejected requests, always unicast.
type matchErrorEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, cause error) {
	code := ErrCodeInternal
	switch {
	case errors.Is(cause, app.ErrNotAPlayer):
		code = ErrCodeNotAPlayer
	case errors.Is(cause, app.ErrWrongPlayerCount):
		code = ErrCodeWrongPlayerCount
	case errors.Is(cause, app.ErrSpectatorForbidden):
		code = ErrCodeSpectatorForbidden
	case errors.Is(cause, app.ErrCardNotInHand):
		code = ErrCodeCardNotInHand
	}

	bytes, err := json.Marshal(matchErrorEvent{Code: code, Message: cause.Error()})
	if err != nil {
		logger.Error("Failed to marshal match error: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(OpMatchError, bytes, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) broadcastRoom(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	snapshot := app.BuildRoomSnapshot(state.Room)
	bytes, err := json.Marshal(snapshot)
	if err != nil {
		logger.Error("Failed to marshal room snapshot: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpRoomUpdated, bytes, nil, nil, true)
}

func (mh *matchHandler) sendTailoredState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string) {
	presence, ok := state.Presences[userID]
	if !ok {
		return
	}
	bytes, err := json.Marshal(app.BuildTailoredState(state.Room, userID))
	if err != nil {
		logger.Error("Failed to marshal tailored state: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpStatePushed, bytes, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) sendSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, presence runtime.Presence) {
	bytes, err := json.Marshal(app.BuildRoomSnapshot(state.Room))
	if err != nil {
		logger.Error("Failed to marshal room snapshot: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpRoomUpdated, bytes, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	labelBytes, err := json.Marshal(matchLabel{
		Game:  "ecard",
		Code:  state.Room.Code,
		Open:  state.openSeats(),
		Phase: state.matchPhase(),
	})
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
