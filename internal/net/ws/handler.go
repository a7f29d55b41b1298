// Package ws runs the per-connection websocket sessions: upgrade,
// matchmaking dispatch, command intake, and the outbound pump from the
// player's lobby subscription.
package ws

import (
	"context"
	"errors"
	"log"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"breach/server/internal/lobby"
	"breach/server/internal/net/intake"
	"breach/server/internal/net/proto"
	"breach/server/internal/sim"
	"breach/server/internal/telemetry"
	"breach/server/logging"
	lognetwork "breach/server/logging/network"
)

type HandlerConfig struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
}

// Handler accepts websocket connections and routes their messages.
type Handler struct {
	manager   *lobby.Manager
	logger    telemetry.Logger
	publisher logging.Publisher
	upgrader  websocket.Upgrader
}

func NewHandler(manager *lobby.Manager, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		manager:   manager,
		logger:    logger,
		publisher: publisher,
		upgrader:  upgrader,
	}
}

// Handle upgrades the connection and runs its read loop until the
// client goes away. Disconnecting releases the player's lobby seat.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	playerID := r.URL.Query().Get("id")
	if playerID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", playerID, err)
		return
	}

	playerRef := logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer}
	lognetwork.Connected(r.Context(), h.publisher, playerRef, r.RemoteAddr)

	session := newSession(playerID, conn, h.logger)
	defer func() {
		session.Close()
		h.manager.Leave(playerID)
		lognetwork.Disconnected(context.Background(), h.publisher, playerRef, "connection_closed")
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", playerID, err)
			continue
		}

		if msg.IsMatchmaking() {
			if !h.handleMatchmaking(session, playerID, msg) {
				return
			}
			continue
		}

		if msg.Type == proto.TypeHeartbeat {
			if !h.handleHeartbeat(session, playerID, msg) {
				return
			}
			continue
		}

		current, _ := h.manager.LobbyFor(playerID)
		if _, ok, reason := intake.StageClientCommand(intake.CommandContext{Lobby: current}, playerID, msg); !ok {
			lobbyID := ""
			if current != nil {
				lobbyID = current.ID
			}
			var sequence uint64
			if msg.Input != nil {
				sequence = msg.Input.Sequence
			}
			lognetwork.InputDropped(context.Background(), h.publisher, 0, lobbyID, playerRef, reason, sequence)
			h.logger.Printf("rejected %s from %s: %s", msg.Type, playerID, reason)
		}
	}
}

// handleMatchmaking serves lobby manager requests. Returns false when
// the socket is gone.
func (h *Handler) handleMatchmaking(session *Session, playerID string, msg proto.ClientMessage) bool {
	switch msg.Type {
	case proto.TypeFindMatch:
		result, err := h.manager.QuickMatch(playerID, msg.Mode)
		if err != nil {
			return h.writeLobbyMessage(session, lobby.EventMatchmakingFailed, lobby.FailurePayload{Reason: joinFailureReason(err)})
		}
		return h.deliverJoin(session, playerID, result)

	case proto.TypeCreatePrivate:
		result, err := h.manager.CreatePrivate(playerID, lobby.Options{
			Mode:       msg.Mode,
			MaxPlayers: msg.MaxPlayers,
			Password:   msg.Password,
		})
		if err != nil {
			return h.writeLobbyMessage(session, lobby.EventCreationFailed, lobby.FailurePayload{Reason: joinFailureReason(err)})
		}
		return h.deliverJoin(session, playerID, result)

	case proto.TypeJoinLobby:
		result, err := h.manager.Join(playerID, msg.LobbyID, msg.Password)
		if err != nil {
			return h.writeLobbyMessage(session, lobby.EventJoinFailed, lobby.FailurePayload{Reason: joinFailureReason(err)})
		}
		return h.deliverJoin(session, playerID, result)

	case proto.TypeGetLobbyList:
		rows := h.manager.List(lobby.ListFilters{
			ShowPrivate:    msg.ShowPrivate,
			ShowFull:       msg.ShowFull,
			ShowInProgress: msg.ShowInProgress,
			Mode:           msg.Mode,
		})
		return h.writeLobbyMessage(session, lobby.EventLobbyList, lobby.ListPayload{Lobbies: rows, TotalCount: len(rows)})

	case proto.TypeLeaveLobby:
		session.Detach()
		h.manager.Leave(playerID)
		return true
	}
	return true
}

// deliverJoin wires the subscription pump and confirms the seat.
func (h *Handler) deliverJoin(session *Session, playerID string, result lobby.JoinResult) bool {
	sub, err := result.Lobby.Subscribe(playerID)
	if err != nil {
		return h.writeLobbyMessage(session, lobby.EventJoinFailed, lobby.FailurePayload{Reason: joinFailureReason(err)})
	}
	session.Attach(sub)

	info := result.Lobby.Info()
	ok := h.writeLobbyMessage(session, lobby.EventLobbyJoined, lobby.JoinedPayload{
		LobbyID:      info.ID,
		PlayerCount:  info.PlayerCount,
		MaxPlayers:   info.MaxPlayers,
		Mode:         info.Mode,
		Status:       info.Status,
		IsInProgress: info.Status == lobby.StatePlaying,
	})
	if !ok {
		return false
	}
	if result.IsLateJoin {
		// The joiner missed the broadcast start; tell them directly.
		return h.writeLobbyMessage(session, lobby.EventMatchStarted, lobby.StartedPayload{
			LobbyID:    info.ID,
			KillTarget: sim.DefaultKillTarget,
			IsLateJoin: true,
		})
	}
	return true
}

func (h *Handler) handleHeartbeat(session *Session, playerID string, msg proto.ClientMessage) bool {
	now := time.Now()
	if current, ok := h.manager.LobbyFor(playerID); ok {
		intake.StageClientCommand(intake.CommandContext{Lobby: current}, playerID, msg)
	}

	data, err := proto.EncodeHeartbeat(proto.Heartbeat{
		ServerTime: now.UnixMilli(),
		ClientTime: msg.SentAt,
		RTTMillis:  proto.HeartbeatRTT(now, msg.SentAt).Milliseconds(),
	})
	if err != nil {
		h.logger.Printf("failed to marshal heartbeat ack for %s: %v", playerID, err)
		return true
	}
	return session.Write(data) == nil
}

func (h *Handler) writeLobbyMessage(session *Session, messageType string, payload any) bool {
	data, err := proto.EncodeLobbyMessage(messageType, payload)
	if err != nil {
		h.logger.Printf("failed to marshal %s for %s: %v", messageType, session.playerID, err)
		return true
	}
	return session.Write(data) == nil
}

// joinFailureReason maps manager errors onto wire reason strings.
func joinFailureReason(err error) string {
	switch {
	case errors.Is(err, lobby.ErrLobbyNotFound):
		return "lobby_not_found"
	case errors.Is(err, lobby.ErrWrongPassword):
		return "wrong_password"
	case errors.Is(err, lobby.ErrLobbyFull):
		return "lobby_full"
	case errors.Is(err, lobby.ErrServerAtCapacity):
		return "server_at_capacity"
	case errors.Is(err, lobby.ErrAlreadyInLobby):
		return "already_in_lobby"
	default:
		return "internal_error"
	}
}
