/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting, validating
the room name, upgrading the HTTP connection to WebSocket, and handing the connection to its room.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"syncroom/internal/app/hub"
	"syncroom/internal/pkg/errs"
	"syncroom/internal/pkg/limiter"
	"syncroom/internal/pkg/logx"
	"syncroom/internal/pkg/randx"
	"syncroom/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// The room is created on first use. The player itself is created later, by the
// join frame the client sends over the established connection.
func HandleWebSocket(upgrader websocket.Upgrader, joinLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)
		if !joinLimiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", logx.AnonymizeIP(ip))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		name := chi.URLParam(r, "room")
		if !randx.IsValidRoomName(name) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNameInvalid))
			return
		}

		room, err := deps.Manager.GetOrCreateRoom(name)
		if err != nil {
			resp.RespondError(w, r, errs.From(err))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket", "room", name)
			return
		}

		client, err := connect(deps.Manager, room, conn)
		if err != nil {
			logx.Warn("Room unavailable after upgrade.", "room", name)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, errs.From(err).Message),
				time.Now().Add(time.Second))
			conn.Close()
			return
		}

		logx.Debug("WebSocket connection established.", "room", name, "session_id", client.SessionID())

		go client.WritePump()
		client.ReadPump()
	}
}

// connect registers conn with room, retrying once on a fresh instance if the room
// shut down between lookup and registration.
func connect(manager *hub.Manager, room *hub.Room, conn *websocket.Conn) (*hub.Client, error) {
	client, err := room.Connect(conn)
	if err == nil {
		return client, nil
	}

	room, err = manager.GetOrCreateRoom(room.Name)
	if err != nil {
		return nil, err
	}
	return room.Connect(conn)
}
