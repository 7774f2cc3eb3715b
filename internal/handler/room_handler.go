/*
Package handler provides HTTP handler functions for room creation, inspection and chat history.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"syncroom/internal/app/protocol"
	"syncroom/internal/pkg/errs"
	"syncroom/internal/pkg/logx"
	"syncroom/internal/pkg/randx"
	"syncroom/internal/pkg/req"
	"syncroom/internal/pkg/resp"
	"syncroom/internal/pkg/vec"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type CreateRoomInput struct {
	Name string `json:"name"`
	// MaxClients defaults to the server's ROOM_MAX_CLIENTS when omitted.
	MaxClients int `json:"maxClients,omitempty"`
}

type playerView struct {
	SessionID string   `json:"sessionId"`
	Position  vec.Vec3 `json:"position"`
}

type messageView struct {
	Index  uint64 `json:"index"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

type snapshotView struct {
	Seq      uint64        `json:"seq"`
	Players  []playerView  `json:"players"`
	Messages []messageView `json:"messages"`
}

func snapshotViewOf(snap protocol.Snapshot) snapshotView {
	view := snapshotView{
		Seq:      snap.Seq,
		Players:  make([]playerView, 0, len(snap.Players)),
		Messages: make([]messageView, 0, len(snap.Messages)),
	}
	for _, p := range snap.Players {
		view.Players = append(view.Players, playerView{SessionID: p.SessionID, Position: p.Position})
	}
	for _, m := range snap.Messages {
		view.Messages = append(view.Messages, messageView{Index: m.Seq, Author: m.Author, Text: m.Text})
	}
	return view
}

// HandleListRooms lists the live rooms.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"rooms": deps.Manager.Rooms(),
		})
	}
}

// HandleCreateRoom creates a room with an explicit capacity.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateRoomInput

		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !randx.IsValidRoomName(input.Name) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNameInvalid))
			return
		}

		maxClients := input.MaxClients
		if maxClients == 0 {
			maxClients = deps.Config.RoomMaxClients
		}

		room, err := deps.Manager.CreateRoom(input.Name, maxClients)
		if err != nil {
			resp.RespondError(w, r, errs.From(err))
			return
		}

		resp.RespondSuccess(w, r, room.Info())
	}
}

// HandleGetRoom returns a room's summary and its current state.
func HandleGetRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "room")
		if !randx.IsValidRoomName(name) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNameInvalid))
			return
		}

		room := deps.Manager.GetRoom(name)
		if room == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"room":     room.Info(),
			"snapshot": snapshotViewOf(room.Snapshot()),
		})
	}
}

// HandleRoomHistory returns archived chat for a room, oldest first. Rooms that
// have already shut down keep their history.
func HandleRoomHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Archive == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrArchiveUnavailable))
			return
		}

		name := chi.URLParam(r, "room")
		if !randx.IsValidRoomName(name) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNameInvalid))
			return
		}

		limit, customErr := req.QueryInt(r, "limit", defaultHistoryLimit, 1, maxHistoryLimit)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		records, err := deps.Archive.History(r.Context(), name, limit)
		if err != nil {
			logx.Error(err, "Failed to read chat history", "room", name)
			resp.RespondError(w, r, errs.NewError(errs.ErrArchiveUnavailable))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"room":     name,
			"messages": records,
		})
	}
}
