package web

import (
	"encoding/json"
	"fmt"
	"net/http"
)

func (h *Handler) showMatchingRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Service.MatchingRoom(r.Context(), r.PathValue("requestID"))
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, room, http.StatusOK)
}

func (h *Handler) joinMatchingRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Service.JoinMatchingRoom(r.Context(), r.PathValue("requestID"))
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, room, http.StatusOK)
}

func (h *Handler) leaveMatchingRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Service.LeaveMatchingRoom(r.Context(), r.PathValue("requestID"))
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, room, http.StatusOK)
}

func (h *Handler) confirmMatchingRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Service.ConfirmMatchingRoom(r.Context(), r.PathValue("requestID"))
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, room, http.StatusOK)
}

func (h *Handler) disbandMatchingRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Service.DisbandMatchingRoom(r.Context(), r.PathValue("requestID"))
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, room, http.StatusOK)
}

func (h *Handler) listOwnMatchingRooms(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.UserMatchingRooms(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, page, http.StatusOK)
}

func (h *Handler) listActiveMatchingRooms(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.ActiveMatchingRooms(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, page, http.StatusOK)
}

// roomEvents streams room events over server-sent events until the client
// disconnects.
func (h *Handler) roomEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondErr(w, fmt.Errorf("streaming unsupported"))
		return
	}

	events, err := h.Service.RoomStream(r.Context(), r.PathValue("requestID"))
	if err != nil {
		h.respondErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for event := range events {
		b, err := json.Marshal(event)
		if err != nil {
			h.ErrorLogger.Error("encode room event", "error", err)
			continue
		}

		fmt.Fprintf(w, "data: %s\n\n", b)
		flusher.Flush()
	}
}
