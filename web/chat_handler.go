package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ridematch/ridematch/errs"
	"github.com/ridematch/ridematch/types"
)

func (h *Handler) createChatRoom(w http.ResponseWriter, r *http.Request) {
	chatRoom, err := h.Service.CreateChatRoomFromRequest(r.Context(), r.PathValue("requestID"))
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, chatRoom, http.StatusCreated)
}

func (h *Handler) listOwnChatRooms(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.UserChatRooms(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, page, http.StatusOK)
}

func (h *Handler) showChatRoom(w http.ResponseWriter, r *http.Request) {
	chatRoom, err := h.Service.ChatRoom(r.Context(), r.PathValue("chatRoomID"))
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, chatRoom, http.StatusOK)
}

func (h *Handler) sendChatMessage(w http.ResponseWriter, r *http.Request) {
	var in types.SendChatMessage
	if err := decode(r, &in); err != nil {
		h.respondErr(w, err)
		return
	}

	in.ChatRoomID = r.PathValue("chatRoomID")

	message, err := h.Service.SendChatMessage(r.Context(), in)
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, message, http.StatusCreated)
}

// listChatMessages returns the most recent messages, or everything after
// ?since= for incremental polling.
func (h *Handler) listChatMessages(w http.ResponseWriter, r *http.Request) {
	chatRoomID := r.PathValue("chatRoomID")
	q := r.URL.Query()

	if s := q.Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.respondErr(w, errs.NewInvalidArgumentError("since", "must be an RFC 3339 timestamp"))
			return
		}

		page, err := h.Service.ChatMessagesSince(r.Context(), types.ListChatMessagesSince{
			ChatRoomID: chatRoomID,
			Since:      since,
		})
		if err != nil {
			h.respondErr(w, err)
			return
		}

		h.respond(w, page, http.StatusOK)
		return
	}

	var limit int
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			h.respondErr(w, errs.NewInvalidArgumentError("limit", "must be an integer"))
			return
		}
		limit = n
	}

	page, err := h.Service.ChatMessages(r.Context(), types.ListChatMessages{
		ChatRoomID: chatRoomID,
		Limit:      limit,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, page, http.StatusOK)
}
