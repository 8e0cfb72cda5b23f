// Package web exposes the service as a JSON API. Identity comes from the
// X-User-ID header, injected by the gateway in front of this server.
package web

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ridematch/ridematch/auth"
	"github.com/ridematch/ridematch/service"
	"github.com/ridematch/ridematch/types"
)

type Handler struct {
	Service     *service.Service
	ErrorLogger *slog.Logger

	handler http.Handler
	once    sync.Once
}

func (h *Handler) init() {
	mux := http.NewServeMux()

	mux.HandleFunc("PUT /api/profile", h.upsertUserProfile)
	mux.HandleFunc("GET /api/users/{userID}/profile", h.showUserProfile)

	mux.HandleFunc("POST /api/matching-requests", h.createMatchingRequest)
	mux.HandleFunc("GET /api/matching-requests", h.listMatchingRequests)
	mux.HandleFunc("GET /api/matching-requests/me", h.listOwnMatchingRequests)
	mux.HandleFunc("GET /api/matching-requests/{requestID}", h.showMatchingRequest)
	mux.HandleFunc("PATCH /api/matching-requests/{requestID}", h.updateMatchingRequest)
	mux.HandleFunc("DELETE /api/matching-requests/{requestID}", h.cancelMatchingRequest)

	mux.HandleFunc("POST /api/matching-requests/{requestID}/applications", h.applyToMatching)
	mux.HandleFunc("DELETE /api/matching-requests/{requestID}/applications", h.withdrawApplication)
	mux.HandleFunc("GET /api/matching-requests/{requestID}/applications", h.listApplicationsForRequest)
	mux.HandleFunc("GET /api/matching-requests/{requestID}/can-apply", h.canApply)
	mux.HandleFunc("PATCH /api/applications/{applicationID}", h.updateApplicationStatus)
	mux.HandleFunc("GET /api/applications/me", h.listOwnApplications)

	mux.HandleFunc("GET /api/matching-requests/{requestID}/room", h.showMatchingRoom)
	mux.HandleFunc("POST /api/matching-requests/{requestID}/room/join", h.joinMatchingRoom)
	mux.HandleFunc("POST /api/matching-requests/{requestID}/room/leave", h.leaveMatchingRoom)
	mux.HandleFunc("POST /api/matching-requests/{requestID}/room/confirm", h.confirmMatchingRoom)
	mux.HandleFunc("POST /api/matching-requests/{requestID}/room/disband", h.disbandMatchingRoom)
	mux.HandleFunc("GET /api/matching-requests/{requestID}/room/events", h.roomEvents)
	mux.HandleFunc("GET /api/rooms/me", h.listOwnMatchingRooms)
	mux.HandleFunc("GET /api/rooms/active", h.listActiveMatchingRooms)

	mux.HandleFunc("POST /api/matching-requests/{requestID}/chat-room", h.createChatRoom)
	mux.HandleFunc("GET /api/chat-rooms/me", h.listOwnChatRooms)
	mux.HandleFunc("GET /api/chat-rooms/{chatRoomID}", h.showChatRoom)
	mux.HandleFunc("POST /api/chat-rooms/{chatRoomID}/messages", h.sendChatMessage)
	mux.HandleFunc("GET /api/chat-rooms/{chatRoomID}/messages", h.listChatMessages)

	mux.Handle("GET /metrics", promhttp.Handler())

	h.handler = mux
	h.handler = h.withUser(h.handler)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.once.Do(h.init)
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := r.Header.Get("X-User-ID"); userID != "" {
			ctx := auth.ContextWithUser(r.Context(), types.User{ID: userID})
			r = r.WithContext(ctx)
		}

		next.ServeHTTP(w, r)
	})
}
