package web

import (
	"net/http"

	"github.com/ridematch/ridematch/types"
)

func (h *Handler) upsertUserProfile(w http.ResponseWriter, r *http.Request) {
	var in types.UpsertUserProfile
	if err := decode(r, &in); err != nil {
		h.respondErr(w, err)
		return
	}

	profile, err := h.Service.UpsertUserProfile(r.Context(), in)
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, profile, http.StatusOK)
}

func (h *Handler) showUserProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Service.UserProfile(r.Context(), r.PathValue("userID"))
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, profile, http.StatusOK)
}
