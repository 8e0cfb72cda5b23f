package web

import (
	"net/http"

	"github.com/ridematch/ridematch/types"
)

func (h *Handler) applyToMatching(w http.ResponseWriter, r *http.Request) {
	var in types.ApplyToMatching
	if err := decode(r, &in); err != nil {
		h.respondErr(w, err)
		return
	}

	in.RequestID = r.PathValue("requestID")

	application, err := h.Service.ApplyToMatching(r.Context(), in)
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, application, http.StatusCreated)
}

func (h *Handler) withdrawApplication(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.WithdrawApplication(r.Context(), r.PathValue("requestID")); err != nil {
		h.respondErr(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listApplicationsForRequest(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("requestID")

	var page types.Page[types.MatchingApplication]
	var err error
	if r.URL.Query().Get("status") == "ACCEPTED" {
		page, err = h.Service.AcceptedApplicationsForRequest(r.Context(), requestID)
	} else {
		page, err = h.Service.ApplicationsForRequest(r.Context(), requestID)
	}
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, page, http.StatusOK)
}

func (h *Handler) canApply(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Service.CanApply(r.Context(), r.PathValue("requestID"))
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, map[string]bool{"canApply": ok}, http.StatusOK)
}

func (h *Handler) updateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var in types.UpdateApplicationStatus
	if err := decode(r, &in); err != nil {
		h.respondErr(w, err)
		return
	}

	in.ApplicationID = r.PathValue("applicationID")

	application, err := h.Service.UpdateApplicationStatus(r.Context(), in)
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, application, http.StatusOK)
}

func (h *Handler) listOwnApplications(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.UserApplications(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, page, http.StatusOK)
}
