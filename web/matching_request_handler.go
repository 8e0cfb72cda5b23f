package web

import (
	"net/http"
	"time"

	"github.com/ridematch/ridematch/errs"
	"github.com/ridematch/ridematch/types"
)

func (h *Handler) createMatchingRequest(w http.ResponseWriter, r *http.Request) {
	var in types.CreateMatchingRequest
	if err := decode(r, &in); err != nil {
		h.respondErr(w, err)
		return
	}

	created, err := h.Service.CreateMatchingRequest(r.Context(), in)
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, created, http.StatusCreated)
}

func (h *Handler) listMatchingRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	in := types.ListMatchingRequests{
		Attraction: q.Get("attraction"),
	}

	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.respondErr(w, errs.NewInvalidArgumentError("from", "must be an RFC 3339 timestamp"))
			return
		}
		in.From = &t
	}

	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.respondErr(w, errs.NewInvalidArgumentError("to", "must be an RFC 3339 timestamp"))
			return
		}
		in.To = &t
	}

	page, err := h.Service.MatchingRequests(r.Context(), in)
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, page, http.StatusOK)
}

func (h *Handler) listOwnMatchingRequests(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.UserMatchingRequests(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, page, http.StatusOK)
}

func (h *Handler) showMatchingRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.Service.MatchingRequest(r.Context(), types.RetrieveMatchingRequest{
		RequestID: r.PathValue("requestID"),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, request, http.StatusOK)
}

func (h *Handler) updateMatchingRequest(w http.ResponseWriter, r *http.Request) {
	var in types.UpdateMatchingRequest
	if err := decode(r, &in); err != nil {
		h.respondErr(w, err)
		return
	}

	in.RequestID = r.PathValue("requestID")

	request, err := h.Service.UpdateMatchingRequest(r.Context(), in)
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, request, http.StatusOK)
}

func (h *Handler) cancelMatchingRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.Service.CancelMatchingRequest(r.Context(), r.PathValue("requestID"))
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respond(w, request, http.StatusOK)
}
