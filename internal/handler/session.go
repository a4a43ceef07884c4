package handler

import (
	"net/http"

	"github.com/xenking/medsupply-storefront/internal/domain/session"
)

type sessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *session.User `json:"user,omitempty"`
}

func (h *Handler) sessionState() sessionResponse {
	u, ok := h.Session.Current()
	if !ok {
		return sessionResponse{}
	}
	u.Token = ""
	return sessionResponse{Authenticated: true, User: u}
}

func (h *Handler) getSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sessionState())
}

// login accepts the user record returned by the remote auth endpoint.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var u session.User
	if err := readJSON(r, &u); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Session.Login(r.Context(), u); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionState())
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Logout(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
