package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type loginResponse struct {
	Token   string  `json:"token"`
	Session Session `json:"session"`
}

type errResponse struct {
	Error string `json:"error"`
}

func RegisterRoutes(r chi.Router, g *Gate) {
	r.Post("/session", login(g))
	r.Get("/session", current(g))
	r.Delete("/session", logout(g))
}

func login(g *Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		s, token, err := g.Login(req.Email, req.Password, req.RememberMe)
		switch {
		case errors.Is(err, ErrCredentialsRequired):
			writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error()})
			return
		case errors.Is(err, ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, errResponse{Error: err.Error()})
			return
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
			return
		}
		writeJSON(w, http.StatusCreated, loginResponse{Token: token, Session: s})
	}
}

func current(g *Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := g.Current()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errResponse{Error: "no_session"})
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func logout(g *Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.Logout()
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
