package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/spellbound-game/spellbound/internal/api/apierr"
	"github.com/spellbound-game/spellbound/internal/api/middleware"
	"github.com/spellbound-game/spellbound/internal/game/player"
	"github.com/spellbound-game/spellbound/internal/storage/postgres"
)

const minPasswordLength = 8

// AuthHandler serves registration, login, and logout.
type AuthHandler struct {
	accounts     AccountStore
	players      PlayerStore
	tokens       TokenService
	startingZone string
	logger       *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
//
// Precondition: All dependencies must be non-nil; startingZone must be non-empty.
func NewAuthHandler(accounts AccountStore, players PlayerStore, tokens TokenService, startingZone string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:     accounts,
		players:      players,
		tokens:       tokens,
		startingZone: startingZone,
		logger:       logger,
	}
}

type registerRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	CharacterName string `json:"characterName"`
	House         string `json:"house"`
}

type sessionResponse struct {
	Token  string     `json:"token"`
	Player playerView `json:"player"`
}

// Register creates an account, its player character, and an initial session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" {
		apierr.Write(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		apierr.Write(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.CharacterName == "" {
		apierr.Write(w, http.StatusBadRequest, "characterName is required")
		return
	}
	if !player.ValidHouse(req.House) {
		apierr.Write(w, http.StatusBadRequest, "unknown house")
		return
	}

	acct, err := h.accounts.Create(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, postgres.ErrAccountExists) {
			apierr.Write(w, http.StatusConflict, "username already taken")
			return
		}
		h.logger.Error("creating account", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, "internal server error")
		return
	}

	p, err := h.players.Create(r.Context(), acct.ID, req.CharacterName, req.House, h.startingZone)
	if err != nil {
		h.logger.Error("creating player", zap.Int64("account_id", acct.ID), zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := h.tokens.Issue(r.Context(), p.ID.String())
	if err != nil {
		h.logger.Error("issuing token", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("account registered",
		zap.String("username", acct.Username), zap.String("player_id", p.ID.String()))
	apierr.WriteJSON(w, http.StatusCreated, sessionResponse{Token: token, Player: viewOf(p)})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates an account and issues a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		apierr.Write(w, http.StatusBadRequest, "username and password are required")
		return
	}

	acct, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, postgres.ErrAccountNotFound) || errors.Is(err, postgres.ErrInvalidCredentials) {
			apierr.Write(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("authenticating account", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, "internal server error")
		return
	}

	p, err := h.players.GetByAccount(r.Context(), acct.ID)
	if err != nil {
		h.logger.Error("loading player", zap.Int64("account_id", acct.ID), zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := h.tokens.Issue(r.Context(), p.ID.String())
	if err != nil {
		h.logger.Error("issuing token", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, "internal server error")
		return
	}

	apierr.WriteJSON(w, http.StatusOK, sessionResponse{Token: token, Player: viewOf(p)})
}

// Logout revokes the caller's session token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		apierr.Write(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := h.tokens.Revoke(r.Context(), token); err != nil {
		h.logger.Error("revoking token", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
