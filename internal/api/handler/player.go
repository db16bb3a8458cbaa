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

// PlayerHandler serves the authenticated player's profile and state.
type PlayerHandler struct {
	players PlayerStore
	logger  *zap.Logger
}

// NewPlayerHandler creates a PlayerHandler.
func NewPlayerHandler(players PlayerStore, logger *zap.Logger) *PlayerHandler {
	return &PlayerHandler{players: players, logger: logger}
}

type profileResponse struct {
	Player          playerView             `json:"player"`
	Inventory       []player.InventoryItem `json:"inventory"`
	CompletedQuests []string               `json:"completedQuests"`
}

// Me returns the caller's player, inventory, and completed quests.
func (h *PlayerHandler) Me(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.PlayerID(r.Context())
	if !ok {
		apierr.Write(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	p, err := h.players.GetByID(r.Context(), playerID)
	if err != nil {
		if errors.Is(err, postgres.ErrPlayerNotFound) {
			apierr.Write(w, http.StatusNotFound, "player not found")
			return
		}
		h.logger.Error("loading player", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items, err := h.players.Inventory(r.Context(), playerID)
	if err != nil {
		h.logger.Error("loading inventory", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, "internal server error")
		return
	}

	quests, err := h.players.CompletedQuests(r.Context(), playerID)
	if err != nil {
		h.logger.Error("loading quest progress", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, "internal server error")
		return
	}

	apierr.WriteJSON(w, http.StatusOK, profileResponse{
		Player:          viewOf(p),
		Inventory:       items,
		CompletedQuests: quests,
	})
}

type saveStateRequest struct {
	Zone          string  `json:"zone"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	CurrentHealth int     `json:"currentHealth"`
}

// SaveState persists the client-reported presence snapshot.
func (h *PlayerHandler) SaveState(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.PlayerID(r.Context())
	if !ok {
		apierr.Write(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req saveStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Zone == "" {
		apierr.Write(w, http.StatusBadRequest, "zone is required")
		return
	}
	if req.CurrentHealth < 0 {
		apierr.Write(w, http.StatusBadRequest, "currentHealth must be >= 0")
		return
	}

	err := h.players.SaveState(r.Context(), playerID, req.Zone, req.X, req.Y, req.CurrentHealth)
	if err != nil {
		if errors.Is(err, postgres.ErrPlayerNotFound) {
			apierr.Write(w, http.StatusNotFound, "player not found")
			return
		}
		h.logger.Error("saving player state", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type grantExperienceRequest struct {
	Amount int `json:"amount"`
}

type grantExperienceResponse struct {
	Experience   int  `json:"experience"`
	Level        int  `json:"level"`
	LeveledUp    bool `json:"leveledUp"`
	LevelsGained int  `json:"levelsGained"`
}

// GrantExperience awards experience to the caller's player.
func (h *PlayerHandler) GrantExperience(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.PlayerID(r.Context())
	if !ok {
		apierr.Write(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req grantExperienceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Amount <= 0 {
		apierr.Write(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	res, err := h.players.GrantExperience(r.Context(), playerID, req.Amount)
	if err != nil {
		if errors.Is(err, postgres.ErrPlayerNotFound) {
			apierr.Write(w, http.StatusNotFound, "player not found")
			return
		}
		h.logger.Error("granting experience", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, "internal server error")
		return
	}

	apierr.WriteJSON(w, http.StatusOK, grantExperienceResponse{
		Experience:   res.Experience,
		Level:        res.Level,
		LeveledUp:    res.LeveledUp,
		LevelsGained: res.LevelsGained,
	})
}
