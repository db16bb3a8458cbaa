package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/spellbound-game/spellbound/internal/api/apierr"
	"github.com/spellbound-game/spellbound/internal/api/middleware"
	"github.com/spellbound-game/spellbound/internal/game/quest"
	"github.com/spellbound-game/spellbound/internal/storage/postgres"
)

// QuestHandler serves the quest catalog and completions.
type QuestHandler struct {
	quests *quest.Service
	logger *zap.Logger
}

// NewQuestHandler creates a QuestHandler.
func NewQuestHandler(svc *quest.Service, logger *zap.Logger) *QuestHandler {
	return &QuestHandler{quests: svc, logger: logger}
}

type questRewardView struct {
	XP       int               `json:"xp"`
	Galleons int               `json:"galleons"`
	Items    []quest.ItemGrant `json:"items,omitempty"`
}

type questView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Reward      questRewardView `json:"reward"`
}

type questListResponse struct {
	Quests []questView `json:"quests"`
}

// List returns the quest catalog.
func (h *QuestHandler) List(w http.ResponseWriter, r *http.Request) {
	quests := h.quests.Quests()
	views := make([]questView, 0, len(quests))
	for _, q := range quests {
		views = append(views, questView{
			ID:          q.ID,
			Name:        q.Name,
			Description: q.Description,
			Reward: questRewardView{
				XP:       q.RewardXP,
				Galleons: q.RewardGalleons,
				Items:    q.RewardItems,
			},
		})
	}
	apierr.WriteJSON(w, http.StatusOK, questListResponse{Quests: views})
}

type completeQuestResponse struct {
	Player playerView `json:"player"`
}

// Complete awards the quest's rewards to the caller, once.
func (h *QuestHandler) Complete(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.PlayerID(r.Context())
	if !ok {
		apierr.Write(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	questID := mux.Vars(r)["questID"]
	if questID == "" {
		apierr.Write(w, http.StatusBadRequest, "quest id is required")
		return
	}

	updated, err := h.quests.Complete(r.Context(), playerID, questID)
	switch {
	case errors.Is(err, quest.ErrQuestNotFound):
		apierr.Write(w, http.StatusNotFound, "quest not found")
		return
	case errors.Is(err, postgres.ErrQuestAlreadyCompleted):
		apierr.Write(w, http.StatusConflict, "quest already completed")
		return
	case errors.Is(err, postgres.ErrPlayerNotFound):
		apierr.Write(w, http.StatusNotFound, "player not found")
		return
	case err != nil:
		h.logger.Error("completing quest", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, "internal server error")
		return
	}

	apierr.WriteJSON(w, http.StatusOK, completeQuestResponse{Player: viewOf(updated)})
}
