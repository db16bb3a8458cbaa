package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/spellbound-game/spellbound/internal/api/apierr"
	"github.com/spellbound-game/spellbound/internal/api/middleware"
	"github.com/spellbound-game/spellbound/internal/game/shop"
	"github.com/spellbound-game/spellbound/internal/storage/postgres"
)

// ShopHandler serves the item catalog and purchases.
type ShopHandler struct {
	shop   *shop.Service
	logger *zap.Logger
}

// NewShopHandler creates a ShopHandler.
func NewShopHandler(svc *shop.Service, logger *zap.Logger) *ShopHandler {
	return &ShopHandler{shop: svc, logger: logger}
}

type shopItemView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Price       int    `json:"price"`
	Description string `json:"description"`
}

type shopListResponse struct {
	Items []shopItemView `json:"items"`
}

// List returns the full catalog.
func (h *ShopHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.shop.Items()
	views := make([]shopItemView, 0, len(items))
	for _, item := range items {
		views = append(views, shopItemView{
			ID:          item.ID,
			Name:        item.Name,
			Category:    item.Category,
			Price:       item.Price,
			Description: item.Description,
		})
	}
	apierr.WriteJSON(w, http.StatusOK, shopListResponse{Items: views})
}

type purchaseRequest struct {
	ItemID string `json:"itemId"`
}

type purchaseResponse struct {
	Item              shopItemView `json:"item"`
	RemainingGalleons int          `json:"remainingGalleons"`
}

// Purchase sells one unit of the requested item to the caller.
func (h *ShopHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.PlayerID(r.Context())
	if !ok {
		apierr.Write(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ItemID == "" {
		apierr.Write(w, http.StatusBadRequest, "itemId is required")
		return
	}

	receipt, err := h.shop.Purchase(r.Context(), playerID, req.ItemID)
	switch {
	case errors.Is(err, shop.ErrItemNotFound):
		apierr.Write(w, http.StatusNotFound, "item not found")
		return
	case errors.Is(err, postgres.ErrInsufficientGalleons):
		apierr.Write(w, http.StatusConflict, "insufficient galleons")
		return
	case errors.Is(err, postgres.ErrPlayerNotFound):
		apierr.Write(w, http.StatusNotFound, "player not found")
		return
	case err != nil:
		h.logger.Error("purchasing item", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, "internal server error")
		return
	}

	apierr.WriteJSON(w, http.StatusOK, purchaseResponse{
		Item: shopItemView{
			ID:          receipt.Item.ID,
			Name:        receipt.Item.Name,
			Category:    receipt.Item.Category,
			Price:       receipt.Item.Price,
			Description: receipt.Item.Description,
		},
		RemainingGalleons: receipt.RemainingGalleons,
	})
}
