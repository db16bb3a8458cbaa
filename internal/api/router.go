// Package api assembles the HTTP surface: REST routes, middleware, and the
// WebSocket entry point.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/spellbound-game/spellbound/internal/api/apierr"
	"github.com/spellbound-game/spellbound/internal/api/handler"
	"github.com/spellbound-game/spellbound/internal/api/middleware"
)

// Deps collects everything the router mounts.
type Deps struct {
	Logger    *zap.Logger
	Validator middleware.TokenValidator
	Auth      *handler.AuthHandler
	Player    *handler.PlayerHandler
	Shop      *handler.ShopHandler
	Quest     *handler.QuestHandler

	// ServeWS upgrades the connection; the router gates it behind a token
	// query parameter since browsers cannot set headers on WebSocket dials.
	ServeWS http.HandlerFunc

	// Health reports readiness of the backing stores.
	Health func() error
}

// NewRouter builds the complete route table.
//
// Precondition: All Deps fields must be set.
func NewRouter(deps Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := deps.Health(); err != nil {
			apierr.Write(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		apierr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			apierr.Write(w, http.StatusUnauthorized, "missing token")
			return
		}
		if _, err := deps.Validator.Validate(r.Context(), token); err != nil {
			apierr.Write(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		deps.ServeWS(w, r)
	}).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/auth/register", deps.Auth.Register).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", deps.Auth.Login).Methods(http.MethodPost)

	authed := v1.NewRoute().Subrouter()
	authed.Use(middleware.Auth(deps.Validator, deps.Logger))
	authed.HandleFunc("/auth/logout", deps.Auth.Logout).Methods(http.MethodPost)
	authed.HandleFunc("/players/me", deps.Player.Me).Methods(http.MethodGet)
	authed.HandleFunc("/players/me/state", deps.Player.SaveState).Methods(http.MethodPut)
	authed.HandleFunc("/players/me/experience", deps.Player.GrantExperience).Methods(http.MethodPost)
	authed.HandleFunc("/shop/items", deps.Shop.List).Methods(http.MethodGet)
	authed.HandleFunc("/shop/purchase", deps.Shop.Purchase).Methods(http.MethodPost)
	authed.HandleFunc("/quests", deps.Quest.List).Methods(http.MethodGet)
	authed.HandleFunc("/quests/{questID}/complete", deps.Quest.Complete).Methods(http.MethodPost)

	return r
}
