// Package main provides the Spellbound backend binary: the REST API and the
// WebSocket relay for live play sessions.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/spellbound-game/spellbound/internal/api"
	"github.com/spellbound-game/spellbound/internal/api/handler"
	"github.com/spellbound-game/spellbound/internal/auth"
	"github.com/spellbound-game/spellbound/internal/config"
	"github.com/spellbound-game/spellbound/internal/game/quest"
	"github.com/spellbound-game/spellbound/internal/game/session"
	"github.com/spellbound-game/spellbound/internal/game/shop"
	"github.com/spellbound-game/spellbound/internal/observability"
	"github.com/spellbound-game/spellbound/internal/realtime"
	"github.com/spellbound-game/spellbound/internal/server"
	"github.com/spellbound-game/spellbound/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting spellbound server", zap.String("http_addr", cfg.HTTP.Addr()))

	// Connect to PostgreSQL for accounts, players, and progression.
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	accounts := postgres.NewAccountRepository(pool.DB())
	players := postgres.NewPlayerRepository(pool.DB())

	// Token store: Redis when configured, in-process memory otherwise.
	var tokenStore auth.TokenStore
	if cfg.Redis.URL != "" {
		redisStore, err := auth.NewRedisStore(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Fatal("connecting to redis", zap.Error(err))
		}
		defer redisStore.Close()
		tokenStore = redisStore
		logger.Info("redis token store connected")
	} else {
		tokenStore = auth.NewMemoryStore()
		logger.Warn("no redis url configured, using in-memory token store")
	}
	tokens := auth.NewService(tokenStore, cfg.Auth.TokenTTL, logger)

	// Load content catalogs.
	shopCatalog, err := shop.LoadCatalog(filepath.Join(cfg.Game.ContentDir, "shop_items.yaml"))
	if err != nil {
		logger.Fatal("loading shop catalog", zap.Error(err))
	}
	questCatalog, err := quest.LoadCatalog(filepath.Join(cfg.Game.ContentDir, "quests.yaml"))
	if err != nil {
		logger.Fatal("loading quest catalog", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("shop_items", shopCatalog.Len()),
		zap.Int("quests", len(questCatalog.List())),
	)

	// Live-session layer: registry, spell buffer, hub, relay.
	registry := session.NewRegistry(cfg.Game.StartingZone)
	spells := session.NewSpellBuffer(cfg.Game.SpellBufferSize, cfg.Game.SpellMaxAge)
	sweeper := session.NewSweeper(spells, cfg.Game.SpellSweepInterval, logger)
	hub := realtime.NewHub(logger, cfg.Game.SendBufferSize)
	relay := realtime.NewRelay(registry, spells, hub, logger)
	hub.Attach(relay)

	shopSvc := shop.NewService(shopCatalog, players, logger)
	questSvc := quest.NewService(questCatalog, players, logger)

	router := api.NewRouter(api.Deps{
		Logger:    logger,
		Validator: tokens,
		Auth:      handler.NewAuthHandler(accounts, players, tokens, cfg.Game.StartingZone, logger),
		Player:    handler.NewPlayerHandler(players, logger),
		Shop:      handler.NewShopHandler(shopSvc, logger),
		Quest:     handler.NewQuestHandler(questSvc, logger),
		ServeWS:   hub.ServeWS,
		Health: func() error {
			return pool.Health(ctx, 2*time.Second)
		},
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr()))
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http shutdown incomplete", zap.Error(err))
			}
		},
	})

	lifecycle.Add("websocket-hub", &server.FuncService{
		StartFn: func() error { return nil },
		StopFn:  hub.Stop,
	})

	lifecycle.Add("spell-sweeper", sweeper)

	dbHealth := server.NewHeartbeat("postgres", 30*time.Second, func() error {
		return pool.Health(ctx, 5*time.Second)
	}, logger)
	lifecycle.Add("postgres", &server.FuncService{
		StartFn: dbHealth.Start,
		StopFn: func() {
			dbHealth.Stop()
			pool.Close()
		},
	})

	logger.Info("spellbound server initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
