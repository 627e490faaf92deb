// @title                       Deck API
// @version                     1.0
// @description                 Decks and cards behind bearer-token authentication.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/decksmith/deck-api/internal/api"
	"github.com/decksmith/deck-api/internal/api/handler"
	"github.com/decksmith/deck-api/internal/api/middleware"
	"github.com/decksmith/deck-api/internal/core/ports"
	"github.com/decksmith/deck-api/internal/core/service"
	"github.com/decksmith/deck-api/internal/infrastructure/db/memory"
	"github.com/decksmith/deck-api/internal/infrastructure/db/mongo"
	"github.com/decksmith/deck-api/internal/infrastructure/db/redis"
	"github.com/decksmith/deck-api/internal/infrastructure/password"
	"github.com/decksmith/deck-api/internal/infrastructure/token"
	"github.com/decksmith/deck-api/internal/pkg/async"
	"github.com/decksmith/deck-api/internal/pkg/config"
	"github.com/decksmith/deck-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{Service: "deck-api"}).Fatal().Err(err).Msg("load config")
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "deck-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

type stores struct {
	users ports.CredentialStore
	decks ports.DeckRepository
	cards ports.CardRepository
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	pool := async.NewPool(async.Options{
		CPUMultiplier: cfg.Pool.CPUMultiplier,
		QueueSize:     cfg.Pool.QueueSize,
	}, logger.Component(log, "pool"))
	defer pool.Close()

	checks := map[string]handler.Check{}

	var st stores
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn().Msg("using in-memory document store; data is lost on exit")
		st = stores{
			users: memory.NewUserRepository(pool),
			decks: memory.NewDeckRepository(pool),
			cards: memory.NewCardRepository(pool),
		}
	default:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()

		users := mongo.NewUserRepository(db, pool)
		decks := mongo.NewDeckRepository(db, pool)
		cards := mongo.NewCardRepository(db, pool)
		if err := mongo.EnsureIndexes(ctx, users, decks, cards); err != nil {
			return err
		}
		st = stores{users: users, decks: decks, cards: cards}
		checks["mongodb"] = handler.MongoCheck(db)
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
	}

	var cache ports.PrincipalCache
	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer func(c *goredis.Client) { _ = c.Close() }(rdb)
		cache = redis.NewPrincipalCache(rdb, cfg.Auth.PrincipalCacheTTL)
		checks["redis"] = handler.RedisCheck(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
	}

	codec, err := token.NewJWTCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	if err != nil {
		return err
	}

	var resolver middleware.PrincipalResolver
	if cfg.Auth.ResolvePrincipal {
		resolver = service.NewPrincipalResolver(st.users, cache, log)
	}

	e := api.NewRouter(api.Dependencies{
		Auth:     service.NewAuthService(st.users, password.NewBcryptHasher(cfg.Auth.BcryptCost), codec, log),
		Decks:    service.NewDeckService(st.decks, st.cards, log),
		Codec:    codec,
		Resolver: resolver,
		Checks:   checks,
		Log:      log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Int("workers", pool.Workers()).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}
