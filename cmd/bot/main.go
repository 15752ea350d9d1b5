// Package main is the entry point for the Secret Santa bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"secret-santa-bot/internal/bot"
	"secret-santa-bot/internal/config"
	"secret-santa-bot/internal/pkg/db"
	"secret-santa-bot/internal/pkg/lock"
	"secret-santa-bot/internal/repository"
	"secret-santa-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().
		Str("storage", cfg.Storage.Driver).
		Str("session_store", cfg.Storage.SessionStore).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage wiring depends on the configured driver
	var (
		dbPool *db.Pool
		games  repository.GameStore
		users  repository.UserStore
		wishes repository.WishStore
	)
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		dbPool, err = db.NewPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer dbPool.Close()

		if err := runMigrations(ctx, dbPool); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}

		games = repository.NewPostgresGameStore(dbPool)
		users = repository.NewPostgresUserStore(dbPool)
		wishes = repository.NewPostgresWishStore(dbPool)
	case config.DriverMemory:
		games = repository.NewMemoryGameStore()
		users = repository.NewMemoryUserStore()
		wishes = repository.NewMemoryWishStore()
	default:
		log.Fatal().Str("driver", cfg.Storage.Driver).Msg("Unknown storage driver")
	}

	sessions, err := buildSessionStore(ctx, cfg, dbPool)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up session store")
	}

	// Initialize services
	locks := lock.New()
	gameService := service.NewGameService(games, users, wishes, locks, cfg.Santa)
	dialogService := service.NewDialogService(sessions, gameService, locks, cfg.Santa)

	// Initialize bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:        cfg,
		GameService:   gameService,
		DialogService: dialogService,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// buildSessionStore picks the session backend. The dialog state is small
// and rewritten on every step, so it can live in a different store than
// the games.
func buildSessionStore(ctx context.Context, cfg *config.Config, dbPool *db.Pool) (repository.SessionStore, error) {
	switch cfg.Storage.SessionStore {
	case config.DriverPostgres:
		if dbPool == nil {
			return nil, errors.New("postgres session store requires the postgres storage driver")
		}
		return repository.NewPostgresSessionStore(dbPool), nil
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
		return repository.NewRedisSessionStore(client), nil
	case config.DriverMemory:
		return repository.NewMemorySessionStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Storage.SessionStore)
	}
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: users
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			full_name VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	// Migration 2: games and participants
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS games (
			id VARCHAR(16) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			budget DOUBLE PRECISION NOT NULL,
			owner_id BIGINT NOT NULL,
			started BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS game_players (
			game_id VARCHAR(16) NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (game_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_game_players_user ON game_players(user_id);
	`)
	if err != nil {
		return err
	}

	// Migration 3: assignments
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS assignments (
			game_id VARCHAR(16) NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			giver_id BIGINT NOT NULL,
			receiver_id BIGINT NOT NULL,
			PRIMARY KEY (game_id, giver_id)
		);
	`)
	if err != nil {
		return err
	}

	// Migration 4: sessions and wishes
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			user_id BIGINT PRIMARY KEY,
			state JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS wishes (
			game_id VARCHAR(16) NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			wanted TEXT NOT NULL DEFAULT '',
			not_wanted TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (game_id, user_id)
		);
	`)
	if err != nil {
		return err
	}

	log.Info().Msg("Database migrations completed")
	return nil
}
