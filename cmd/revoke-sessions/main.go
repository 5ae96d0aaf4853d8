package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dimitrije/atlas-api/internal/config"
	"github.com/dimitrije/atlas-api/internal/database"
	"github.com/dimitrije/atlas-api/internal/logger"
	"github.com/dimitrije/atlas-api/internal/services"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: revoke-sessions <email>")
		os.Exit(1)
	}

	email := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true})
	log := logger.Get()

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	users := services.NewUserService(db, services.NewPasswordHasher(cfg.BcryptCost), cfg.AllowedSignupCodes)
	sessions := services.NewSessionService(db, cfg.Session.TTL, cfg.Session.RememberTTL)

	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			log.Fatal().Str("email", email).Msg("no user found with that email")
		}
		log.Fatal().Err(err).Msg("failed to look up user")
	}

	removed, err := sessions.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to revoke sessions")
	}

	fmt.Printf("Revoked %d session(s) for %s\n", removed, user.Email)
}
