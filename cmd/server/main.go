package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/stripe/stripe-go/v82"

	"github.com/iliyamo/online-cinema/internal/auth"
	"github.com/iliyamo/online-cinema/internal/config"
	"github.com/iliyamo/online-cinema/internal/database"
	"github.com/iliyamo/online-cinema/internal/email"
	"github.com/iliyamo/online-cinema/internal/handler"
	"github.com/iliyamo/online-cinema/internal/middleware"
	"github.com/iliyamo/online-cinema/internal/queue"
	"github.com/iliyamo/online-cinema/internal/repository"
	"github.com/iliyamo/online-cinema/internal/router"
	"github.com/iliyamo/online-cinema/internal/service"
	"github.com/iliyamo/online-cinema/internal/worker"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	users := repository.NewUserRepo(db)
	ephemeral := repository.NewEphemeralTokenRepo(db)
	refresh := repository.NewRefreshTokenRepo(db)
	movies := repository.NewMovieRepo(db)
	reviews := repository.NewReviewRepo(db)
	orders := repository.NewOrderRepo(db)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		hash, err := auth.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("admin seed: %v", err)
		}
		if err := users.EnsureAdmin(ctx, cfg.AdminEmail, hash); err != nil {
			log.Fatalf("admin seed: %v", err)
		}
	}

	stripe.Key = cfg.StripeSecretKey

	tokens := auth.NewTokenManager(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTLMin, cfg.LoginTimeDays)
	publisher := queue.NewEmailPublisher()
	accounts := service.NewAccountService(users, ephemeral, refresh, tokens, publisher, cfg.BaseURL, cfg.BcryptCost)

	// Background workers: SMTP delivery off the queue and the hourly sweep
	// of expired activation/reset tokens.
	mailer := email.NewSender(email.Config{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		Username: cfg.EmailUser,
		Password: cfg.EmailPassword,
		UseTLS:   cfg.EmailUseTLS,
		From:     cfg.EmailFrom,
	})
	go func() {
		if err := queue.StartEmailConsumer(mailer); err != nil {
			log.Printf("email consumer stopped: %v", err)
		}
	}()
	go worker.StartTokenSweeper(ctx, ephemeral, time.Hour)

	rdb := config.NewRedisClient()
	rateCfg := config.LoadRateLimitConfig()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Deps{
		Accounts:       handler.NewAccountHandler(accounts),
		Movies:         handler.NewMovieHandler(movies, reviews),
		Genres:         handler.NewEntityHandler(repository.NewGenreRepo(db), "genres"),
		Stars:          handler.NewEntityHandler(repository.NewStarRepo(db), "stars"),
		Directors:      handler.NewEntityHandler(repository.NewDirectorRepo(db), "directors"),
		Certifications: handler.NewEntityHandler(repository.NewCertificationRepo(db), "certifications"),
		Payments:       handler.NewPaymentHandler(orders, movies, cfg.BaseURL, cfg.StripeWebhookSecret),
		Auth:           middleware.Auth(tokens, users),
		RateLimit:      middleware.RateLimit(rateCfg, rdb),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
