package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/epessoa/epessoa/internal/config"
	"github.com/epessoa/epessoa/internal/db"
	"github.com/epessoa/epessoa/internal/es"
	"github.com/epessoa/epessoa/internal/events"
	"github.com/epessoa/epessoa/internal/govbr"
	"github.com/epessoa/epessoa/internal/httpserver"
	"github.com/epessoa/epessoa/internal/logging"
	"github.com/epessoa/epessoa/internal/repo"
	"github.com/epessoa/epessoa/internal/seed"
	"github.com/epessoa/epessoa/internal/service"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	database, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	if cfg.SeedUsers {
		seedCtx := logging.IntoContext(context.Background(), logger)
		if err := seed.EnsureDefaultUsers(seedCtx, database); err != nil {
			log.Fatalf("seed error: %v", err)
		}
	}

	producer := events.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	var esClient *elasticsearch.Client
	if cfg.ESURL != "" {
		esClient, err = es.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			logger.Warn("elasticsearch unavailable, search falls back to the database", "error", err)
			esClient = nil
		}
	}

	gormRepo := repo.GormRepo{DB: database}

	authSvc := &service.AuthService{
		Repo:          gormRepo,
		Producer:      producer,
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}

	pessoaSvc := &service.PessoaService{
		Repo:     gormRepo,
		Producer: producer,
		ES:       esClient,
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc:             authSvc,
			Govbr:           govbr.New(cfg.Govbr),
			SuccessRedirect: cfg.Govbr.SuccessRedirect,
		},
		PessoaHandler: &httpserver.PessoaHTTP{Svc: pessoaSvc},
		AccessSecret:  cfg.JWTAccessSecret,
		Logger:        logger,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
