package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/skvortsov-lab/auth_service/internal/config"
	"github.com/skvortsov-lab/auth_service/internal/events"
	"github.com/skvortsov-lab/auth_service/internal/httpserver"
	"github.com/skvortsov-lab/auth_service/internal/logging"
	"github.com/skvortsov-lab/auth_service/internal/repo"
	"github.com/skvortsov-lab/auth_service/internal/service"
	"github.com/skvortsov-lab/auth_service/internal/tokens"
	"github.com/skvortsov-lab/auth_service/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	e := echo.New()
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gormDB, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	svc := &service.AuthService{
		Repo:     repo.GormRepo{DB: gormDB},
		Codec:    tokens.NewCodec(cfg.SigningKey, cfg.AccessTTL, cfg.RefreshTTL),
		Producer: producer,
	}

	e.Use(httpserver.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
	})

	go func() {
		if err := e.Start(cfg.AuthAddr); err != nil && err != http.ErrServerClosed {
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
