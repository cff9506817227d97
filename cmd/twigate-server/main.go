package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"
	"github.com/twigate/twigate/internal/boot"
	"github.com/twigate/twigate/internal/credstore"
	"github.com/twigate/twigate/internal/handlers"
	"github.com/twigate/twigate/internal/oplog"
	"github.com/twigate/twigate/internal/service/publish"
	"github.com/twigate/twigate/internal/session"
	"github.com/twigate/twigate/internal/twitter"
)

func logLevel(name string) log.Lvl {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return log.DEBUG
	case "WARN":
		return log.WARN
	case "ERROR":
		return log.ERROR
	default:
		return log.INFO
	}
}

func main() {
	config, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}
	log.SetLevel(logLevel(config.LogLevel))

	store, err := credstore.New(config)
	if err != nil {
		log.Fatalf("opening credential store: %+v", err)
	}

	opLog, err := oplog.Open(config)
	if err != nil {
		log.Fatalf("opening operation log: %+v", err)
	}
	defer opLog.Close()

	client := twitter.New(twitter.Config{
		Username: config.Twitter.Username,
		Email:    config.Twitter.Email,
		Password: config.Twitter.Password,
		Timeout:  config.AttemptTimeout(),
	})
	manager := session.New(client, store)
	publisher := publish.New(client, manager, opLog, config)

	// Warm the session; a failure here is retried on the first request.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := manager.EnsureAuthenticated(ctx); err != nil {
			log.Warnf("session warm-up failed, will retry on first request: %v", err)
		}
	}()

	if config.IsDevelopment() {
		closeWatch, err := store.Watch(manager.Reload)
		if err != nil {
			log.Warnf("watching cookie file: %v", err)
		} else {
			defer closeWatch()
		}
	}

	server := echo.New()
	server.HideBanner = true
	server.Use(middleware.BodyLimit("10M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddleware("twigate"))
	server.Use(middleware.Recover())

	server.Logger.SetLevel(logLevel(config.LogLevel))

	headers := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID}
	server.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: headers,
	}))

	server.GET("/", handlers.Root())
	server.GET("/health", handlers.Health(manager))
	server.POST("/api/tweet", handlers.CreateTweet(publisher))
	server.GET("/api/logs", handlers.Logs(opLog))

	go func() {
		metrics := echo.New()
		metrics.HideBanner = true
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(config.MetricsAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	go func() {
		if err := server.Start(config.Addr()); err != nil && err != http.ErrServerClosed {
			server.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		server.Logger.Fatal(err)
	}
}
