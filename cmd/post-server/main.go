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
	"uk.co.dudmesh.postfeed/internal/boot"
	"uk.co.dudmesh.postfeed/internal/handlers"
	"uk.co.dudmesh.postfeed/internal/service/post"
	"uk.co.dudmesh.postfeed/internal/store"
)

func main() {
	config, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}

	if err := os.MkdirAll(config.DataDirectory(), 0o755); err != nil {
		log.Fatalf("creating data directory: %+v", err)
	}

	db, err := store.NewPostStore(config.DatabasePath())
	if err != nil {
		log.Fatalf("opening post store: %+v", err)
	}
	defer db.Close()

	postService := post.New(db)
	if config.Server.SeedFile != "" {
		seed, err := post.LoadSeed(config.Server.SeedFile)
		if err != nil {
			log.Fatalf("loading seed: %+v", err)
		}
		n, err := postService.Seed(seed)
		if err != nil {
			log.Fatalf("seeding posts: %+v", err)
		}
		log.Infof("seeded %d posts", n)
	}

	if config.IsProduction() && config.Server.TokenSecret == "dev-secret" {
		log.Fatalf("TOKEN_SECRET must be set in production")
	}

	server := echo.New()
	server.Use(middleware.BodyLimit("1M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddleware("postfeed"))
	server.Use(middleware.Recover())

	server.Logger.SetLevel(log.INFO)

	headers := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization}
	server.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(config.Server.Origins, ","),
		AllowHeaders: headers,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))

	handlers.Register(server.Group(config.Server.BasePath), postService, config.Server.TokenSecret)

	go func() {
		metrics := echo.New()
		metrics.HideBanner = true
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(":" + config.Server.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	go func() {
		if err := server.Start(":" + config.Server.Port); err != nil && err != http.ErrServerClosed {
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
