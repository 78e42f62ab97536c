package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"comictracker/internal/activity"
	"comictracker/internal/anilist"
	"comictracker/internal/auth"
	"comictracker/internal/entries"
	"comictracker/internal/events"
	"comictracker/internal/export"
	"comictracker/internal/importer"
	"comictracker/pkg/database"
	"comictracker/pkg/utils"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := events.NewHub()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": hub.Count(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": hub.Count(),
		})
	})

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokens := auth.TokenService{
		Secret:           []byte(authCfg.SessionSecret),
		Issuer:           authCfg.Issuer,
		RememberDuration: authCfg.RememberDuration,
		SessionDuration:  authCfg.SessionDuration,
	}
	authHandler := auth.NewHandler(authCfg, tokens)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Everything else sits behind the session
	api := router.Group("/api")
	api.Use(auth.Middleware(tokens))

	activityRepo := activity.NewRepo(db)
	entriesRepo := entries.NewRepo(db)

	entriesHandler := entries.NewHandler(entriesRepo, activityRepo, hub)
	entriesHandler.RegisterRoutes(api)

	activityHandler := activity.NewHandler(activityRepo)
	activityHandler.RegisterRoutes(api)

	runsRepo := importer.NewRunRepo(db)
	imp := importer.New(entriesRepo, runsRepo, activityRepo, cfg.LockPath())
	importHandler := importer.NewHandler(imp, runsRepo, hub)
	importHandler.RegisterRoutes(api)

	exportHandler := export.NewHandler(export.NewBuilder(entriesRepo))
	exportHandler.RegisterRoutes(api)

	anilistClient := anilist.NewClient()
	anilistHandler := anilist.NewHandler(anilistClient, anilist.NewAutofiller(anilistClient, entriesRepo))
	anilistHandler.RegisterRoutes(api)

	router.GET("/ws", auth.Middleware(tokens), events.WSHandler(hub))

	httpSrv := &http.Server{
		Addr:    listenAddr(),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API server listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	log.Println("server stopped")
}

func listenAddr() string {
	if addr := os.Getenv("COMICTRACKER_ADDR"); addr != "" {
		return addr
	}
	return ":8080"
}
