package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"madlen/internal/cache"
	"madlen/internal/config"
	"madlen/internal/db"
	"madlen/internal/events"
	"madlen/internal/openrouter"
	"madlen/internal/server"
)

var (
	serveAddr string
	serveDB   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat gateway",
	Long: `Start the HTTP gateway that lists free OpenRouter models, relays chat
completions and keeps the conversation history in SQLite.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "history database path (overrides server.db_path)")
	rootCmd.AddCommand(serveCmd)
}

// gateway holds everything serve owns and must release on exit
type gateway struct {
	handler http.Handler
	store   *db.Store
	cache   cache.Cache
}

func (g *gateway) Close() {
	if err := g.cache.Close(); err != nil {
		log.Printf("[serve] closing cache: %v", err)
	}
	if err := g.store.Close(); err != nil {
		log.Printf("[serve] closing store: %v", err)
	}
}

func newGateway(ctx context.Context, c *config.Config) (*gateway, error) {
	dbPath, err := c.DBPath()
	if err != nil {
		return nil, fmt.Errorf("resolving db path: %w", err)
	}
	store, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	log.Printf("[serve] history at %s", dbPath)

	or := c.OpenRouter
	upstream := openrouter.NewClient(openrouter.Options{
		APIKey:  or.APIKey,
		BaseURL: or.BaseURL,
		Referer: or.Referer,
		Title:   or.Title,
		Retry: openrouter.RetryConfig{
			MaxAttempts: or.RetryAttempts,
			BaseDelay:   time.Duration(or.RetryDelay) * time.Millisecond,
			MaxDelay:    10 * time.Second,
		},
		Timeout: time.Duration(or.RequestTimeout) * time.Second,
	})
	if !upstream.HasAPIKey() {
		log.Printf("[serve] OPEN_ROUTER_API_KEY is not set, chat requests will fail")
	}

	var modelCache cache.Cache = cache.NewMemory()
	if or.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, or.RedisURL)
		if err != nil {
			log.Printf("[serve] redis unavailable, using in-memory model cache: %v", err)
		} else {
			modelCache = rc
		}
	}

	srv := server.New(server.Options{
		Store:    store,
		Upstream: upstream,
		Cache:    modelCache,
		CacheTTL: time.Duration(or.ModelsCacheTTL) * time.Second,
		Events:   events.NewClient(c.Events.Endpoint),
		Origins:  c.Server.AllowedOrigins,
	})

	return &gateway{handler: srv.Router(), store: store, cache: modelCache}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveDB != "" {
		cfg.Server.DBPath = serveDB
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := newGateway(ctx, cfg)
	if err != nil {
		return err
	}
	defer gw.Close()

	httpServer := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     gw.handler,
		ReadTimeout: 15 * time.Second,
		// Completions may take the whole upstream timeout plus retries
		WriteTimeout: time.Duration(cfg.OpenRouter.RequestTimeout)*time.Second*time.Duration(max(cfg.OpenRouter.RetryAttempts, 1)) + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("[serve] shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[serve] shutdown: %v", err)
		}
	}()

	log.Printf("[serve] Madlen gateway ready on http://%s", cfg.Server.Addr)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
