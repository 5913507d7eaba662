// Package app wires the components together and owns process lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"chatrelay/internal/api"
	"chatrelay/internal/buffer"
	"chatrelay/internal/config"
	"chatrelay/internal/presence"
	"chatrelay/internal/query"
	"chatrelay/internal/relay"
	"chatrelay/internal/store"
	"chatrelay/internal/websocket"
)

// Application coordinates all system components. Construction follows the
// dependency order store → buffer → registry → relay → query → transport.
type Application struct {
	config     *config.Config
	store      *store.Store
	buffer     *buffer.Buffer
	registry   *presence.Registry
	relay      *relay.Router
	query      *query.Service
	wsHandler  *websocket.Handler
	apiServer  *api.Server
	httpServer *http.Server
}

// NewApplication builds a ready-to-start application. A durable store that
// fails to connect is not an error; the relay runs ephemeral-only.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	messageStore := store.Open(cfg.Database.Path)
	messageBuffer := buffer.New(cfg.Chat.BufferCapacity)
	registry := presence.NewRegistry()
	router := relay.NewRouter(registry)
	querySvc := query.NewService(messageStore, messageBuffer, registry, cfg.Chat.QueryLimit)

	wsHandler := websocket.NewHandler(registry, messageBuffer, messageStore, router, websocket.Options{
		ReadLimit:       cfg.WebSocket.ReadLimit,
		PingPeriod:      cfg.WebSocket.PingPeriod,
		WriteTimeout:    cfg.WebSocket.WriteTimeout,
		SendBuffer:      cfg.WebSocket.SendBuffer,
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		RateLimitBurst:  cfg.Chat.RateLimitBurst,
		RateLimitRefill: cfg.Chat.RateLimitRefill,
	})
	apiServer := api.NewServer(querySvc, registry, messageStore)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		store:      messageStore,
		buffer:     messageBuffer,
		registry:   registry,
		relay:      router,
		query:      querySvc,
		wsHandler:  wsHandler,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start begins serving and returns once the listener is up or startup
// failed.
func (app *Application) Start(ctx context.Context) error {
	log.Info().Str("addr", app.httpServer.Addr).Bool("durable", app.store.Available()).Msg("chatrelay starting")

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = app.store.Close()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Info().Msg("chatrelay started")
		return nil
	case <-ctx.Done():
		_ = app.store.Close()
		return ctx.Err()
	}
}

// Stop shuts the application down in reverse dependency order: listener,
// live connections, durable store.
func (app *Application) Stop(ctx context.Context) error {
	log.Info().Msg("chatrelay shutting down")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}

	for _, conn := range app.registry.Conns() {
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Msg("closing client connection")
		}
	}

	if err := app.store.Close(); err != nil {
		log.Error().Err(err).Msg("durable store shutdown")
	}

	log.Info().Msg("chatrelay stopped")
	return nil
}

// Addr returns the listen address.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
