package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ai-todo/internal/auth"
	"ai-todo/internal/bot"
	"ai-todo/internal/config"
	"ai-todo/internal/handlers"
	"ai-todo/internal/logger"
	"ai-todo/internal/realtime"
	"ai-todo/internal/repository"
	"ai-todo/internal/routes"
	"ai-todo/internal/service"
	"ai-todo/internal/translator"
)

func serveCmd() *cobra.Command {
	var addr string
	var noBot bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the Telegram bot",
		Long: `Start the HTTP API. The Telegram bot runs alongside it when
TELEGRAM_TOKEN is set.

Examples:
  aitodo serve
  aitodo serve --addr :8080 --no-bot`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			if noBot {
				cfg.TelegramToken = ""
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	cmd.Flags().BoolVar(&noBot, "no-bot", false, "do not start the Telegram bot")
	return cmd
}

func runServe(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New("ai-todo", cfg.LogLevel)

	db, err := repository.NewDB(cfg.Database.Driver, cfg.Database.URL, log)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	store := repository.NewStore(db)

	client := translator.NewClient(translator.Config{
		BaseURL: cfg.Translator.BaseURL,
		APIKey:  cfg.Translator.APIKey,
		Model:   cfg.Translator.Model,
		Timeout: cfg.Translator.Timeout,
	})
	if cfg.Translator.APIKey == "" {
		log.Warn("XAI_API_KEY is not set; natural-language commands will fail")
	}

	hub := realtime.NewHub(log, allowOrigin(cfg.CORSOrigins))

	userSvc := service.NewUserService(store)
	taskSvc := service.NewTaskService(store, log)
	taskSvc.SetListener(hub)
	commandSvc := service.NewCommandService(taskSvc, client, log)
	categorySvc := service.NewCategoryService(store, log)
	summarySvc := service.NewSummaryService(taskSvc)

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	gin.SetMode(gin.ReleaseMode)
	router := routes.NewRouter(routes.Handlers{
		Auth:       handlers.NewAuthHandler(userSvc, issuer),
		Tasks:      handlers.NewTaskHandler(taskSvc, commandSvc),
		Categories: handlers.NewCategoryHandler(categorySvc),
		Stream:     handlers.NewStreamHandler(hub, taskSvc, log),
	}, issuer, log)

	c := cors.New(corsOptions(cfg.CORSOrigins))

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      c.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Translator.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.TelegramToken != "" {
		startBot(ctx, cfg.TelegramToken, bot.Services{
			Users:      userSvc,
			Tasks:      taskSvc,
			Commands:   commandSvc,
			Categories: categorySvc,
			Summary:    summarySvc,
		}, log)
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

// startBot runs the Telegram bot in the background. A bot that fails to
// start is logged and the HTTP API keeps serving.
func startBot(ctx context.Context, token string, svc bot.Services, log *logrus.Logger) {
	telegramBot, err := bot.New(token, svc, log)
	if err != nil {
		log.WithError(err).Error("telegram bot disabled")
		return
	}
	go func() {
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("telegram bot stopped")
		}
	}()
}

// corsOptions allows credentials only for an explicit origin list; with a
// wildcard any site could make credentialed requests.
func corsOptions(origins []string) cors.Options {
	credentials := len(origins) > 0
	for _, o := range origins {
		if o == "*" {
			credentials = false
		}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: credentials,
	}
}

// allowOrigin mirrors the CORS origin list for websocket upgrades.
func allowOrigin(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return nil
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
