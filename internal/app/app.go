// Package app assembles the ZapCodes server from its components.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/zapcodes-dev/zapcodes/internal/billing"
	"github.com/zapcodes-dev/zapcodes/internal/config"
	"github.com/zapcodes-dev/zapcodes/internal/db"
	"github.com/zapcodes-dev/zapcodes/internal/githubapi"
	"github.com/zapcodes-dev/zapcodes/internal/guard"
	"github.com/zapcodes-dev/zapcodes/internal/http/api/admin"
	"github.com/zapcodes-dev/zapcodes/internal/http/api/front"
	"github.com/zapcodes-dev/zapcodes/internal/ledger"
	"github.com/zapcodes-dev/zapcodes/internal/llm"
	"github.com/zapcodes-dev/zapcodes/internal/ratelimit"
	"github.com/zapcodes-dev/zapcodes/internal/repairs"
	"github.com/zapcodes-dev/zapcodes/internal/scaffold"
	internalsettings "github.com/zapcodes-dev/zapcodes/internal/settings"
	"github.com/zapcodes-dev/zapcodes/internal/sites"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate opens the database and runs migrations.
func Migrate(configPath string) error {
	cfg, errLoad := config.Load(configPath)
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the API server and blocks until ctx is cancelled.
func RunServer(ctx context.Context, configPath string, portOverride int) error {
	cfg, errLoad := config.Load(configPath)
	if errLoad != nil {
		return errLoad
	}
	if portOverride > 0 {
		cfg.Port = portOverride
	}

	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errReload := internalsettings.Reload(conn); errReload != nil {
		return errReload
	}
	if errAdmin := EnsureSuperAdmin(conn); errAdmin != nil {
		return errAdmin
	}

	engine := BuildEngine(conn, cfg)

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return fmt.Errorf("shutdown: %w", errShutdown)
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// BuildEngine wires the services and registers every route group.
func BuildEngine(conn *gorm.DB, cfg *config.Config) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	ledgerSvc := ledger.NewService(conn)
	guardSvc := guard.NewService(conn, ledgerSvc)
	sync := billing.NewSynchronizer(conn)

	var groqClient, anthropicClient llm.Client
	if groq, errGroq := llm.NewGroqClient(llm.GroqOptions{APIKey: cfg.Providers.GroqAPIKey}); errGroq == nil {
		groqClient = groq
	}
	if anthropic, errAnthropic := llm.NewAnthropicClient(llm.AnthropicOptions{APIKey: cfg.Providers.AnthropicAPIKey}); errAnthropic == nil {
		anthropicClient = anthropic
	}
	router := llm.NewRouter(groqClient, anthropicClient)

	github := githubapi.NewClient(githubapi.Options{Token: cfg.Providers.GithubToken})

	var webhook *billing.WebhookHandler
	if cfg.Stripe.WebhookSecret != "" {
		webhook = billing.NewWebhookHandler(cfg.Stripe.WebhookSecret, sync)
	}

	front.RegisterFrontRoutes(engine, front.Dependencies{
		DB:          conn,
		JWT:         cfg.JWT,
		Ledger:      ledgerSvc,
		Repairs:     repairs.NewService(guardSvc, router, github),
		Scaffold:    scaffold.NewService(guardSvc, router),
		Sites:       sites.NewService(conn, guardSvc),
		Webhook:     webhook,
		RateLimiter: ratelimit.NewManager(nil, nil, nil),
	})
	admin.RegisterAdminRoutes(engine, conn, cfg.JWT, sync, ledgerSvc)

	return engine
}
