package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	apihandlers "github.com/Brownie44l1/lumistore/internal/api/handlers"
	"github.com/Brownie44l1/lumistore/internal/config"
	"github.com/Brownie44l1/lumistore/internal/db"
	"github.com/Brownie44l1/lumistore/internal/handlers"
	"github.com/Brownie44l1/lumistore/internal/logging"
	"github.com/Brownie44l1/lumistore/internal/mailer"
	"github.com/Brownie44l1/lumistore/internal/metrics"
	"github.com/Brownie44l1/lumistore/internal/models"
	"github.com/Brownie44l1/lumistore/internal/panel"
	"github.com/Brownie44l1/lumistore/internal/payment"
	"github.com/Brownie44l1/lumistore/internal/ratelimit"
	"github.com/Brownie44l1/lumistore/internal/repository"
	"github.com/Brownie44l1/lumistore/internal/service"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	// 2. Initialize database connection
	pool, err := db.NewPool(ctx, cfg.DBUrl, db.WithConns(cfg.DBMaxConns, cfg.DBMinConns))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("database connected")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	checks := map[string]apihandlers.Pinger{
		"database": apihandlers.PingFunc(pool.Ping),
	}

	// 3. Outbound integrations
	var sender mailer.Sender
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPTLSMode, log)
	} else {
		log.Warn().Msg("SMTP_HOST not set, emails are written to the log")
		sender = mailer.NewLogSender(log)
	}
	emails := service.NewEmailService(sender, "Lumistore", log)

	var limiter ratelimit.Limiter = ratelimit.Noop{}
	if cfg.RedisAddr != "" {
		client, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		limiter = ratelimit.NewRedisLimiter(client, "lumistore:", cfg.OTPResendLimit, cfg.OTPResendWindow)
		checks["redis"] = apihandlers.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	var gateway interface {
		service.PaymentGateway
		service.ChannelLister
	} = payment.Disabled{}
	if cfg.PaymentsEnabled() {
		gateway = payment.NewIPaymuClient(cfg.IPaymuVA, cfg.IPaymuAPIKey, cfg.IPaymuEnv, payment.WithTimeout(cfg.IPaymuTimeout))
	} else {
		log.Warn().Msg("IPAYMU_VA or IPAYMU_API_KEY not set, checkout is disabled")
	}
	verifier := payment.NewVerifier(cfg.IPaymuVA, cfg.IPaymuAPIKey)

	var provisioner service.Provisioner
	if cfg.AAPanelURL != "" {
		provisioner = panel.NewAAPanelClient(cfg.AAPanelURL, cfg.AAPanelAPIKey, cfg.AAPanelPHPVersion, cfg.AAPanelTimeout)
	}

	// 4. Initialize layers
	userRepo := repository.NewUserRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	subRepo := repository.NewSubscriptionRepository(pool)
	verificationRepo := repository.NewVerificationRepository(pool)

	otpService := service.NewOTPService(verificationRepo, emails, models.OTPPolicy{
		CodeTTL:         cfg.OTPCodeTTL,
		LockoutDuration: cfg.OTPLockout,
		MaxAttempts:     cfg.OTPMaxAttempts,
	}, log)
	resetService := service.NewResetService(userRepo, emails, cfg.AppURL, cfg.ResetTokenTTL, log)
	authService := service.NewAuthService(userRepo, otpService, resetService, emails, limiter, cfg.JWTSecret, log)

	activator := service.NewSubscriptionActivator(subRepo, provisioner, log)
	orderService := service.NewOrderService(orderRepo, gateway, verifier, activator, cfg.AppURL, log)
	channelService := service.NewChannelService(gateway, cfg.ChannelsCacheTTL, log)

	// 5. Setup Gin router
	router := newRouter(log)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	apihandlers.NewHealthHandler(Version, checks).RegisterRoutes(router)
	handlers.NewAuthHandler(authService, cfg.JWTSecret).RegisterRoutes(router)
	handlers.NewOrderHandler(orderService, authService, cfg.JWTSecret).RegisterRoutes(router)
	handlers.NewPaymentHandler(orderService, channelService).RegisterRoutes(router)

	// 6. Start server with graceful shutdown
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Str("version", Version).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server exited")
	return nil
}

func newRouter(log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), handlers.RequestID(), handlers.RequestLogger(log))
	return router
}
