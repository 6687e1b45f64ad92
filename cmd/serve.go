package cmd

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/commercegate/ms-go-dibs/app/controller"
	"github.com/commercegate/ms-go-dibs/app/gateway"
	"github.com/commercegate/ms-go-dibs/app/repository"
	"github.com/commercegate/ms-go-dibs/app/service"
	"github.com/commercegate/ms-go-dibs/app/types"
	"github.com/commercegate/ms-go-dibs/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for checkout forms, gateway callbacks, and payment operations.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, paymentService, cleanup := mustCreatePaymentService()
	defer cleanup()

	paymentController := controller.NewPaymentController(paymentService)
	e := setupHTTPServer(paymentController, cfg.App.APIKey)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(paymentController *controller.PaymentController, apiKey string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", paymentController.Health)

	// Shopper-facing and gateway-facing routes carry their own protection
	// (the MD5 signature on callbacks); only the operational endpoints sit
	// behind the API key.
	api := e.Group("/api/dibs")
	api.GET("/checkout/:orderId", paymentController.Checkout)
	api.POST("/callback", paymentController.Callback)

	admin := api.Group("", requireAPIKey(apiKey))
	admin.GET("/orders/:orderId", paymentController.GetOrder)
	admin.POST("/payments/:id/capture", paymentController.CapturePayment)
	admin.POST("/payments/:id/refund", paymentController.RefundPayment)
	admin.POST("/payments/:id/void", paymentController.VoidPayment)

	return e
}

func requireAPIKey(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if apiKey == "" {
				return ctx.JSON(http.StatusServiceUnavailable, &types.ErrorResponse{Error: "api key is not configured"})
			}
			provided := strings.TrimSpace(ctx.Request().Header.Get("X-Api-Key"))
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "invalid api key"})
			}
			return next(ctx)
		}
	}
}

func mustCreatePaymentService() (*config.Config, *service.PaymentService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	storeRepo := repository.NewStoreRepository(db)
	eventRepo := repository.NewPaymentEventRepository(db)

	dibsGateway := gateway.NewDibs(gateway.Config{
		MerchantID:    cfg.Dibs.MerchantID,
		MD5Key1:       cfg.Dibs.MD5Key1,
		MD5Key2:       cfg.Dibs.MD5Key2,
		APILogin:      cfg.Dibs.APILogin,
		APIPassword:   cfg.Dibs.APIPassword,
		RedirectURL:   cfg.Dibs.RedirectURL,
		AcceptURL:     cfg.Dibs.AcceptURL,
		CallbackURL:   cfg.Dibs.CallbackURL,
		FormDecorator: cfg.Dibs.FormDecorator,
		Mode:          cfg.Dibs.Mode,
		CaptureURL:    cfg.Dibs.CaptureURL,
		RefundURL:     cfg.Dibs.RefundURL,
		CancelURL:     cfg.Dibs.CancelURL,
		HTTPTimeout:   cfg.Dibs.HTTPTimeout,
	})

	paymentService := service.NewPaymentService(
		orderRepo,
		paymentRepo,
		storeRepo,
		eventRepo,
		dibsGateway,
		cfg.Payments,
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, paymentService, cleanup
}
