package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/cryptofono/cryptofono/internal/account"
	"github.com/cryptofono/cryptofono/internal/config"
	"github.com/cryptofono/cryptofono/internal/http/middleware"
	"github.com/cryptofono/cryptofono/internal/logger"
	"github.com/cryptofono/cryptofono/internal/metrics"
	"github.com/cryptofono/cryptofono/internal/repository"
	"github.com/cryptofono/cryptofono/internal/ussd"
	"github.com/cryptofono/cryptofono/internal/wallet"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct{ e *echo.Echo }

// NewServer wires repositories, services and routes. The gateway posts to
// /ussd; /v1 carries the operator reporting API.
func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client, walletSvc *wallet.Service, accountSvc *account.Service) *Server {
	chTxRepo := repository.NewCHTransactionsRepository(clickhouseDB)

	router := ussd.NewRouter(accountSvc, walletSvc, logger.Log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// gateway callback, rate limited per phone number
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:phone:",
		Window:         time.Second,
		RetryAfterHint: true,
	})
	e.POST("/ussd", ussdHandler(router), rlMW)

	// operator reports
	v1 := e.Group("/v1", middleware.AdminKeyMiddleware(cfg.HTTP.AdminAPIKey))
	v1.GET("/reports/transactions", listTransactionsHandler(chTxRepo, cfg.Network))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
