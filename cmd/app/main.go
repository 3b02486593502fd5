package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"zapboard-backend/internal/common/config"
	"zapboard-backend/internal/common/logger"
	"zapboard-backend/internal/common/middleware"
	boardHTTP "zapboard-backend/internal/features/board/delivery/http"
	boardRedis "zapboard-backend/internal/features/board/repository/redis"
	boardService "zapboard-backend/internal/features/board/service"
	invoiceHTTP "zapboard-backend/internal/features/invoice/delivery/http"
	invoiceService "zapboard-backend/internal/features/invoice/service"
	walletHTTP "zapboard-backend/internal/features/wallet/delivery/http"
	walletService "zapboard-backend/internal/features/wallet/service"
	zapHTTP "zapboard-backend/internal/features/zap/delivery/http"
	"zapboard-backend/internal/features/zap/monitor"
	"zapboard-backend/internal/platform/redis"
	"zapboard-backend/internal/platform/relay"
	"zapboard-backend/internal/workers"
)

const serviceName = "zapboard-backend"

func main() {
	cfg := config.Load()

	logger.Init(serviceName, cfg.Debug)
	log := logger.With("main")

	log.Info().Bool("debug", cfg.Debug).Msg("Starting zapboard backend")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	redisClient, err := redis.Open(startupCtx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	log.Info().Msg("Redis connection established")

	pool := relay.New(cfg.Relay.URLs,
		time.Duration(cfg.Relay.ConnectTimeoutSec)*time.Second,
		logger.With("relay"))
	defer pool.Close()

	log.Info().Strs("relays", cfg.Relay.URLs).Msg("Relay pool started")

	boardRepository := boardRedis.NewBoardRepository(redisClient.Client)
	exploreRepository := boardRedis.NewExploreRepository(redisClient.Client)

	invoiceSvc := invoiceService.NewInvoiceService(
		&http.Client{Timeout: time.Duration(cfg.Invoice.CallbackTimeoutSec) * time.Second},
		false,
		time.Duration(cfg.Invoice.ResolveTimeoutSec)*time.Second,
		time.Duration(cfg.Invoice.CallbackTimeoutSec)*time.Second,
		logger.With("invoice"))

	boardSvc := boardService.NewBoardService(
		boardRepository, exploreRepository, pool, invoiceSvc,
		cfg.Relay.URLs,
		time.Duration(cfg.Relay.PublishTimeoutSec)*time.Second,
		time.Duration(cfg.Relay.FetchTimeoutSec)*time.Second,
		logger.With("board"))

	walletSvc := walletService.NewWalletService(pool,
		time.Duration(cfg.Wallet.ValidateTimeoutSec)*time.Second,
		logger.With("wallet"))

	receiptMonitor := monitor.New(pool, logger.With("monitor"))

	exploreWorker := workers.NewExploreWorker(pool, exploreRepository, logger.With("explore"))
	go exploreWorker.Start(rootCtx)

	log.Info().Msg("Services initialized")

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler(logger.With("http")))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Accept", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	setupRoutes(router, boardSvc, invoiceSvc, walletSvc, receiptMonitor, redisClient, pool)

	log.Info().Msg("Routes configured")

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the stream endpoint holds connections open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func setupRoutes(
	router *gin.Engine,
	boardSvc boardService.BoardService,
	invoiceSvc invoiceService.InvoiceService,
	walletSvc walletService.WalletService,
	receiptMonitor *monitor.Monitor,
	redisClient *redis.Client,
	pool *relay.Pool,
) {
	v1 := router.Group("/api/v1")
	{
		boardHTTP.NewBoardHandler(boardSvc).RegisterRoutes(v1)
		invoiceHTTP.NewInvoiceHandler(invoiceSvc, boardSvc).RegisterRoutes(v1)
		walletHTTP.NewWalletHandler(walletSvc).RegisterRoutes(v1)
		zapHTTP.NewStreamHandler(boardSvc, receiptMonitor, logger.With("stream")).RegisterRoutes(v1)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "redis unavailable",
				"details": err.Error(),
			})
			return
		}

		if pool.Connected() == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unready",
				"error":  "no relay connections",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
			"relays":    pool.Connected(),
		})
	})
}
