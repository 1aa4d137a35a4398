package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/config"
	gateway "github.com/abdurrahmanaziz/eksporyuk-sub039/internal/gateways"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/handlers"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/queue"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/repository"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/services"
	xhttp "github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/http"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/logger"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/pg"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/prom"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/redis"
)

func main() {
	if err := config.Load(argContainsEnvPath()); err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	settings := cfg.Snapshot()

	if err := prom.Create(cfg.AppHost, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to register metrics", "error", err)
		return
	}

	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Use(xhttp.TimeoutMiddleware(time.Second * 10))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     cfg.PostgresReadUser,
		Host:     cfg.PostgresReadHost,
		Port:     cfg.PostgresReadPort,
		Password: cfg.PostgresReadPassword,
		Database: cfg.PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     cfg.PostgresWriteUser,
		Host:     cfg.PostgresWriteHost,
		Port:     cfg.PostgresWritePort,
		Password: cfg.PostgresWritePassword,
		Database: cfg.PostgresWriteDatabase,
	}

	db, err := pg.OpenReadWrite(readConf, writeConf, cfg.AppEnv == "dev")
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewAdapter("default", cfg.RedisKeyPrefix, &redis.Options{
		Addrs:    []string{cfg.RedisAddr},
		DB:       cfg.RedisDatabase,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	events, err := queue.New(redisAdap, queue.Config{
		Name:   cfg.EventStreamName,
		MaxLen: cfg.EventStreamMaxLen,
	})
	if err != nil {
		logger.Error("failed creating event queue", "error", err)
		return
	}

	transactionRepo := repository.NewTransactionRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	affiliateRepo := repository.NewAffiliateRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	userRepo := repository.NewUserRepository(db)

	disburser := gateway.NewDisbursementClient(
		cfg.DisbursementBaseURL, cfg.DisbursementAPIKey, cfg.DisbursementTimeout)

	affiliateService := services.NewAffiliateService(affiliateRepo)
	commissionService := services.NewCommissionService(affiliateRepo, walletRepo, userRepo, db, settings)
	entitlementService := services.NewEntitlementService(membershipRepo, userRepo)
	settlementService := services.NewSettlementService(
		transactionRepo, membershipRepo, affiliateService, affiliateRepo,
		commissionService, entitlementService, events, redisAdap)
	walletService := services.NewWalletService(walletRepo)
	payoutService := services.NewPayoutService(
		payoutRepo, walletRepo, userRepo, affiliateRepo, disburser, events, db, settings)

	settlementHandler := handlers.NewSettlementHandler(settlementService, affiliateService)
	walletHandler := handlers.NewWalletHandler(walletService, payoutService)
	webhookHandler := handlers.NewWebhookHandler(payoutService, settings.WebhookCallbackToken)
	healthHandler := handlers.NewHealthHandler()

	g := s.Router.Group("/api/v1")
	handlers.RegisterSettlementRoutes(g, settlementHandler)
	handlers.RegisterWalletRoutes(g, walletHandler)
	handlers.RegisterWebhookRoutes(g, webhookHandler)
	handlers.RegisterHealthRoutes(s.Router, healthHandler)
	s.Router.GET("/metrics", prom.Handler())

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	s.Shutdown()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
