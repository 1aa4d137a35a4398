package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/config"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/notifier"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/queue"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/logger"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/redis"
)

func main() {
	if err := config.Load(argContainsEnvPath()); err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()

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
		Name:          cfg.EventStreamName,
		ConsumerGroup: cfg.EventConsumerGroup,
		ConsumerName:  cfg.EventConsumerName,
		MaxLen:        cfg.EventStreamMaxLen,
		ClaimMinIdle:  cfg.EventClaimMinIdle,
	})
	if err != nil {
		logger.Error("failed creating event queue", "error", err)
		return
	}

	idempotency := notifier.NewIdempotency(redisAdap, notifier.DefaultIdempotencyConfig())
	dispatcher := notifier.NewDispatcher(events, idempotency, cfg.EventDispatchWorkers, notifier.LogSender{})

	if err := dispatcher.Start(); err != nil {
		logger.Error("failed starting dispatcher", "error", err)
		return
	}
	logger.Info("notifier started",
		"stream", cfg.EventStreamName,
		"group", cfg.EventConsumerGroup,
		"workers", cfg.EventDispatchWorkers)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	dispatcher.Stop()
	logger.Info("notifier stopped")
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
