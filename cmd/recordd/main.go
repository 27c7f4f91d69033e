// recordd serves the record API the remote task store talks to, for local
// development and tests.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/vibratodo/internal/logging"
	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/recordsvc"
)

func main() {
	logger, closer, err := logging.Init("recordd", model.LogConfig{Level: os.Getenv("LOG_LEVEL")})
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer closer.Close()

	var table recordsvc.Table = recordsvc.NewMemoryTable()
	if addr := os.Getenv("RECORDD_REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		table = recordsvc.NewRedisTable(rdb, os.Getenv("RECORDD_REDIS_PREFIX"))
		logger.WithField("addr", addr).Info("using redis table")
	}

	var auth *recordsvc.Auth
	apiKey := os.Getenv("RECORDD_API_KEY")
	secret := os.Getenv("RECORDD_JWT_SECRET")
	if apiKey != "" || secret != "" {
		auth = recordsvc.NewAuth(apiKey, []byte(secret))
	}

	e := recordsvc.New(table, auth, logger).NewEcho()
	e.Use(middleware.Recover())

	listenAddr := ":8090"
	if val, ok := os.LookupEnv("RECORDD_ADDR"); ok {
		listenAddr = val
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.WithField("addr", listenAddr).Info("recordd listening")
		if err := e.Start(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}
