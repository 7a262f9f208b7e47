package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httpadp "invoice-financer/internal/adapter/http"
	idemp "invoice-financer/internal/adapter/middleware"
	"invoice-financer/internal/adapter/repository/mysql"
	"invoice-financer/internal/config"
	"invoice-financer/internal/infrastructure/cache"
	"invoice-financer/internal/infrastructure/db"
	"invoice-financer/internal/logging"
	"invoice-financer/internal/usecase/ledger"
	"invoice-financer/internal/usecase/loan"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(cfg.Logging)

	if err := cfg.Validate(); err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg.MySQLDSN(), log)
	if err != nil {
		log.Error("mysql", "err", err)
		os.Exit(1)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Error("migrate", "err", err)
		os.Exit(1)
	}
	rdb, err := cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Error("redis", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	repos := mysql.NewRepos(gdb)
	vaults := httpadp.NewVaultHandler(ledger.NewUsecase(repos, mysql.NewGormUoW(gdb), log))
	loans := httpadp.NewLoanHandler(loan.NewUsecase(repos))

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Logger(), middleware.Recover())

	ttl := time.Duration(cfg.IdempTTLSecs) * time.Second
	httpadp.Register(e, httpadp.NewHandler(), vaults, loans, idemp.IdempotencyMiddleware(rdb, ttl, log))

	go func() {
		addr := ":" + cfg.AppPort
		log.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdown); err != nil {
		log.Error("shutdown", "err", err)
	}
}
