package main

import (
	"log"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/example/fueldispenser/internal/config"
	applog "github.com/example/fueldispenser/internal/log"
	"github.com/example/fueldispenser/internal/server"
)

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applog.Init(false)
	defer func() { _ = zap.L().Sync() }()

	app := iris.New()
	server.RegisterAdminRoutes(app, cfg)

	addr := cfg.AdminServer.Addr()
	zap.L().Info("admin api listening", zap.String("addr", addr))
	if err := app.Run(iris.Addr(addr), iris.WithoutServerError(iris.ErrServerClosed)); err != nil {
		zap.L().Fatal("admin api failed", zap.Error(err))
	}
}
