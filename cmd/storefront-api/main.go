// cmd/storefront-api/main.go
package main

import (
	"context"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"

	"huerta/internal/pkg/bootstrap"
	"huerta/internal/pkg/logger"
	cataloghttp "huerta/internal/service/catalog/interfaces"
	orderhttp "huerta/internal/service/order/interfaces"
	promohttp "huerta/internal/service/promotion/interfaces"
)

const serviceName = "storefront-api"

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("HUERTA_CONFIG"), "path to the YAML config file")
	pflag.Parse()

	cfg, err := bootstrap.Load(*configPath)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("load config")
	}
	logger.Init(serviceName, cfg.Log.Level, cfg.Log.Pretty)

	setupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := assemble(setupCtx, cfg, otel.Tracer(serviceName))
	cancel()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("assemble storefront-api")
	}

	info := bootstrap.AppInfo{
		ServiceName: serviceName,
		Config:      cfg,
		Workers:     app.workers,
		Closers:     app.closers,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			catalog := cataloghttp.NewCatalogHandler(app.catalog)
			promotions := promohttp.NewPromotionHandler(app.promotions)
			orders := orderhttp.NewOrderHandler(app.orders)

			appCtx.Router.Group(func(r chi.Router) {
				r.Use(bootstrap.Traced(serviceName))
				catalog.RegisterRoutes(r)
				promotions.RegisterRoutes(r)
				orders.RegisterRoutes(r)

				r.Group(func(r chi.Router) {
					r.Use(bootstrap.APIKeyAuth(appCtx.Config.App.AdminAPIKeys))
					catalog.RegisterAdminRoutes(r)
					promotions.RegisterAdminRoutes(r)
					orders.RegisterAdminRoutes(r)
					r.Get("/admin/live", app.hub.ServeWs)
				})
			})
		},
	}
	if err := bootstrap.StartService(info); err != nil {
		logger.L().Fatal().Err(err).Msg("storefront-api exited")
	}
}
