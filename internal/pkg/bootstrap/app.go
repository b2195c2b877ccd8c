// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"huerta/internal/pkg/logger"
	"huerta/internal/pkg/nacos"
	"huerta/internal/tracing"
)

type AppCtx struct {
	Router chi.Router
	Config *Config
	Nacos  *nacos.Client // 未启用 Nacos 时为 nil
}

// Worker 是随服务一起启停的后台任务，例如 Kafka 消费者。
type Worker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
}

// AppInfo 包含了启动一个服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Config           *Config
	RegisterHandlers func(appCtx AppCtx) // 每个服务注册自己独特的 HTTP 路由
	Workers          []Worker
	Closers          []func() error
}

// StartService 启动服务并阻塞，直到收到 SIGINT/SIGTERM 后优雅关停。
func StartService(info AppInfo) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Run(ctx, info)
}

// Run 在 ctx 结束前运行服务，ctx 结束后按注册的逆序清理资源。
func Run(ctx context.Context, info AppInfo) error {
	cfg := info.Config
	if cfg == nil {
		cfg = GetCurrentConfig()
	}
	log := logger.L()

	// 1. Tracer
	var shutdownTracer func(context.Context) error
	if cfg.Infra.Jaeger.Enabled {
		tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
		if err != nil {
			return errors.Wrap(err, "init tracer provider")
		}
		shutdownTracer = tp.Shutdown
	}

	// 2. Nacos（可选）
	var namingClient *nacos.Client
	if cfg.Infra.Nacos.Enabled {
		c, err := nacos.NewNacosClient(cfg.Infra.Nacos.Addrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			return errors.Wrap(err, "init nacos client")
		}
		namingClient = c
	}

	// 3. HTTP Server
	router := NewRouter(cfg)
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Router: router, Config: cfg, Nacos: namingClient})
	}
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range info.Workers {
		if err := w.Start(gctx); err != nil {
			return errors.Wrap(err, "start worker")
		}
	}
	g.Go(func() error {
		log.Info().Str("service", info.ServiceName).Int("port", cfg.App.Port).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrapf(err, "listen on %s", server.Addr)
		}
		return nil
	})

	// 4. 服务注册
	var ip string
	if namingClient != nil {
		var err error
		if ip, err = outboundIP(); err != nil {
			_ = server.Close()
			return errors.Wrap(err, "resolve outbound ip")
		}
		if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, cfg.App.Port); err != nil {
			_ = server.Close()
			return err
		}
	}

	// 5. 优雅关停，阻塞直到收到退出信号或某个组件失败
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Str("service", info.ServiceName).Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// a. 先从注册中心摘除，避免新流量进入
		if namingClient != nil {
			if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, cfg.App.Port); err != nil {
				log.Error().Err(err).Msg("deregister from nacos")
			}
		}
		// b. 关闭 HTTP 服务器
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown http server")
		}
		// c. 停止后台任务
		for i := len(info.Workers) - 1; i >= 0; i-- {
			info.Workers[i].Stop(shutdownCtx)
		}
		for i := len(info.Closers) - 1; i >= 0; i-- {
			if err := info.Closers[i](); err != nil {
				log.Error().Err(err).Msg("close resource")
			}
		}
		// d. 最后刷新 Tracer 缓冲
		if shutdownTracer != nil {
			if err := shutdownTracer(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("shutdown tracer provider")
			}
		}
		log.Info().Str("service", info.ServiceName).Msg("gracefully shut down")
		return nil
	})
	return g.Wait()
}

// NewRouter 创建带通用中间件、健康检查和指标端点的路由。
func NewRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger)
	r.Use(chimiddleware.Recoverer)
	if cfg.App.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.App.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.App.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", APIKeyHeader, "traceparent", "baggage"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
