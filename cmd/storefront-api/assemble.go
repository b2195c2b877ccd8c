package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"huerta/internal/pkg/bootstrap"
	"huerta/internal/pkg/lock"
	"huerta/internal/pkg/logger"
	"huerta/internal/pkg/mq"
	"huerta/internal/pkg/push"
	"huerta/internal/pkg/storage"
	catalogapp "huerta/internal/service/catalog/application"
	catalogdomain "huerta/internal/service/catalog/domain"
	cataloginfra "huerta/internal/service/catalog/infrastructure"
	orderapp "huerta/internal/service/order/application"
	orderdomain "huerta/internal/service/order/domain"
	"huerta/internal/service/order/domain/port"
	orderinfra "huerta/internal/service/order/infrastructure"
	"huerta/internal/service/order/infrastructure/adapter"
	orderhttp "huerta/internal/service/order/interfaces"
	promoapp "huerta/internal/service/promotion/application"
	promodomain "huerta/internal/service/promotion/domain"
	promoinfra "huerta/internal/service/promotion/infrastructure"
	"huerta/internal/service/promotion/infrastructure/rule"
	"huerta/internal/zookeeper"
)

// minPendingTTL 是幂等键"处理中"状态的最短保留时间
const minPendingTTL = 30 * time.Second

type application struct {
	catalog    *catalogapp.CatalogService
	promotions *promoapp.PromotionService
	orders     *orderapp.OrderApplicationService
	hub        *push.Hub

	workers []bootstrap.Worker
	closers []func() error
}

type repositories struct {
	catalog    catalogdomain.Repository
	promotions promodomain.Repository
	orders     orderdomain.OrderRepository
	tx         storage.TxManager
}

// hubWorker 让直播推送 Hub 跟随服务启停
type hubWorker struct{ hub *push.Hub }

func (w hubWorker) Start(ctx context.Context) error {
	go w.hub.Run(ctx)
	return nil
}

func (hubWorker) Stop(context.Context) {}

// assemble 按配置创建存储、锁、幂等存储和通知通道，并组装三个服务。
func assemble(ctx context.Context, cfg *bootstrap.Config, tracer trace.Tracer) (*application, error) {
	app := &application{hub: push.NewHub()}
	app.workers = append(app.workers, hubWorker{hub: app.hub})

	repos, err := openStorage(cfg, app)
	if err != nil {
		return nil, err
	}

	locker, err := openLocker(cfg, app)
	if err != nil {
		return nil, err
	}

	engine, err := rule.NewCELRuleEngine()
	if err != nil {
		return nil, errors.Wrap(err, "init rule engine")
	}

	app.catalog = catalogapp.NewCatalogService(repos.catalog, repos.tx, locker, tracer)
	app.promotions = promoapp.NewPromotionService(repos.promotions, repos.tx, engine, app.catalog, tracer)
	if cfg.Storage.Seed {
		if err := app.catalog.Seed(ctx); err != nil {
			return nil, errors.Wrap(err, "seed catalog")
		}
		if err := app.promotions.Seed(ctx); err != nil {
			return nil, errors.Wrap(err, "seed promotions")
		}
	}

	idem, err := openIdempotencyStore(ctx, cfg, app)
	if err != nil {
		return nil, err
	}

	app.orders = orderapp.NewOrderApplicationService(
		repos.orders,
		repos.tx,
		adapter.NewCatalogAdapter(app.catalog),
		adapter.NewDiscountAdapter(app.promotions),
		idem,
		openNotifications(cfg, app, tracer),
		tracer,
		orderapp.Options{
			PriceTolerancePercent: cfg.Orders.PriceTolerancePercent,
			ProcessingTimeout:     cfg.Orders.ProcessingTimeout,
		},
	)
	return app, nil
}

func openStorage(cfg *bootstrap.Config, app *application) (*repositories, error) {
	log := logger.L()
	if cfg.Storage.Driver == bootstrap.StorageMemory {
		catalog := cataloginfra.NewMemoryRepository()
		promotions := promoinfra.NewMemoryRepository()
		orders := orderinfra.NewMemoryRepository()
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return &repositories{
			catalog:    catalog,
			promotions: promotions,
			orders:     orders,
			tx:         storage.NewMemoryTxManager(catalog, promotions, orders),
		}, nil
	}

	db, err := storage.OpenMySQL(cfg.Storage.MySQLDSN)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB")
	}
	app.closers = append(app.closers, sqlDB.Close)

	catalog := cataloginfra.NewGormRepository(db)
	promotions := promoinfra.NewGormRepository(db)
	orders := orderinfra.NewGormRepository(db)
	if cfg.Storage.AutoMigrate {
		for name, migrate := range map[string]func() error{
			"catalog":    catalog.AutoMigrate,
			"promotions": promotions.AutoMigrate,
			"orders":     orders.AutoMigrate,
		} {
			if err := migrate(); err != nil {
				return nil, errors.Wrapf(err, "migrate %s", name)
			}
		}
	}
	log.Info().Msg("connected to mysql")
	return &repositories{
		catalog:    catalog,
		promotions: promotions,
		orders:     orders,
		tx:         storage.NewGormTxManager(db),
	}, nil
}

func openLocker(cfg *bootstrap.Config, app *application) (lock.Locker, error) {
	zkCfg := cfg.Infra.Zookeeper
	if !zkCfg.Enabled {
		return lock.NewLocalLocker(), nil
	}
	conn, err := zookeeper.Connect(zkCfg.Servers, zkCfg.SessionTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "connect zookeeper")
	}
	app.closers = append(app.closers, func() error {
		conn.Close()
		return nil
	})
	logger.L().Info().Strs("servers", zkCfg.Servers).Msg("reorder lock backed by zookeeper")
	return zookeeper.NewLocker(conn), nil
}

func openIdempotencyStore(ctx context.Context, cfg *bootstrap.Config, app *application) (port.IdempotencyStore, error) {
	// 处理中的键只需要比一次下单的最长耗时活得久，进程崩溃后很快就能重试
	pendingTTL := max(3*cfg.Orders.ProcessingTimeout, minPendingTTL)
	redisCfg := cfg.Infra.Redis
	if !redisCfg.Enabled {
		return adapter.NewIdempotencyMemoryAdapter(cfg.Orders.IdempotencyTTL, pendingTTL), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis %s", redisCfg.Addr)
	}
	app.closers = append(app.closers, client.Close)
	return adapter.NewIdempotencyRedisAdapter(client, cfg.Orders.IdempotencyTTL, pendingTTL), nil
}

// openNotifications 启用 Kafka 时经由 topic 推送，并由消费者转发给后台直播；
// 否则直接推给进程内的 Hub。
func openNotifications(cfg *bootstrap.Config, app *application, tracer trace.Tracer) port.NotificationProducer {
	kafkaCfg := cfg.Infra.Kafka
	if !kafkaCfg.Enabled {
		return adapter.NewNotificationHubAdapter(app.hub)
	}
	writer := mq.NewKafkaWriter(kafkaCfg.Brokers, kafkaCfg.NotificationTopic)
	app.closers = append(app.closers, writer.Close)

	reader := mq.NewKafkaReader(kafkaCfg.Brokers, kafkaCfg.NotificationTopic, kafkaCfg.LiveFeedGroup)
	app.workers = append(app.workers, orderhttp.NewLiveFeedConsumer(reader, app.hub, tracer))
	return adapter.NewNotificationKafkaAdapter(writer)
}
