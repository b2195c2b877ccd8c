// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory = "memory"
	StorageMySQL  = "mysql"
)

// Config 是整个服务的配置根，文件为 YAML，环境变量 HUERTA_* 可覆盖。
type Config struct {
	App     AppConfig     `yaml:"app"`
	Storage StorageConfig `yaml:"storage"`
	Infra   InfraConfig   `yaml:"infra"`
	Log     LogConfig     `yaml:"log"`
	Orders  OrdersConfig  `yaml:"orders"`
}

type AppConfig struct {
	Name           string        `yaml:"name"`
	Port           int           `yaml:"port"`
	AdminAPIKeys   []string      `yaml:"admin_api_keys"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	MySQLDSN    string `yaml:"mysql_dsn"`
	AutoMigrate bool   `yaml:"auto_migrate"`
	Seed        bool   `yaml:"seed"`
}

type InfraConfig struct {
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Nacos     NacosConfig     `yaml:"nacos"`
	Zookeeper ZookeeperConfig `yaml:"zookeeper"`
}

type JaegerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Brokers           []string `yaml:"brokers"`
	NotificationTopic string   `yaml:"notification_topic"`
	LiveFeedGroup     string   `yaml:"live_feed_group"`
}

type NacosConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addrs     string `yaml:"addrs"`
	Namespace string `yaml:"namespace"`
	Group     string `yaml:"group"`
}

type ZookeeperConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Servers        []string      `yaml:"servers"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type OrdersConfig struct {
	// PriceTolerancePercent 是客户端预期总价与服务端总价允许的最大偏差。
	PriceTolerancePercent float64       `yaml:"price_tolerance_percent"`
	IdempotencyTTL        time.Duration `yaml:"idempotency_ttl"`
	ProcessingTimeout     time.Duration `yaml:"processing_timeout"`
}

var currentConfig atomic.Pointer[Config]

// DefaultConfig 返回单机开发可直接运行的配置：内存存储，外部组件全部关闭。
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:           "storefront-api",
			Port:           8080,
			CORSOrigins:    []string{"*"},
			RequestTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{Driver: StorageMemory, Seed: true},
		Infra: InfraConfig{
			Jaeger: JaegerConfig{Endpoint: "http://localhost:14268/api/traces"},
			Redis:  RedisConfig{Addr: "localhost:6379"},
			Kafka: KafkaConfig{
				Brokers:           []string{"localhost:9092"},
				NotificationTopic: "order-notifications",
				LiveFeedGroup:     "storefront-live-feed",
			},
			Nacos:     NacosConfig{Addrs: "localhost:8848", Group: "DEFAULT_GROUP"},
			Zookeeper: ZookeeperConfig{Servers: []string{"localhost:2181"}, SessionTimeout: 5 * time.Second},
		},
		Log: LogConfig{Level: "info"},
		Orders: OrdersConfig{
			PriceTolerancePercent: 1,
			IdempotencyTTL:        24 * time.Hour,
			ProcessingTimeout:     10 * time.Second,
		},
	}
}

// Load 读取配置文件（可为空）并叠加环境变量，校验通过后设为当前配置。
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	currentConfig.Store(cfg)
	return cfg, nil
}

// GetCurrentConfig 返回最近一次成功加载的配置，未加载时返回默认配置。
func GetCurrentConfig() *Config {
	if cfg := currentConfig.Load(); cfg != nil {
		return cfg
	}
	return DefaultConfig()
}

// Validate 检查配置的一致性。
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return errors.Errorf("invalid app.port %d", c.App.Port)
	}
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageMySQL:
		if c.Storage.MySQLDSN == "" {
			return errors.New("storage.mysql_dsn is required when storage.driver is mysql")
		}
		if _, err := mysql.ParseDSN(c.Storage.MySQLDSN); err != nil {
			return errors.Wrap(err, "invalid storage.mysql_dsn")
		}
	default:
		return errors.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Orders.PriceTolerancePercent < 0 {
		return errors.New("orders.price_tolerance_percent must not be negative")
	}
	if c.Infra.Kafka.Enabled && len(c.Infra.Kafka.Brokers) == 0 {
		return errors.New("infra.kafka.brokers is required when kafka is enabled")
	}
	if c.Infra.Zookeeper.Enabled && len(c.Infra.Zookeeper.Servers) == 0 {
		return errors.New("infra.zookeeper.servers is required when zookeeper is enabled")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("HUERTA_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = port
		}
	}
	if v, ok := os.LookupEnv("HUERTA_ADMIN_API_KEYS"); ok {
		cfg.App.AdminAPIKeys = splitList(v)
	}
	cfg.Storage.Driver = getEnv("HUERTA_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.MySQLDSN = getEnv("HUERTA_MYSQL_DSN", cfg.Storage.MySQLDSN)
	cfg.Infra.Jaeger.Endpoint = getEnv("HUERTA_JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.Redis.Addr = getEnv("HUERTA_REDIS_ADDR", cfg.Infra.Redis.Addr)
	cfg.Infra.Nacos.Addrs = getEnv("HUERTA_NACOS_ADDRS", cfg.Infra.Nacos.Addrs)
	cfg.Infra.Nacos.Namespace = getEnv("HUERTA_NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	if v, ok := os.LookupEnv("HUERTA_KAFKA_BROKERS"); ok {
		cfg.Infra.Kafka.Brokers = splitList(v)
	}
	if v, ok := os.LookupEnv("HUERTA_ZK_SERVERS"); ok {
		cfg.Infra.Zookeeper.Servers = splitList(v)
	}
	cfg.Log.Level = getEnv("HUERTA_LOG_LEVEL", cfg.Log.Level)
}

// getEnv 从环境变量中读取配置，未设置时使用 fallback。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
