package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type GRPCClient struct {
	Target       string        `koanf:"target"`
	UseTLS       bool          `koanf:"use_tls"`
	CACertPath   string        `koanf:"ca_cert_path"`
	ServerName   string        `koanf:"server_name"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxRecvBytes int           `koanf:"max_recv_bytes"`
	MaxSendBytes int           `koanf:"max_send_bytes"`
	UserAgent    string        `koanf:"user_agent"`
}

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"mysql"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Cache struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"cache"`

	Checkout struct {
		// Atomic runs order, payment, outbox and cart clear in one database transaction.
		Atomic           bool             `koanf:"atomic"`
		CurrencyExponent int32            `koanf:"currency_exponent"`
		ZoneCharges      map[string]int64 `koanf:"zone_charges"`
		CartClearTTL     time.Duration    `koanf:"cart_clear_ttl"`
	} `koanf:"checkout"`

	Outbox struct {
		RelayEvery time.Duration `koanf:"relay_every"`
		Batch      int           `koanf:"batch"`
		Backoff    time.Duration `koanf:"backoff"`
	} `koanf:"outbox"`

	Rabbit struct {
		Enabled    bool   `koanf:"enabled"`
		URL        string `koanf:"url"`
		Exchange   string `koanf:"exchange"`
		Queue      string `koanf:"queue"`
		RoutingKey string `koanf:"routing_key"`
		Prefetch   int    `koanf:"prefetch"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Enabled  bool     `koanf:"enabled"`
		Brokers  []string `koanf:"brokers"`
		Topic    string   `koanf:"topic"`
		GroupID  string   `koanf:"group_id"`
		ClientID string   `koanf:"client_id"`
	} `koanf:"kafka"`

	Catalog struct {
		// Source is "mysql" or "grpc".
		Source string     `koanf:"source"`
		GRPC   GRPCClient `koanf:"grpc"`
	} `koanf:"catalog"`

	Security struct {
		JWTSecret string `koanf:"jwt_secret"`
		Issuer    string `koanf:"issuer"`
		Audience  string `koanf:"audience"`
		LoginURL  string `koanf:"login_url"`
	} `koanf:"security"`

	CORS struct {
		AllowOrigins []string `koanf:"allow_origins"`
	} `koanf:"cors"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix STOREFRONT_, nested with __)
	// e.g. STOREFRONT_MYSQL__DSN, STOREFRONT_SECURITY__JWT_SECRET
	if err := k.Load(env.Provider("STOREFRONT_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "STOREFRONT_")
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr required")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret required")
	}
	if c.Checkout.CurrencyExponent < 0 || c.Checkout.CurrencyExponent > 4 {
		return fmt.Errorf("checkout.currency_exponent must be between 0 and 4")
	}
	switch c.Catalog.Source {
	case "", "mysql":
	case "grpc":
		if c.Catalog.GRPC.Target == "" {
			return fmt.Errorf("catalog.grpc.target required when catalog.source is grpc")
		}
	default:
		return fmt.Errorf("catalog.source must be mysql or grpc, got %q", c.Catalog.Source)
	}
	if c.Rabbit.Enabled && c.Rabbit.URL == "" {
		return fmt.Errorf("rabbitmq.url required when rabbitmq is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic required when kafka is enabled")
	}
	return nil
}
