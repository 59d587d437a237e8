package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/errs"
)

const envPrefix = "FSE"

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Export   ExportConfig   `mapstructure:"export"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type ScraperConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MinDelay     time.Duration `mapstructure:"min_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	UserAgent    string        `mapstructure:"user_agent"`
	ProfilesFile string        `mapstructure:"profiles_file"`
	Only         []string      `mapstructure:"only"`
}

type ExportConfig struct {
	CSVPath  string `mapstructure:"csv_path"`
	XLSXPath string `mapstructure:"xlsx_path"`
	PDFPath  string `mapstructure:"pdf_path"`
}

type HTTPConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RateLimit      string        `mapstructure:"rate_limit"`
	ScrapeInterval time.Duration `mapstructure:"scrape_interval"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type CacheConfig struct {
	// Driver is "sqlite" (the events database) or "redis".
	Driver string      `mapstructure:"driver"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Namespace string `mapstructure:"namespace"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn(logCtx, "load .env failed", slog.Any("err", errs.Loggable(err)))
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case configFile == "" && errors.As(err, &notFound):
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		case configFile != "" && errors.Is(err, fs.ErrNotExist):
			logging.Warn(logCtx, "config file missing, fallback to defaults and env", slog.String("path", configFile))
		default:
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	// AutomaticEnv does not split list values for keys absent from the file.
	if raw := v.GetString("scraper.only"); raw != "" && len(cfg.Scraper.Only) <= 1 {
		cfg.Scraper.Only = splitList(raw)
	}
	if raw := v.GetString("kafka.brokers"); raw != "" && len(cfg.Kafka.Brokers) <= 1 {
		cfg.Kafka.Brokers = splitList(raw)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.Bool("nats_enabled", cfg.NATS.URL != ""),
		slog.Bool("kafka_enabled", len(cfg.Kafka.Brokers) > 0),
		slog.String("cache_driver", cfg.Cache.Driver),
	)

	return cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if c.Scraper.Timeout <= 0 {
		return errors.New("scraper.timeout must be positive")
	}
	if c.Scraper.MinDelay < 0 || c.Scraper.MaxDelay < c.Scraper.MinDelay {
		return errors.New("scraper.max_delay must not be below scraper.min_delay")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errs.Wrap(err, "log.level")
	}
	switch strings.ToLower(c.Cache.Driver) {
	case "", "sqlite":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			return errors.New("cache.redis.addr is required for the redis cache")
		}
	default:
		return fmt.Errorf("unsupported cache.driver %q", c.Cache.Driver)
	}
	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		return errors.New("kafka.topic is required when kafka.brokers is set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "freestylecal")
	v.SetDefault("app.env", "local")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/eventos_freestyle.db")
	v.SetDefault("scraper.timeout", 10*time.Second)
	v.SetDefault("scraper.min_delay", time.Second)
	v.SetDefault("scraper.max_delay", 3*time.Second)
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("scraper.profiles_file", "")
	v.SetDefault("scraper.only", []string{})
	v.SetDefault("export.csv_path", "data/eventos_freestyle.csv")
	v.SetDefault("export.xlsx_path", "")
	v.SetDefault("export.pdf_path", "")
	v.SetDefault("http.addr", ":5000")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.rate_limit", "120-M")
	v.SetDefault("http.scrape_interval", time.Duration(0))
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "freestylecal.runs")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "freestylecal.runs")
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.namespace", "freestylecal")
}

func splitList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
