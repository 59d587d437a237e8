package bootstrap

import (
	"context"
	"log/slog"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"gorm.io/gorm"

	"freestylecal/internal/bootstrap/config"
	"freestylecal/internal/bootstrap/database"
	"freestylecal/internal/bootstrap/logging"
	cacheinfra "freestylecal/internal/infrastructure/cache"
	"freestylecal/internal/infrastructure/httpfetch"
	"freestylecal/internal/infrastructure/metrics"
	"freestylecal/internal/infrastructure/notify"
	sqliterepo "freestylecal/internal/infrastructure/persistence/sqlite/repository"
	"freestylecal/internal/infrastructure/scraper"
	"freestylecal/internal/ports"
	"freestylecal/internal/usecase/aggregation"
	"freestylecal/internal/usecase/catalog"
)

var Module = fx.Options(
	fx.WithLogger(provideFxLogger),
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewEventRepository,
			fx.As(new(ports.EventRepository)),
		),
	),
	fx.Provide(provideCache),
	fx.Provide(
		fx.Annotate(
			provideFetcher,
			fx.As(new(ports.PageFetcher)),
		),
	),
	fx.Provide(provideSources),
	fx.Provide(provideNotifier),
	fx.Provide(metrics.NewRecorder),
	fx.Provide(provideAggregation),
	fx.Provide(catalog.NewService),
	fx.Invoke(registerSchema),
)

func provideFxLogger(ctx context.Context) fxevent.Logger {
	logger := &fxevent.SlogLogger{Logger: logging.Logger(ctx)}
	logger.UseLogLevel(slog.LevelDebug)
	return logger
}

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideFetcher(cfg config.Config) *httpfetch.Client {
	return httpfetch.New(httpfetch.Options{
		Timeout:   cfg.Scraper.Timeout,
		UserAgent: cfg.Scraper.UserAgent,
	})
}

func provideSources(cfg config.Config, fetcher ports.PageFetcher) ([]ports.EventSource, error) {
	profiles, err := scraper.LoadProfiles(cfg.Scraper.ProfilesFile)
	if err != nil {
		return nil, err
	}
	profiles, err = scraper.SelectProfiles(profiles, cfg.Scraper.Only)
	if err != nil {
		return nil, err
	}
	return scraper.NewAdapters(profiles, fetcher, scraper.WithDelay(cfg.Scraper.MinDelay, cfg.Scraper.MaxDelay)), nil
}

// provideCache keeps run bookkeeping in the events database unless Redis
// is configured.
func provideCache(lc fx.Lifecycle, ctx context.Context, cfg config.Config, db *gorm.DB) (ports.Cache, error) {
	if !strings.EqualFold(cfg.Cache.Driver, "redis") {
		return cacheinfra.NewSQLiteCache(db), nil
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))
	client, err := cacheinfra.OpenRedis(logCtx, cfg.Cache.Redis)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})
	return cacheinfra.NewRedisCache(client, cfg.Cache.Redis.Namespace), nil
}

// provideNotifier publishes run notices to every configured broker.
func provideNotifier(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.Notifier, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	var notifiers notify.Fanout
	if cfg.NATS.URL != "" {
		natsNotifier, err := notify.Connect(logCtx, cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				natsNotifier.Close()
				return nil
			},
		})
		notifiers = append(notifiers, natsNotifier)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier, err := notify.NewKafka(logCtx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return kafkaNotifier.Close()
			},
		})
		notifiers = append(notifiers, kafkaNotifier)
	}

	switch len(notifiers) {
	case 0:
		return notify.Noop{}, nil
	case 1:
		return notifiers[0], nil
	default:
		return notifiers, nil
	}
}

func provideAggregation(
	repo ports.EventRepository,
	sources []ports.EventSource,
	cache ports.Cache,
	notifier ports.Notifier,
	recorder *metrics.Recorder,
) *aggregation.Service {
	return aggregation.NewService(repo, sources, cache, notifier, aggregation.WithObserver(recorder))
}

type appParams struct {
	fx.In

	Config      config.Config
	DB          *gorm.DB
	Events      ports.EventRepository
	Aggregation *aggregation.Service
	Catalog     *catalog.Service
	Metrics     *metrics.Recorder
}

func provideApp(p appParams) *App {
	return &App{
		Config:      p.Config,
		DB:          p.DB,
		Events:      p.Events,
		Aggregation: p.Aggregation,
		Catalog:     p.Catalog,
		Metrics:     p.Metrics,
	}
}

// registerSchema creates missing tables before any command touches the store.
func registerSchema(lc fx.Lifecycle, app *App) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return app.InitSchema(ctx)
		},
	})
}
