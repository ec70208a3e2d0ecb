package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	appsvc "contractrisk/internal/app"
	"contractrisk/internal/cache"
	"contractrisk/internal/config"
	"contractrisk/internal/model"
	mysqlClient "contractrisk/internal/platform/mysql"
	rabbitmqClient "contractrisk/internal/platform/rabbitmq"
	redisClient "contractrisk/internal/platform/redis"
	"contractrisk/internal/repository"
	"contractrisk/internal/session"
	"contractrisk/internal/worker"
)

const sessionSweepInterval = 15 * time.Minute

// App holds the process-wide dependencies. MySQL, Redis and MQConn are nil unless
// the configuration needs them.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Sessions session.Backend
	Events   appsvc.EventPublisher

	MySQL       *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	EventWorker *worker.SessionEventWorker

	StartedAt time.Time

	stopSweep context.CancelFunc
	sweepWG   sync.WaitGroup
}

func New(ctx context.Context, logger *slog.Logger) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Events:    appsvc.NopPublisher{},
		StartedAt: time.Now(),
	}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	if cfg.Session.Backend == config.SessionBackendMySQL || cfg.RabbitMQ.Enabled {
		db, err := mysqlClient.New(ctx, cfg)
		if err != nil {
			return err
		}
		a.MySQL = db
		if err := db.AutoMigrate(&model.BrowserSession{}, &model.SessionEvent{}); err != nil {
			return fmt.Errorf("auto migrate tables failed: %w", err)
		}
	}

	switch cfg.Session.Backend {
	case config.SessionBackendMemory:
		a.Sessions = session.NewMemoryBackend()
	case config.SessionBackendFile:
		backend, err := session.NewFileBackend(cfg.Session.FileDir)
		if err != nil {
			return err
		}
		a.Sessions = backend
	case config.SessionBackendRedis:
		client, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		a.Redis = client
		a.Sessions = cache.NewSessionCache(client, cfg.SessionTTL())
	case config.SessionBackendMySQL:
		repo := repository.NewSessionRepository(a.MySQL, cfg.SessionTTL())
		a.Sessions = repo
		a.startSweep(repo)
	}

	if cfg.RabbitMQ.Enabled {
		conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.SessionEventQueue)
		if err != nil {
			return err
		}
		a.MQConn = conn
		a.Events = rabbitmqClient.NewSessionEventPublisher(conn, cfg.RabbitMQ.SessionEventQueue)

		eventRepo := repository.NewSessionEventRepository(a.MySQL)
		a.EventWorker = worker.NewSessionEventWorker(conn, eventRepo, cfg.RabbitMQ.SessionEventQueue, a.Logger)
		if err := a.EventWorker.Start(ctx); err != nil {
			return fmt.Errorf("start session event worker failed: %w", err)
		}
	}

	a.Logger.Info("dependencies ready",
		"session_backend", cfg.Session.Backend,
		"rabbitmq", cfg.RabbitMQ.Enabled,
		"api", cfg.APIBaseURL(),
	)
	return nil
}

// startSweep periodically drops expired browser_sessions rows.
func (a *App) startSweep(repo *repository.SessionRepository) {
	ctx, cancel := context.WithCancel(context.Background())
	a.stopSweep = cancel
	a.sweepWG.Add(1)
	go func() {
		defer a.sweepWG.Done()
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := repo.DeleteExpired(ctx)
				if err != nil {
					a.Logger.Warn("sweep expired sessions failed", "error", err)
					continue
				}
				if n > 0 {
					a.Logger.Info("swept expired sessions", "count", n)
				}
			}
		}
	}()
}

func (a *App) Close() error {
	var closeErr error
	if a.stopSweep != nil {
		a.stopSweep()
		a.sweepWG.Wait()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.EventWorker != nil {
		a.EventWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
