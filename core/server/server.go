package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fairmeet/core/cache"
	"fairmeet/core/config"
	"fairmeet/core/database"
	"fairmeet/core/logger"
	"fairmeet/core/middleware"
	"fairmeet/core/queue"
	"fairmeet/core/tracing"
	"fairmeet/modules/availability"
	"fairmeet/modules/calendar"
	"fairmeet/modules/meeting"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

// deps holds the infrastructure shared by the HTTP server and the worker.
type deps struct {
	cfg      *config.Config
	db       database.Database
	redis    *redis.Client
	cache    cache.Cache
	queue    *queue.Client
	shutdown func(context.Context) error
}

func bootstrap(ctx context.Context) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Error("Tracing setup failed, continuing without export", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	db, err := database.InitDB(database.DatabaseConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		_ = db.SQLx().Close()
		return nil, err
	}

	return &deps{
		cfg:   cfg,
		db:    db,
		redis: redisClient,
		cache: cache.NewRedisCache(redisClient),
		queue: queue.NewClient(queue.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}),
		shutdown: shutdownTracing,
	}, nil
}

func (d *deps) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := d.shutdown(ctx); err != nil {
		logger.Error("Tracing shutdown error", "error", err)
	}
	if err := d.queue.Close(); err != nil {
		logger.Error("Queue client close error", "error", err)
	}
	if err := d.redis.Close(); err != nil {
		logger.Error("Redis close error", "error", err)
	}
	if err := d.db.SQLx().Close(); err != nil {
		logger.Error("Database close error", "error", err)
	}
}

// NewEcho builds the HTTP router with every module registered.
func NewEcho(db database.Database, c cache.Cache, enqueuer queue.Enqueuer, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	mw := middleware.NewMiddleware(cfg.JWT.Secret, cfg.JWT.Issuer)
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.CORS())
	e.Use(mw.RequestLogger())

	e.GET("/health", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	availability.Init(e, db, mw)
	calendar.Init(e, db, mw, c, enqueuer)
	meeting.Init(e, db, mw, c)

	return e
}

// Run serves the HTTP API until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context) error {
	d, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	e := NewEcho(d.db, d.cache, d.queue, d.cfg)
	addr := fmt.Sprintf("%s:%d", d.cfg.Server.Host, d.cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", "error", err)
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}

// RunWorker processes background tasks until the process receives SIGINT or SIGTERM.
func RunWorker(ctx context.Context, concurrency int) error {
	d, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	w := queue.NewWorker(queue.RedisConfig{
		Addr:     d.cfg.Redis.Addr,
		Password: d.cfg.Redis.Password,
		DB:       d.cfg.Redis.DB,
	}, concurrency)
	calendar.RegisterTasks(w, d.db, d.cache, d.queue)

	return w.Run()
}
