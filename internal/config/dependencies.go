package config

import (
	"context"
	"errors"
	"fmt"

	"advanced-todo/configs"
	"advanced-todo/internal/middleware"
	"advanced-todo/internal/notify"
	"advanced-todo/internal/repository"
	"advanced-todo/internal/session"
	"advanced-todo/internal/store"
	"advanced-todo/internal/websocket"
	"advanced-todo/pkg/database"
	"advanced-todo/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies is everything the application shares, built once at start
// and passed to whoever needs it.
type Dependencies struct {
	Config   configs.Config
	Log      *logger.Loggers
	Validate *validator.Validate

	Gateway   repository.Gateway
	Marker    session.Marker
	Scheduler *notify.LocalScheduler
	Hub       *websocket.Hub
	Tokens    *middleware.Tokens

	Tasks *store.TaskStore
	Auth  *store.AuthStore

	closers []func() error
}

// New connects the storage selected by cfg and wires the stores to it.
func New(ctx context.Context, cfg configs.Config, log *logger.Loggers) (*Dependencies, error) {
	d := &Dependencies{
		Config:   cfg,
		Log:      log,
		Validate: validator.New(),
	}

	var gdb *gorm.DB
	switch cfg.DBDriver {
	case configs.DriverPostgres:
		db, err := database.ConnectDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, db.Close)
		if err := repository.CreateTableIfNotExists(ctx, db); err != nil {
			d.Close()
			return nil, err
		}
		d.Gateway = repository.NewSQLGateway(db)
		log.System.Info("Database connected", zap.String("driver", cfg.DBDriver))
	default:
		var err error
		gdb, err = database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			d.closers = append(d.closers, sqlDB.Close)
		}
		if err := repository.Migrate(gdb); err != nil {
			d.Close()
			return nil, err
		}
		d.Gateway = repository.NewGormGateway(gdb)
		log.System.Info("Database connected", zap.String("driver", cfg.DBDriver), zap.String("path", cfg.SQLitePath))
	}

	switch cfg.SessionStore {
	case configs.SessionStoreRedis:
		client, err := database.ConnectRedis(ctx, cfg)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.closers = append(d.closers, client.Close)
		d.Marker = session.NewRedisMarker(client)
	default:
		if gdb == nil {
			d.Close()
			return nil, fmt.Errorf("session store %q needs the sqlite driver", cfg.SessionStore)
		}
		marker, err := session.NewTableMarker(gdb)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Marker = marker
	}

	d.Hub = websocket.NewHub(log)
	d.Scheduler = notify.NewLocalScheduler(d.Hub, cfg.NotificationsEnabled, log)
	d.Tokens = middleware.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	d.Tasks = store.NewTaskStore(d.Gateway, d.Scheduler, log, cfg.ReminderLead)
	d.Auth = store.NewAuthStore(d.Gateway, d.Marker, d.Tasks, log)
	d.Tasks.Subscribe(d.Hub.PublishEvent)
	d.Auth.Subscribe(d.Hub.PublishEvent)

	return d, nil
}

// Close stops pending reminders and releases every connection.
func (d *Dependencies) Close() error {
	if d.Scheduler != nil {
		d.Scheduler.Stop()
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}
