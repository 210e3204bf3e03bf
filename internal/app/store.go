package app

import (
	"time"

	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/kvstore"
)

func (app *App) initializeStore() error {
	if app.Config.RedisAddress == "" {
		app.Store = kvstore.NewMemoryStore(time.Minute)
		app.Logger.Info("Store: Redis not configured, using in-memory store (single instance only)")
		return nil
	}

	store, err := kvstore.NewRedisStore(&kvstore.RedisConfig{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       app.Config.RedisDB,
		PoolSize: app.Config.RedisPoolSize,
	})
	if err != nil {
		return errors.StoreError("connect", err)
	}

	app.Store = store
	app.Logger.Info("Store: Redis connected",
		logging.String("address", app.Config.RedisAddress),
		logging.Int("db", app.Config.RedisDB),
	)
	return nil
}
