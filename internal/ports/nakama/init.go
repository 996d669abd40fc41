package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"pixelary/internal/app"
	"pixelary/internal/config"
	"pixelary/internal/store/sqlstore"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires the word slate engine into the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	settings, err := loadSettings(env)
	if err != nil {
		logger.Error("InitModule: Invalid word slate settings: %v", err)
		return err
	}

	if err := sqlstore.InitDB(ctx, db); err != nil {
		logger.Error("InitModule: Failed to migrate word slate tables: %v", err)
		return err
	}
	store := sqlstore.New(db)
	metrics := NewNakamaMetricsAdapter(nk)

	wordSlates = app.NewService(settings, app.Deps{
		Counters: store,
		Pool:     store,
		Slates:   store,
		Config:   NewNakamaConfigAdapter(nk),
		Metrics:  metrics,
		Logger:   logger,
	})

	maintainer := app.NewMaintainer(settings.Namespace, settings.LockTTL, NewNakamaLockAdapter(nk), store, store, metrics, logger)
	maintainer.Start(context.Background(), settings.MaintenanceInterval)

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	logger.Info("Word slate module loaded (namespace=%s dictionaries=%v).", settings.Namespace, settings.Dictionaries)
	return nil
}

func loadSettings(env map[string]string) (config.Settings, error) {
	base := config.DefaultSettings()
	if path := env[config.EnvConfigPath]; path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return base, fmt.Errorf("load %s: %w", path, err)
		}
		base = loaded
	}
	return config.FromEnv(base, env)
}
