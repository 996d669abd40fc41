package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"pixelary/internal/app"
	"pixelary/internal/config"
	"pixelary/internal/logging"
	"pixelary/internal/ports"
	"pixelary/internal/store/sqlstore"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// cli holds state shared by every subcommand.
type cli struct {
	v *viper.Viper

	database   string
	configFile string
	verbose    bool
	jsonLogs   bool
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix("WORDSLATE")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	defaults := config.DefaultSettings()

	cmd := &cobra.Command{
		Use:           "wordslate",
		Short:         "Select and tune drawing-prompt word slates.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(c.v, cmd.InheritedFlags())
			bindFlags(c.v, cmd.Flags())
			if c.configFile != "" {
				c.v.SetConfigFile(c.configFile)
				if err := c.v.ReadInConfig(); err != nil {
					return fmt.Errorf("read %s: %w", c.configFile, err)
				}
			}
			return nil
		},
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&c.database, "database", "wordslate.db", "path to the sqlite database (env: WORDSLATE_DATABASE)")
	fs.StringVar(&c.configFile, "config-file", "", "optional settings file; keys match flag names (env: WORDSLATE_CONFIG_FILE)")
	fs.String("namespace", defaults.Namespace, "community namespace every record is scoped to (env: WORDSLATE_NAMESPACE)")
	fs.StringSlice("dictionaries", defaults.Dictionaries, "dictionaries unioned into the eligible pool, in priority order (env: WORDSLATE_DICTIONARIES)")
	fs.Duration("slate-ttl", defaults.SlateTTL, "how long issued slates accept tracking events (env: WORDSLATE_SLATE_TTL)")
	fs.Duration("config-cache-ttl", defaults.ConfigCacheTTL, "how long bandit parameters are cached (env: WORDSLATE_CONFIG_CACHE_TTL)")
	fs.Duration("maintenance-interval", defaults.MaintenanceInterval, "time between maintenance passes, 0 to disable (env: WORDSLATE_MAINTENANCE_INTERVAL)")
	fs.Duration("lock-ttl", defaults.LockTTL, "maintenance lock lifetime (env: WORDSLATE_LOCK_TTL)")
	fs.Int("track-workers", defaults.TrackWorkers, "goroutines ingesting tracking events (env: WORDSLATE_TRACK_WORKERS)")
	fs.Int("track-queue", defaults.TrackQueue, "tracking events buffered before dropping (env: WORDSLATE_TRACK_QUEUE)")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "display debug output (env: WORDSLATE_VERBOSE)")
	fs.BoolVar(&c.jsonLogs, "json-logs", false, "log as JSON (env: WORDSLATE_JSON_LOGS)")

	cmd.AddCommand(
		newServeCmd(c),
		newConfigCmd(c),
		newStatsCmd(c),
		newWordsCmd(c),
		newMaintainCmd(c),
		newTokenCmd(c),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("wordslate v{{.Version}}\n")

	return cmd
}

// bindFlags lets env vars and the config file fill flags the user did not set.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if list, ok := val.([]string); ok {
				val = strings.Join(list, ",")
			}
			_ = fs.Set(f.Name, fmt.Sprintf("%v", val))
		}
	})
}

// settings resolves config.Settings from flags, env and the config file.
func (c *cli) settings() (config.Settings, error) {
	s := config.DefaultSettings()
	if err := c.v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	return s, s.Validate()
}

func (c *cli) logger(w io.Writer) *logging.Logger {
	return logging.New(w, logging.Options{JSON: c.jsonLogs, Verbose: c.verbose})
}

// engine is an opened database with the use-cases wired on top.
type engine struct {
	db       *sql.DB
	store    *sqlstore.Store
	settings config.Settings
	svc      *app.Service
	maint    *app.Maintainer
	logger   *logging.Logger
}

func (c *cli) open(ctx context.Context, w io.Writer, metrics ports.MetricsPort) (*engine, error) {
	settings, err := c.settings()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", c.database+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.database, err)
	}
	if err := sqlstore.InitDB(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	store := sqlstore.New(db)
	logger := c.logger(w)
	svc := app.NewService(settings, app.Deps{
		Counters: store,
		Pool:     store,
		Slates:   store,
		Config:   store,
		Metrics:  metrics,
		Logger:   logger,
	})
	maint := app.NewMaintainer(settings.Namespace, settings.LockTTL, store, store, store, metrics, logger)

	return &engine{db: db, store: store, settings: settings, svc: svc, maint: maint, logger: logger}, nil
}

func (e *engine) Close() {
	e.svc.Close()
	e.db.Close()
}
