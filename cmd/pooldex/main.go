package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pooldex/internal/config"
	"pooldex/internal/custody"
	"pooldex/internal/oracle"
	"pooldex/internal/service"
	"pooldex/internal/storage"
	"pooldex/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "pooldex",
		Short:        "Constant-product pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN")
	root.PersistentFlags().String("journal", "./data/ops.jsonl", "operation journal JSONL path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Uint64("epoch", 0, "override the stored epoch counter")

	root.AddCommand(
		newInitCmd(),
		newEpochCmd(),
		newCreateCmd(),
		newAddCmd(),
		newRemoveCmd(),
		newSwapCmd(),
		newQuoteCmd(),
		newClaimCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime bundles the wired dependencies one command invocation needs.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
	store  *postgres.Store
	svc    *service.Service
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.PGDSN == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	store, err := postgres.NewStore(cmd.Context(), cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	var epochs oracle.EpochSource = storage.NewStoreEpoch(store)
	if cmd.Flags().Changed("epoch") {
		override, _ := cmd.Flags().GetUint64("epoch")
		epochs = oracle.FixedEpoch(override)
	}

	var journal storage.Journal
	if cfg.Journal != "" {
		journal = storage.NewJsonlJournal(cfg.Journal)
	}

	svc := service.New(store, custody.NewRecorder(logger), journal, epochs, oracle.SystemClock{}, logger)

	return &runtime{cfg: cfg, logger: logger, store: store, svc: svc}, nil
}

func (r *runtime) close() {
	r.store.Close()
	_ = r.logger.Sync()
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the Postgres schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.store.EnsureSchema(cmd.Context()); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
			rt.logger.Info("schema ready")
			return nil
		},
	}
}

func newEpochCmd() *cobra.Command {
	epochCmd := &cobra.Command{
		Use:   "epoch",
		Short: "Inspect or advance the reward epoch",
	}

	epochCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current epoch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			epoch, err := rt.store.LoadEpoch(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(epoch)
			return nil
		},
	})

	epochCmd.AddCommand(&cobra.Command{
		Use:   "advance",
		Short: "Advance the epoch counter by one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			epoch, err := rt.store.LoadEpoch(cmd.Context())
			if err != nil {
				return err
			}
			next := epoch + 1
			if err := rt.store.SaveEpoch(cmd.Context(), next); err != nil {
				return err
			}
			rt.logger.Info("epoch advanced", zap.Uint64("epoch", next))
			return nil
		},
	})

	return epochCmd
}
