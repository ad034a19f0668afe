package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lk2023060901/ascend/app/game/internal/dao"
	"github.com/lk2023060901/ascend/pkg/app"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ascend",
		Short:         "Text RPG game core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	app.ConfigFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the console adapter, event scheduler and metrics",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, l, err := setup(cmd)
				if err != nil {
					return err
				}
				return serve(cmd.Context(), cfg, l)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, l, err := setup(cmd)
				if err != nil {
					return err
				}
				return migrate(cmd.Context(), cfg, l)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), app.GetInfo().String())
			},
		},
	)
	return root
}

// setup 加载配置并初始化主日志
func setup(cmd *cobra.Command) (*Config, logger.Logger, error) {
	// 1. 加载配置
	cfg := DefaultConfig()
	path, err := app.LoadConfig(cmd.Flags(), cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	// 2. 初始化主日志
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	if path != "" {
		l.Info("config loaded", "path", path)
	}
	return cfg, l, nil
}

func migrate(ctx context.Context, cfg *Config, l logger.Logger) error {
	db, closeDB, err := openDB(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB()

	applied, err := dao.Migrate(ctx, db, l)
	if err != nil {
		return err
	}
	l.Info("migrations applied", "count", len(applied), "files", applied)
	return nil
}
