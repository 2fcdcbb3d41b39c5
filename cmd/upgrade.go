package cmd

import (
	"fmt"

	internalApp "github.com/haierkeys/page-notes-service/internal/app"
	"github.com/haierkeys/page-notes-service/internal/dao"
	"github.com/haierkeys/page-notes-service/internal/upgrade"
	"github.com/haierkeys/page-notes-service/pkg/logger"

	"github.com/spf13/cobra"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Apply pending database migrations",
	Long: `Apply pending database migrations.

Already applied migrations are recorded in schema_version and skipped, so the
command can be run any number of times. "run" performs the same step on start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		if configPath == "" {
			configPath = defaultConfigPath
		}

		cfg, realpath, err := internalApp.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Printf("Loading config from: %s\n", realpath)

		lg, err := logger.NewLogger(cfg.GetLoggerConfig())
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		defer lg.Sync()

		db, err := dao.NewDBEngineWithConfig(cfg.GetDatabaseConfig(), lg)
		if err != nil {
			return fmt.Errorf("failed to init database: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		if err := upgrade.Execute(db, lg, internalApp.Version, true); err != nil {
			return fmt.Errorf("upgrade failed: %w", err)
		}
		fmt.Println("Database upgrade completed successfully!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
	upgradeCmd.Flags().StringP("config", "c", "", "config file path")
}
