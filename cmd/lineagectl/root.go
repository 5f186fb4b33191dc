package main

import (
	"context"
	"encoding/json"
	"os"

	"wikihub/internal/app"
	"wikihub/internal/config"
	"wikihub/internal/logger"

	"github.com/spf13/cobra"
)

var core *app.Core

var rootCmd = &cobra.Command{
	Use:           "lineagectl",
	Short:         "Обслуживание версий и вложений статей",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if _, err := cfg.Validate(); err != nil {
			return err
		}
		logger.InitLogger(cfg)

		core, err = app.NewCore(cmd.Context(), cfg)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if core != nil {
			core.Close()
		}
		_ = logger.Log.Sync()
	},
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
