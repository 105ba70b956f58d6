package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/searchktools/dory/app"
	"github.com/searchktools/dory/config"
)

func serveCmd() *cobra.Command {
	cfg := config.Default()
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the server",
		Long: `Run the server until interrupted.

Settings come from flags, then DORY_* environment variables (DORY_PORT,
DORY_LOG_LEVEL, ...), then an optional JSON file. Flags given on the
command line always win.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(configPath, cmd.Flags()); err != nil {
				return err
			}

			log := app.NewLogger(cfg, os.Stderr)
			a, err := app.New(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.ListenAndServe()
		},
	}

	cfg.BindFlags(cmd.Flags())
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "JSON configuration file")

	return cmd
}
