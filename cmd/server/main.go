package main

import (
	"context"
	"os"

	"github.com/mkrutov/termgate/internal/server"
	"github.com/mkrutov/termgate/internal/server/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:          "termgate",
		Short:        "termgate — multi-user web gateway for interactive terminal engines",
		Version:      version,
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var configFlag string
	var addrFlag string
	var dataDirFlag string
	var engineFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFlag)
			if err != nil {
				return err
			}
			if addrFlag != "" {
				cfg.ListenAddr = addrFlag
			}
			if dataDirFlag != "" {
				cfg.DataDir = dataDirFlag
			}
			if engineFlag != "" {
				cfg.EngineCommand = engineFlag
			}

			app, err := server.NewApp(cfg)
			if err != nil {
				return err
			}
			return app.Run(context.Background())
		},
	}

	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "path to JSON config file")
	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&dataDirFlag, "data-dir", "", "server state directory (overrides config)")
	cmd.Flags().StringVar(&engineFlag, "engine", "", "engine binary spawned per session (overrides config)")

	return cmd
}
