package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/filings/internal/cmd/client"
	serverrun "github.com/rzbill/filings/internal/cmd/server"
	cfgpkg "github.com/rzbill/filings/internal/config"
	pebblestore "github.com/rzbill/filings/internal/storage/pebble"
	logpkg "github.com/rzbill/filings/pkg/log"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "filings",
		Short:         "Filings service CLI",
		Long:          "filings stores regulatory filings behind a command dispatcher. This CLI runs the server and talks to it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the filings server (gRPC and HTTP)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			mode := pebblestore.FsyncModeAlways
			switch fsyncMode {
			case "never":
				mode = pebblestore.FsyncModeNever
			case "interval":
				mode = pebblestore.FsyncModeInterval
			case "always":
				mode = pebblestore.FsyncModeAlways
			default:
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}
			dataDir, _ := cmd.Flags().GetString("data-dir")
			grpcAddr, _ := cmd.Flags().GetString("grpc")
			httpAddr, _ := cmd.Flags().GetString("http")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:  dataDir,
				GRPCAddr: grpcAddr,
				HTTPAddr: httpAddr,
				Fsync:    mode,
				Config:   cfg,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("data-dir", os.Getenv("FILINGS_DATA_DIR"), "Data directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("grpc", ":50051", "gRPC listen address")
	serverStartCmd.Flags().String("http", ":8080", "HTTP listen address")
	serverStartCmd.Flags().String("config", "", "Config file (.json, .yaml or .yml)")
	serverStartCmd.Flags().String("env-file", "", "dotenv file loaded before FILINGS_* variables are read")
	serverStartCmd.Flags().String("fsync", "always", "Fsync mode for the pebble counter: always|interval|never")
	serverStartCmd.Flags().String("counter-backend", "", "Id counter backend: pebble|sqlite")
	serverStartCmd.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", "", "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	rootCmd.AddCommand(clientcmd.NewFilingsCommand(apiURL))

	if err := rootCmd.Execute(); err != nil {
		logpkg.NewLogger(logpkg.WithOutput(logpkg.NewConsoleOutput())).Error("command failed", logpkg.Err(err))
		os.Exit(1)
	}
}

// loadConfig layers defaults, the config file, the environment and flags,
// each overriding the one before.
func loadConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	cfg := cfgpkg.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := cfgpkg.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	envFile, _ := cmd.Flags().GetString("env-file")
	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}
	if err := cfgpkg.LoadDotEnv(envFiles...); err != nil {
		return cfg, err
	}
	cfgpkg.FromEnv(&cfg)

	if v, _ := cmd.Flags().GetString("counter-backend"); v != "" {
		cfg.IDs.CounterBackend = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	return cfg, cfg.Validate()
}

func apiURL() string {
	if v := os.Getenv("FILINGS_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
