package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dropDatabas3/socialauth/internal/app"
	"github.com/dropDatabas3/socialauth/internal/config"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	"github.com/dropDatabas3/socialauth/internal/social"
)

var version = "dev"

func main() {
	var (
		cfgPath = os.Getenv("SOCIALAUTH_CONFIG")
		envFile string
		cfg     *config.Config
		log     *zap.Logger
	)

	root := &cobra.Command{
		Use:           "socialauth",
		Short:         "Social login service (Google, GitHub, Microsoft)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("env file: %w", err)
				}
			} else {
				// optional
				_ = godotenv.Load()
			}
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cfg.App.Version == "" {
				cfg.App.Version = version
			}
			log = logger.Init(app.LoggerConfig(cfg))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "YAML config file (env SOCIALAUTH_CONFIG)")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", ".env file to load before reading config")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer func() { _ = logger.Sync() }()
			a, err := app.New(cfg, log, app.Options{Sink: social.LogSink{Log: log.Named("sink")}})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Serve(ctx)
		},
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List enabled providers and their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg, zap.NewNop(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()
			for _, id := range a.Auth.Providers() {
				caps, _ := a.Auth.Capabilities(id)
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s refresh=%t revoke=%t\n", id, caps.Refresh, caps.Revoke)
			}
			return nil
		},
	}

	var provider, redirectTo string
	authorizeCmd := &cobra.Command{
		Use:   "authorize-url",
		Short: "Issue a state token and print the provider authorization URL",
		Long: "Issue a state token and print the provider authorization URL.\n" +
			"With the memory cache the state dies with this process, so use it against a redis-backed config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg, zap.NewNop(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()
			u, err := a.AuthorizeURL(context.Background(), provider, redirectTo)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
	authorizeCmd.Flags().StringVar(&provider, "provider", "google", "provider id")
	authorizeCmd.Flags().StringVar(&redirectTo, "redirect-to", "", "relative path carried through the state token")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			b, _ := json.Marshal(map[string]string{"version": version})
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
		},
	}

	root.AddCommand(serveCmd, providersCmd, authorizeCmd, versionCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
