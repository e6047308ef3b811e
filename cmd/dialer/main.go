// Command dialer runs batches and inspects calls from the shell, using the same
// configuration and stores as the API.
package main

import (
	"context"
	"fmt"
	"os"

	"outreach-dialer/internal/app"
	"outreach-dialer/internal/config"
	"outreach-dialer/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "dialer",
	Short:         "Outbound call orchestration CLI",
	Long:          "Dial lead batches through the configured telephony provider, check call status, end calls, list numbers and inspect the agent step machine.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// runtime is what a command needs from the process environment.
type runtime struct {
	cfg  config.Config
	deps *app.Deps
}

// loadRuntime is replaced in tests.
var loadRuntime = func(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.NewTo(os.Stderr, cfg.App.Env)
	deps, err := app.Build(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, deps: deps}, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
