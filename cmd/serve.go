package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jonztech/jz-cli/internal/config"
	"github.com/jonztech/jz-cli/internal/gateway"
	"github.com/jonztech/jz-cli/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat gateway",
	Long: `Run the HTTP gateway that jz clients talk to. It verifies bearer
tokens, picks the system prompt, rate limits callers and relays the model's
stream.

Configured from the environment (or .env):
  GATEWAY_ADDR, GATEWAY_UPSTREAM_URL, GATEWAY_API_KEY, GATEWAY_MODEL,
  GATEWAY_JWT_SECRET, GATEWAY_RATE_PER_MIN, GATEWAY_UPSTREAM_TIMEOUT_SEC,
  GATEWAY_ALLOW_DEV_TOKENS, GATEWAY_LOG_FILE, GO_ENV`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadGateway()
		if err != nil {
			return err
		}
		log := logger.NewServerLogger(cfg.LogFilePath, cfg.Environment == "production")
		defer log.Sync()

		if cfg.APIKey == "" {
			color.New(color.FgYellow).Fprintln(os.Stderr, "  ⚠ GATEWAY_API_KEY is not set; upstream calls will be rejected.")
		}
		if cfg.JWTSecret == "" {
			color.New(color.FgYellow).Fprintln(os.Stderr, "  ⚠ GATEWAY_JWT_SECRET is not set; every caller is anonymous.")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return gateway.New(cfg, log).Run(ctx)
	},
}
