package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonztech/jz-cli/internal/auth"
	"github.com/jonztech/jz-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage jz configuration",
}

var setTokenCmd = &cobra.Command{
	Use:   "set-token <jwt>",
	Short: "Sign in with a bearer token (pass \"\" to sign out)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := strings.TrimSpace(args[0])
		if token == "" {
			if err := config.SetToken(""); err != nil {
				return fmt.Errorf("failed to clear token: %w", err)
			}
			fmt.Println("Signed out.")
			return nil
		}
		id, err := auth.Inspect(token)
		if err != nil {
			return err
		}
		if err := config.SetToken(token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		fmt.Printf("Signed in as %s.\n", identityLabel(id))
		return nil
	},
}

var setGatewayCmd = &cobra.Command{
	Use:   "set-gateway <url>",
	Short: "Set the chat gateway endpoint (default: http://localhost:8787/v1/chat)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetGateway(args[0]); err != nil {
			return err
		}
		fmt.Printf("Gateway set to %s.\n", args[0])
		return nil
	},
}

var setStorageCmd = &cobra.Command{
	Use:   "set-storage <sqlite|postgres> [dsn]",
	Short: "Choose where signed-in chats are saved",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn := ""
		if len(args) == 2 {
			dsn = args[1]
		}
		if err := config.SetStorage(args[0], dsn); err != nil {
			return err
		}
		fmt.Printf("Storage set to %s.\n", args[0])
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		account := "anonymous"
		if id, err := auth.Inspect(cfg.Token); err != nil {
			account = "invalid token"
		} else if id.Authenticated() {
			account = identityLabel(id)
		}

		fmt.Printf("Gateway:    %s\n", cfg.GatewayURL)
		fmt.Printf("Account:    %s\n", account)
		fmt.Printf("Storage:    %s (%s)\n", cfg.Storage.Driver, maskDSN(cfg.Storage.DSN))
		fmt.Printf("Documents:  %s\n", cfg.DocumentsDir)
		fmt.Printf("Knowledge:  %d entries\n", len(cfg.Knowledge))
		fmt.Printf("Log:        %s (%s)\n", config.LogPath(), cfg.LogLevel)
		fmt.Printf("Config Dir: %s\n", config.Dir())
		return nil
	},
}

func init() {
	configCmd.AddCommand(setTokenCmd)
	configCmd.AddCommand(setGatewayCmd)
	configCmd.AddCommand(setStorageCmd)
	configCmd.AddCommand(showCmd)
}

func identityLabel(id auth.Identity) string {
	label := id.UserID
	if id.Email != "" {
		label = id.Email
	}
	if len(id.Roles) > 0 {
		label += " [" + strings.Join(id.Roles, ", ") + "]"
	}
	return label
}

// maskDSN hides the password of a postgres URL or key=value DSN.
func maskDSN(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		rest := dsn[i+3:]
		if at := strings.Index(rest, "@"); at >= 0 {
			if colon := strings.Index(rest[:at], ":"); colon >= 0 {
				return dsn[:i+3] + rest[:colon] + ":****" + rest[at:]
			}
		}
		return dsn
	}
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=****"
		}
	}
	return strings.Join(fields, " ")
}
