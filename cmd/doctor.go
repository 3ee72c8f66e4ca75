package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jonztech/jz-cli/internal/auth"
	"github.com/jonztech/jz-cli/internal/config"
	"github.com/jonztech/jz-cli/internal/logger"
	"github.com/jonztech/jz-cli/internal/storage"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and connectivity",
	Long: `Run a health check on your jz setup.
Verifies the configuration, gateway reachability, your sign-in token,
chat storage and the documents directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)
		cyan := color.New(color.FgCyan, color.Bold)

		cyan.Fprintf(os.Stderr, "\n  🩺 jz doctor\n\n")

		pass, fail, warn := 0, 0, 0

		check := func(name string, fn func() (string, error)) {
			detail, err := fn()
			if err != nil {
				if strings.HasPrefix(err.Error(), "warn:") {
					yellow.Fprintf(os.Stderr, "  ⚠ %s\n", name)
					dim.Fprintf(os.Stderr, "    %s\n", strings.TrimPrefix(err.Error(), "warn:"))
					warn++
				} else {
					red.Fprintf(os.Stderr, "  ✗ %s\n", name)
					dim.Fprintf(os.Stderr, "    %s\n", err.Error())
					fail++
				}
			} else {
				green.Fprintf(os.Stderr, "  ✓ %s", name)
				if detail != "" {
					dim.Fprintf(os.Stderr, " (%s)", detail)
				}
				fmt.Fprintln(os.Stderr)
				pass++
			}
		}

		// 1. Config
		cfg, cfgErr := config.Load()
		check("Configuration valid", func() (string, error) {
			if cfgErr != nil {
				return "", cfgErr
			}
			return config.Dir(), nil
		})
		if cfgErr != nil {
			fmt.Fprintln(os.Stderr)
			red.Fprintf(os.Stderr, "  Fix the configuration first.\n\n")
			return ErrReported
		}

		// 2. Gateway
		check("Gateway reachable", func() (string, error) {
			return probeGateway(cmd.Context(), cfg.GatewayURL)
		})

		// 3. Token
		id, tokenErr := auth.Inspect(cfg.Token)
		check("Account", func() (string, error) {
			if tokenErr != nil {
				return "", fmt.Errorf("%v (run: jz config set-token <jwt>)", tokenErr)
			}
			if !id.Authenticated() {
				return "", fmt.Errorf("warn:not signed in; chats will not be saved")
			}
			return identityLabel(id), nil
		})

		// 4. Storage
		check(fmt.Sprintf("Chat storage (%s)", cfg.Storage.Driver), func() (string, error) {
			if !id.Authenticated() {
				return "", fmt.Errorf("warn:skipped until you sign in")
			}
			st, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN, id.UserID, logger.Nop())
			if err != nil {
				return "", err
			}
			defer st.Close()
			sessions, err := st.LoadSessions(cmd.Context())
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d chats", len(sessions)), nil
		})

		// 5. Documents directory
		check("Documents directory writable", func() (string, error) {
			if err := os.MkdirAll(cfg.DocumentsDir, 0o700); err != nil {
				return "", err
			}
			f, err := os.CreateTemp(cfg.DocumentsDir, ".doctor-*")
			if err != nil {
				return "", err
			}
			f.Close()
			os.Remove(f.Name())
			return cfg.DocumentsDir, nil
		})

		// 6. OS and arch
		check("System info", func() (string, error) {
			return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH), nil
		})

		fmt.Fprintln(os.Stderr)
		total := pass + fail + warn
		if fail == 0 && warn == 0 {
			green.Fprintf(os.Stderr, "  All %d checks passed. You're good to go.\n\n", total)
		} else if fail == 0 {
			yellow.Fprintf(os.Stderr, "  %d passed, %d warnings. Everything works, but some things could be better.\n\n", pass, warn)
		} else {
			red.Fprintf(os.Stderr, "  %d passed, %d failed, %d warnings. Fix the failures above.\n\n", pass, fail, warn)
		}

		return nil
	},
}

// probeGateway calls the gateway's health endpoint next to the chat path.
func probeGateway(ctx context.Context, chatURL string) (string, error) {
	u, err := url.Parse(chatURL)
	if err != nil {
		return "", err
	}
	u.Path = "/health"
	u.RawQuery = ""

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not connect to %s (is 'jz serve' running?)", u.Host)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("warn:%s answered %d to /health", u.Host, resp.StatusCode)
	}
	return u.Host, nil
}
