package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/m3rciful/fontbot/core/buildinfo"
	corecmd "github.com/m3rciful/fontbot/core/cmd"
	"github.com/m3rciful/fontbot/core/config"
	"github.com/m3rciful/fontbot/core/database"
	"github.com/m3rciful/fontbot/core/dispatch"
)

const defaultConfigPath = "config.yaml"

func runBot(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return corecmd.Run(ctx, corecmd.Options{
		ConfigPath:        configPath,
		ConfigEnvVar:      corecmd.DefaultConfigEnvVar,
		DefaultConfigPath: defaultConfigPath,
	})
}

func newRunCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll for updates and reply until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), *configPath)
		},
	}
}

func newRenderCommand() *cobra.Command {
	var (
		maxChars int
		timezone string
	)
	cmd := &cobra.Command{
		Use:   "render <text>",
		Short: "Print the reply the bot would send for text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return render(cmd.OutOrStdout(), strings.Join(args, " "), maxChars, timezone, time.Now())
		},
	}
	cmd.Flags().IntVar(&maxChars, "max-chars", 4000, "Split the reply into payloads of at most this many characters")
	cmd.Flags().StringVar(&timezone, "timezone", "Asia/Tehran", "Timezone of the greeting clock")
	return cmd
}

func render(w io.Writer, text string, maxChars int, timezone string, now time.Time) error {
	if dispatch.IsGreeting(text) {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return fmt.Errorf("timezone %q: %w", timezone, err)
		}
		_, err = fmt.Fprintln(w, dispatch.Greeting(now, loc))
		return err
	}
	category, payloads := dispatch.Reply(text, maxChars)
	if len(payloads) == 0 {
		_, err := fmt.Fprintf(w, "(%s: no variants)\n", category)
		return err
	}
	for i, p := range payloads {
		if i > 0 {
			if _, err := fmt.Fprintln(w, "---"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, p); err != nil {
			return err
		}
	}
	return nil
}

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply cursor table migrations for the postgres backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := corecmd.ResolveConfigPath(*configPath, corecmd.DefaultConfigEnvVar, defaultConfigPath)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if cfg.State.Backend != config.BackendPostgres {
				return fmt.Errorf("state.backend is %q; migrations apply to postgres only", cfg.State.Backend)
			}
			if err := database.RunMigrations(cmd.Context(), cfg.Database); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the bot token in the OS keychain",
	}

	var account, token string
	set := &cobra.Command{
		Use:   "set",
		Short: "Store a bot token; reads stdin when --token is omitted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			value := token
			if value == "" {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				value = line
			}
			if err := config.StoreToken(account, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token stored for account %q\n", account)
			return nil
		},
	}
	set.Flags().StringVar(&account, "account", "main", "Keychain account name (transport.keyring_account)")
	set.Flags().StringVar(&token, "token", "", "Token value")

	cmd.AddCommand(set)
	return cmd
}

func readLine(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return "", config.ErrTokenMissing
	}
	return strings.TrimSpace(sc.Text()), nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "fontbot "+buildinfo.String())
		},
	}
}
