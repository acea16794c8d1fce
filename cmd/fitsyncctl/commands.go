package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitsync/internal/client"
	"fitsync/internal/core"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const connectTimeout = 10 * time.Minute

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers and their configuration state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		providers, err := api.ListProviders(ctx)
		if err != nil {
			return fmt.Errorf("failed to list providers: %w", err)
		}

		faint := color.New(color.Faint)
		for _, p := range providers {
			status := color.GreenString("ready")
			if !p.Configured {
				status = color.YellowString("unavailable")
			}
			line := fmt.Sprintf("%s %s %s", padRight(string(p.Type), 16), padRight(string(p.Capability), 12), status)
			if p.AuthState != "" {
				line += " " + faint.Sprint(p.AuthState)
			}
			if p.Reason != "" {
				line += faint.Sprintf(" (%s)", p.Reason)
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var devicesCmd = &cobra.Command{
	Use:     "devices",
	Aliases: []string{"ls"},
	Short:   "List connected devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		devices, err := api.ListDevices(ctx)
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}
		if len(devices) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No devices connected.")
			return nil
		}

		for _, d := range devices {
			fmt.Fprintln(cmd.OutOrStdout(), formatDevice(d))
		}
		return nil
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect <provider>",
	Short: "Connect a provider account",
	Long: `Connect a provider account.

The server prints an authorization URL; open it in a browser and approve
access. The command returns once the provider redirects back, or when the
authorization is cancelled with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := core.ParseProviderType(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), connectTimeout)
		defer cancel()

		done := make(chan struct{})
		defer close(done)
		go announceAuthorizationURL(ctx, cmd, provider, done)

		result, err := api.ConnectDevice(ctx, provider)
		if err != nil {
			var apiErr *client.Error
			if errors.As(err, &apiErr) {
				return fmt.Errorf("connection failed: %s", apiErr.Message)
			}
			return fmt.Errorf("connection failed: %w", err)
		}

		if result.Device == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("Connected"), provider)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("Connected"), formatDevice(*result.Device))
		return nil
	},
}

var syncDate string

var syncCmd = &cobra.Command{
	Use:   "sync [device-id]",
	Short: "Sync one device, or all devices",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if len(args) == 1 {
			if err := api.SyncDevice(ctx, args[0], syncDate); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("Synced"), args[0])
			return nil
		}

		summary, err := api.SyncAll(ctx, syncDate)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatSummary(*summary))
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect <device-id>",
	Short: "Disconnect a device and delete its stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if err := api.DisconnectDevice(ctx, args[0]); err != nil {
			return fmt.Errorf("disconnect failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("Disconnected"), args[0])
		return nil
	},
}

var activityCmd = &cobra.Command{
	Use:   "activity [date]",
	Short: "Show a day's activity (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		data, err := api.GetActivity(ctx, dateArg(args))
		if err != nil {
			return fmt.Errorf("failed to get activity: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatActivity(*data))
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance [date]",
	Short: "Show a day's energy balance (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		balance, err := api.GetBalance(ctx, dateArg(args))
		if err != nil {
			return fmt.Errorf("failed to get balance: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatBalance(*balance))
		return nil
	},
}

// announceAuthorizationURL polls the pending sessions until the provider's
// authorization URL shows up and prints it once
func announceAuthorizationURL(ctx context.Context, cmd *cobra.Command, provider core.ProviderType, done <-chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := api.PendingAuthorizations(ctx)
			if err != nil {
				continue
			}
			for _, p := range pending {
				if p.Provider == provider {
					fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize %s:\n\n  %s\n\nWaiting for authorization...\n", provider, p.AuthURL)
					return
				}
			}
		}
	}
}

func dateArg(args []string) string {
	if len(args) == 0 {
		return "today"
	}
	return args[0]
}

func init() {
	syncCmd.Flags().StringVarP(&syncDate, "date", "d", "", "day to sync (YYYY-MM-DD, default today)")

	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(balanceCmd)
}
