package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fieldlog/internal/app"
	"fieldlog/internal/config"
	"fieldlog/internal/fieldlog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Submit", "Sync").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "fieldlog",
	Short: "Offline-capable time period submission client",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		deviceID := uuid.New().String()
		cfg := config.NewConfig(deviceID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Device ID: %s\n", deviceID)
		fmt.Printf("Base Dir:  %s\n", defaults["base_dir"])
		fmt.Println("Set remote.base_url, remote.api_key and remote.access_token before submitting.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Device ID:  %s\n", cfg.DeviceID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Remote URL: %s\n", cfg.Remote.BaseURL)
		return nil
	},
}

// submit command
var submitCmd = &cobra.Command{
	Use:   "submit FILE",
	Short: "Submit a time period from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ackGap, _ := cmd.Flags().GetBool("ack-gap")

		a, err := newApp("Submit")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.SubmitFile(cmd.Context(), args[0], ackGap)
		if err != nil {
			var gapErr *fieldlog.GapError
			if errors.As(err, &gapErr) {
				fmt.Println(gapErr.Error())
				fmt.Println("Re-run with --ack-gap to submit anyway.")
				return fmt.Errorf("submission not accepted")
			}
			var conflictErr *fieldlog.ConflictError
			if errors.As(err, &conflictErr) {
				fmt.Println(conflictErr.Error())
				return fmt.Errorf("submission rejected")
			}
			return err
		}

		if res.Queued {
			fmt.Printf("Offline: submission queued as %s\n", res.EntryID)
		} else {
			fmt.Printf("Submitted: period %s\n", res.PeriodID)
		}
		for _, w := range res.Warnings {
			fmt.Printf("Warning: %s\n", w)
		}
		return nil
	},
}

// queue command
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the local submission queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued submissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("QueueList")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.QueueEntries()
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("Queue is empty.")
			return nil
		}

		for _, e := range entries {
			detail := ""
			if e.FailureDetail != "" {
				detail = "  " + e.FailureDetail
			}
			fmt.Printf("%s  %s  %-8s  attempts:%d%s\n",
				e.ID,
				e.CreatedAt.Format("2006-01-02 15:04:05"),
				e.Status,
				e.Attempts,
				detail,
			)
		}
		return nil
	},
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry ENTRY",
	Short: "Re-mark a failed entry for the next sync",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("QueueRetry")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Retry(args[0]); err != nil {
			return fmt.Errorf("retrying entry: %w", err)
		}

		fmt.Printf("Entry %s will be retried on the next sync.\n", args[0])
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push queued submissions to the remote store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Sync(cmd.Context())
		if err != nil {
			if errors.Is(err, fieldlog.ErrOffline) {
				return fmt.Errorf("remote store is unreachable, try again later")
			}
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Printf("Synced: %d succeeded, %d failed, %d partial\n", res.Succeeded, res.Failed, res.Partial)
		for _, c := range res.Conflicts {
			fmt.Printf("Conflict: entry %s overlaps %s\n", c.EntryID, c.Offending)
		}
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor connectivity and sync automatically",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Watch")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println("Watching connectivity; press Ctrl-C to stop.")
		if err := a.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity and queue depth",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Status")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.GetStatus(cmd.Context())
		if err != nil {
			return err
		}

		state := "offline"
		if st.Online {
			state = "online"
		}
		fmt.Printf("Device:  %s\n", st.DeviceID)
		fmt.Printf("Remote:  %s\n", state)
		fmt.Printf("Queued:  %d\n", st.Pending)
		return nil
	},
}

// revisions command
var revisionsCmd = &cobra.Command{
	Use:   "revisions PERIOD",
	Short: "View the audit trail of a committed period",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Revisions")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.GetRevisions(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No revisions recorded.")
			return nil
		}

		for _, r := range records {
			oldVal := "-"
			if r.OldValue != nil {
				oldVal = *r.OldValue
			}
			newVal := "-"
			if r.NewValue != nil {
				newVal = *r.NewValue
			}
			fmt.Printf("rev %d  %-18s  %s -> %s  (%s by %s)\n",
				r.RevisionNumber,
				r.FieldName,
				oldVal,
				newVal,
				r.ChangeType,
				r.ActorID,
			)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueRetryCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().Bool("ack-gap", false, "Acknowledge a schedule gap and submit anyway")
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(revisionsCmd)
}
