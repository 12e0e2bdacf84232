package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Karan-0412/nabha/config"
	"github.com/Karan-0412/nabha/internal/app"
	"github.com/Karan-0412/nabha/internal/store"
	"github.com/Karan-0412/nabha/internal/worker"
	"github.com/Karan-0412/nabha/pkg/logger"
	"github.com/Karan-0412/nabha/pkg/metrics"
)

const commandTimeout = 30 * time.Second

var documents = map[string]string{
	"db":            store.KeyDB,
	"notifications": store.KeyNotifications,
	"messages":      store.KeyMessages,
}

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "telemedctl",
		Short:        "Maintenance commands for the telemedicine document store",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: config.yaml in . or ./config)")

	rootCmd.AddCommand(resetCmd(&configFile))
	rootCmd.AddCommand(dumpCmd(&configFile))
	rootCmd.AddCommand(migrateCmd(&configFile))
	rootCmd.AddCommand(remindCmd(&configFile))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withStore opens the configured store for the duration of fn.
func withStore(configFile *string, fn func(ctx context.Context, cfg *config.Config, st *store.Store) error) error {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}

	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Output: os.Stderr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	st, err := app.OpenStore(ctx, cfg, app.Source("telemedctl"), log, metrics.New("telemed"))
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(ctx, cfg, st)
}

func resetCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace the database document with fresh fixture data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(configFile, func(ctx context.Context, _ *config.Config, st *store.Store) error {
				db, err := st.ResetDB(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset: %d appointments, %d doctors with availability\n",
					len(db.Appointments), len(db.DoctorAvailability))
				return nil
			})
		},
	}
}

func dumpCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:       "dump [db|notifications|messages]",
		Short:     "Print a stored document as indented JSON",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"db", "notifications", "messages"},
		RunE: func(cmd *cobra.Command, args []string) error {
			key, ok := documents[args[0]]
			if !ok {
				return fmt.Errorf("unknown document %q", args[0])
			}
			return withStore(configFile, func(ctx context.Context, _ *config.Config, st *store.Store) error {
				raw, err := st.RawDocument(ctx, key)
				if err != nil {
					return err
				}
				var out bytes.Buffer
				if err := json.Indent(&out, raw, "", "  "); err != nil {
					return fmt.Errorf("stored %s document is not valid JSON: %w", args[0], err)
				}
				out.WriteByte('\n')
				_, err = out.WriteTo(cmd.OutOrStdout())
				return err
			})
		},
	}
}

func migrateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Load every document once, seeding or upgrading it as configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(configFile, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				db, err := st.ReadDB(ctx)
				if err != nil {
					return err
				}
				if _, err := st.ReadNotifications(ctx); err != nil {
					return err
				}
				if _, err := st.ReadMessages(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "documents ready (mode %s, seed version %d)\n",
					cfg.Storage.MigrationMode, db.SeedVersion)
				return nil
			})
		},
	}
}

func remindCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run a single reminder pass and list what fired",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(configFile, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				svcs := app.NewServices(st, cfg, nil, nil)
				reminder := worker.NewReminder(st, svcs.Notification, cfg.Reminder.ToReminderConfig(), nil, nil)

				fired, err := reminder.Tick(ctx)
				if err != nil {
					return err
				}
				for _, d := range fired {
					for _, n := range d.Notifications {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s:%s\t%s\t%s\n", d.Kind, n.Recipient, n.RecipientID, n.Title, n.Message)
					}
				}
				if len(fired) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing due")
				}
				return nil
			})
		},
	}
}
