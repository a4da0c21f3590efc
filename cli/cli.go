// Package cli defines the lmscert commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lmscert/app"
	"lmscert/config"
	"lmscert/database"
	"lmscert/services"
	"lmscert/utils"
)

// ServeCmd runs the HTTP API and the optional resend scheduler.
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the certificate HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			log := utils.NewLogger(cfg.LogLevel)
			database.ConnectDb(cfg)

			a, err := app.New(cfg, database.Database.Db, log, app.Options{})
			if err != nil {
				return err
			}

			scheduler, err := utils.StartResendScheduler(cfg.ResendSchedule, a.Issuance, cfg.EmailTimeout*resendBatchFactor, log)
			if err != nil {
				return fmt.Errorf("start resend scheduler: %w", err)
			}
			if scheduler != nil {
				defer scheduler.Stop()
			}

			server := a.Server()
			go func() {
				stop := make(chan os.Signal, 1)
				signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
				<-stop
				log.Info("shutting down")
				server.Shutdown()
			}()

			log.Infof("Server is running on port %s", cfg.Port)
			return server.Listen(":" + cfg.Port)
		},
	}
}

// resendBatchFactor bounds a scheduled resend pass to this many email timeouts.
const resendBatchFactor = 60

// MigrateCmd creates or updates the schema and seeds default settings.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database and seed default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			database.ConnectDb(cfg)
			fmt.Printf("%s schema migrated and settings seeded (%s)\n", color.New(color.FgGreen).Sprint("✓"), cfg.DBDriver)
			return nil
		},
	}
}

// ResendFailedCmd retries every email_failed certificate once.
func ResendFailedCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "resend-failed",
		Short: "Resend certificates whose issuance email failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			log := utils.NewLogger(cfg.LogLevel)
			database.ConnectDb(cfg)

			a, err := app.New(cfg, database.Database.Db, log, app.Options{})
			if err != nil {
				return err
			}

			result, err := a.Issuance.ResendFailed(context.Background(), utils.SchedulerAdminID, limit)
			if err != nil {
				return err
			}
			printBulkResult(result)
			if result.Failed > 0 {
				return fmt.Errorf("%d certificate(s) still not delivered", result.Failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of certificates to retry")
	return cmd
}

func printBulkResult(result services.BulkResult) {
	if len(result.Items) == 0 {
		fmt.Println("No failed certificates.")
		return
	}
	for _, item := range result.Items {
		if item.Error == "" {
			fmt.Printf("  %s %s\n", color.New(color.FgGreen).Sprint("SENT  "), item.CertificateID)
			continue
		}
		fmt.Printf("  %s %s: %s\n", color.New(color.FgRed).Sprint("FAILED"), item.CertificateID, item.Error)
	}
	fmt.Printf("\n%d sent, %d failed\n", result.Processed, result.Failed)
}
