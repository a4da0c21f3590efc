package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lmscert/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lmscert",
		Short: "Course completion certificate service",
		Long: `lmscert accepts certificate requests from students and vendors, lets
administrators approve or reject them, issues and emails certificate documents,
and answers public verification lookups.`,
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.MigrateCmd())
	rootCmd.AddCommand(cli.ResendFailedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
