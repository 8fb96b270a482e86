package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edusis/campuscal/internal/accounts"
)

var (
	hashDriver string
	hashDSN    string
	hashCost   int
)

var hashPasswordsCmd = &cobra.Command{
	Use:   "hash-passwords",
	Short: "Replace plaintext passwords in the accounts table with bcrypt hashes",
	Long: `One-off maintenance for the campus accounts database. Every row whose
password is not already a bcrypt hash is rehashed in place. Running it
twice is harmless.`,
	Args: cobra.NoArgs,
	RunE: runHashPasswords,
}

func init() {
	hashPasswordsCmd.Flags().StringVar(&hashDriver, "driver", "", "database driver, mysql or postgres (default database.driver)")
	hashPasswordsCmd.Flags().StringVar(&hashDSN, "dsn", "", "data source name (default database.dsn)")
	hashPasswordsCmd.Flags().IntVar(&hashCost, "cost", accounts.DefaultCost, "bcrypt cost")
	rootCmd.AddCommand(hashPasswordsCmd)
}

func runHashPasswords(cmd *cobra.Command, args []string) error {
	driver, dsn := cfg.Database.Driver, cfg.Database.DSN
	if hashDriver != "" {
		driver = hashDriver
	}
	if hashDSN != "" {
		dsn = hashDSN
	}

	log := cliLogger(cmd)
	repo, err := accounts.Open(cmd.Context(), driver, dsn)
	if err != nil {
		return err
	}
	defer repo.Close()

	report, err := accounts.HashPasswords(cmd.Context(), repo, hashCost, log)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d users: %d hashed, %d skipped, %d failed\n",
		report.Total, report.Hashed, report.Skipped, report.Failed)
	if report.Failed > 0 {
		return fmt.Errorf("%d passwords could not be hashed", report.Failed)
	}
	return nil
}
