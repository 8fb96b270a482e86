package cmd

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/edusis/campuscal/internal/provider/google"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize read access to Google Calendar",
	Long: `Open the printed URL, grant read-only calendar access and paste the
code Google shows back here. The token is saved to google.token_file and
refreshed automatically afterwards.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	if !cfg.Google.Enabled() {
		return errors.New("google.credentials_file is not set")
	}
	conf, err := google.OAuthConfig(cfg.Google.CredentialsFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	read := func(authURL string) (string, error) {
		fmt.Fprintf(out, "Open this URL in your browser:\n\n  %s\n\n", authURL)
		prompt := promptui.Prompt{
			Label: "Authorization code",
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("code is empty")
				}
				return nil
			},
		}
		return prompt.Run()
	}

	if _, err := google.Login(cmd.Context(), conf, cfg.Google.TokenFile, read); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token saved to %s\n", cfg.Google.TokenFile)
	return nil
}
