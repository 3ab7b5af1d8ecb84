package main

import (
	"github.com/skiyl9x/ghsecret/internal/config"
	"github.com/spf13/cobra"
)

func newPublicKeyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "public-key --lg=LOGIN --tk=TOKEN --repo=REPO",
		Short: "Print the repository public key used to encrypt secrets",
		Long: `Fetch the repository's Actions public key and print its key_id and
base64 key. Useful to check credentials and repository access without
changing any secret.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.reportMetrics()

			updater, err := a.prepare(cmd.Context(), config.ModePublicKey)
			if err != nil {
				return err
			}

			stop := a.out.Progress("Fetching public key...")
			key, err := updater.PublicKey(cmd.Context())
			stop()
			if err != nil {
				return a.keyFetchFailed(err)
			}

			return a.out.PublicKey(updater.Repository(), key)
		},
	}
}
