package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"verbeth/internal/wallet"
)

// initCmd derives a fresh identity from a newly generated local wallet and
// stores it encrypted under the passphrase.
func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a wallet and derive your messaging identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := wallet.NewLocalSigner()
			if err != nil {
				return err
			}
			kp, _, err := appCtx.Identity.DeriveAndStore(cmd.Context(), signer, passphrase)
			if err != nil {
				return fmt.Errorf("deriving identity: %w", err)
			}
			fmt.Printf("Address:     %s\n", signer.Address())
			fmt.Printf("X25519 key:  %x\n", kp.X25519Pub)
			fmt.Printf("Ed25519 key: %x\n", kp.EdPub)
			return nil
		},
	}
}
