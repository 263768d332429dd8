package commands

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// fingerprintCmd prints the short fingerprint of a stored identity.
func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <address>",
		Short: "Show the fingerprint of a stored identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("%q is not an address", args[0])
			}
			fp, err := appCtx.Identity.Fingerprint(passphrase, common.HexToAddress(args[0]))
			if err != nil {
				return err
			}
			fmt.Println(fp)
			return nil
		},
	}
}
