package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// contactsCmd lists stored sessions and outstanding handshakes.
func contactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List sessions and pending handshakes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := appCtx.Sessions.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range sessions {
				fmt.Printf("session %s  contact=%s  epoch=%d\n",
					s.ConversationID.Hex(), s.ContactAddress.Hex(), s.TopicEpoch)
			}
			pendings, err := appCtx.Contacts.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range pendings {
				fmt.Printf("pending %s  tx=%s\n", p.ContactAddress.Hex(), p.TxHash.Hex())
			}
			if len(sessions) == 0 && len(pendings) == 0 {
				fmt.Println("no contacts")
			}
			return nil
		},
	}
}
