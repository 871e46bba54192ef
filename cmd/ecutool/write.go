package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikolamrkic91-arch/ecutool/seedkey"
)

func newWriteCmd() *cobra.Command {
	var unlock bool
	cmd := &cobra.Command{
		Use:   "write <ecu> <did> <value>",
		Short: "Write a parameter on an ECU",
		Long: `Write one data identifier on an ECU. Coding parameters usually sit
behind security access; pass --unlock to run the seed/key handshake
first.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := loadProfile()
			if err != nil {
				return err
			}
			ecu, err := profile.ECUAddress(args[0])
			if err != nil {
				return err
			}
			did, err := parseDID(args[1])
			if err != nil {
				return err
			}

			client, sess, err := newUDSClient(profile, newLogger())
			if err != nil {
				return err
			}
			defer sess.Disconnect()

			if unlock {
				if err := client.Unlock(ecu, seedkey.LevelCoding, seedkey.B48{}); err != nil {
					return err
				}
			}
			if err := client.WriteParameter(ecu, did, []byte(args[2])); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s %s = %s\n", args[0], args[1], args[2])
			return nil
		},
	}
	cmd.Flags().BoolVar(&unlock, "unlock", false, "unlock the ECU for coding before writing")
	return cmd
}
