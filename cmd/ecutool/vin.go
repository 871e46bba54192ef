package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newVINCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vin",
		Short: "Read the vehicle identification number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := loadProfile()
			if err != nil {
				return err
			}
			client, sess, err := newUDSClient(profile, newLogger())
			if err != nil {
				return err
			}
			defer sess.Disconnect()

			vin, err := client.ReadVIN()
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, vin)
			return nil
		},
	}
}
