package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <ecu> <did>",
		Short: "Read a parameter from an ECU",
		Long: `Read one data identifier from an ECU. The ECU is named by its short
profile name (DME, FEM, BDC, ...) and the identifier is given in hex,
e.g. 0xF190.`,
		Args: cobra.ExactArgs(2),
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

			value, err := client.ReadParameter(ecu, did)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, renderValue(value))
			return nil
		},
	}
}

func parseDID(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid data identifier %q: %w", s, err)
	}
	return uint16(v), nil
}

func renderValue(value []byte) string {
	if utf8.Valid(value) {
		return string(value)
	}
	return hex.EncodeToString(value)
}
