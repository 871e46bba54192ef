package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nikolamrkic91-arch/ecutool/coding"
	"github.com/nikolamrkic91-arch/ecutool/config"
	"github.com/nikolamrkic91-arch/ecutool/seedkey"
)

func newCodeCmd() *cobra.Command {
	var vin string
	cmd := &cobra.Command{
		Use:   "code <modification>",
		Short: "Apply a coding modification from the vehicle profile",
		Long: `Apply a named coding modification. The modification must exist in the
vehicle profile; run "ecutool code list" to see what is available. The
target ECU is unlocked for coding and every parameter of the
modification is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := loadProfile()
			if err != nil {
				return err
			}
			if args[0] == "list" {
				return listModifications(profile)
			}

			log := newLogger()
			client, sess, err := newUDSClient(profile, log)
			if err != nil {
				return err
			}
			defer sess.Disconnect()

			if vin == "" {
				if vin, err = client.ReadVIN(); err != nil {
					log.Warn().Err(err).Msg("could not read VIN")
					vin = "UNKNOWN"
				}
			}

			store, err := openHistory(profile)
			if err != nil {
				return err
			}
			app := coding.NewApplicator(profile, client, seedkey.B48{}, store, coding.WithLogger(log))
			if err := app.Apply(args[0], vin); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "applied %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&vin, "vin", "", "VIN to record in the history (read from the vehicle when omitted)")
	return cmd
}

func listModifications(profile *config.Profile) error {
	names := make([]string, 0, len(profile.Modifications))
	for name := range profile.Modifications {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		mod := profile.Modifications[name]
		fmt.Fprintf(os.Stdout, "%-24s %s (%d parameters)\n", name, mod.ECU, len(mod.Parameters))
	}
	return nil
}
