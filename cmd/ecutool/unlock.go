package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikolamrkic91-arch/ecutool/history"
	"github.com/nikolamrkic91-arch/ecutool/seedkey"
)

func newUnlockCmd() *cobra.Command {
	var level uint8
	cmd := &cobra.Command{
		Use:   "unlock <ecu>",
		Short: "Run the security access handshake against an ECU",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := loadProfile()
			if err != nil {
				return err
			}
			ecu, err := profile.ECUAddress(args[0])
			if err != nil {
				return err
			}

			log := newLogger()
			client, sess, err := newUDSClient(profile, log)
			if err != nil {
				return err
			}
			defer sess.Disconnect()

			store, err := openHistory(profile)
			if err != nil {
				return err
			}

			unlockErr := client.Unlock(ecu, seedkey.Level(level), seedkey.B48{})
			status := history.StatusSuccess
			desc := fmt.Sprintf("unlock %s level %d", args[0], level)
			if unlockErr != nil {
				status = history.StatusFailed
				desc = fmt.Sprintf("%s: %v", desc, unlockErr)
			}
			rec := history.NewRecord(history.TypeUnlock, "", profile.Vehicle.Description(), desc, status)
			if err := store.Append(rec); err != nil {
				log.Warn().Err(err).Msg("failed to log transaction")
			}
			if unlockErr != nil {
				return unlockErr
			}
			fmt.Fprintf(os.Stdout, "%s unlocked at level %d\n", args[0], level)
			return nil
		},
	}
	cmd.Flags().Uint8Var(&level, "level", uint8(seedkey.LevelCoding), "security access level (3 coding, 4 flash)")
	return cmd
}
