package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		vin   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show logged coding transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := loadProfile()
			if err != nil {
				return err
			}
			store, err := openHistory(profile)
			if err != nil {
				return err
			}
			recs, err := store.Query(vin, limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(os.Stdout, "no transactions")
				return nil
			}
			for _, rec := range recs {
				fmt.Fprintf(os.Stdout, "%s  %-7s %-8s %-18s %s\n",
					rec.Timestamp.Local().Format(time.DateTime),
					rec.Status, rec.Type, rec.VIN, rec.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&vin, "vin", "", "only show transactions for this VIN")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of transactions to show")
	return cmd
}
