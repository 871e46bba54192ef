package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikolamrkic91-arch/ecutool/cafd"
)

func newCAFDCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cafd",
		Short: "Work with coding-data container files",
	}
	cmd.AddCommand(newCAFDDecodeCmd())
	return cmd
}

func newCAFDDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode the parameter records of a coding-data container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			params, err := cafd.Decode(blob)
			if err != nil {
				return err
			}
			if len(params) == 0 {
				fmt.Fprintln(os.Stdout, "no parameter records")
				return nil
			}
			for _, p := range params {
				fmt.Fprintf(os.Stdout, "0x%04X  %s\n", p.ID, p.Value)
			}
			return nil
		},
	}
}
