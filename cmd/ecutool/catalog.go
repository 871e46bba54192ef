package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikolamrkic91-arch/ecutool/catalog"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the known coding-data containers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every known container",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, m := range catalog.All() {
				fmt.Fprintf(os.Stdout, "%s  %-6s 0x%02X  %s\n", m.CAFDID, m.ECU, m.ECUAddress, m.Name)
			}
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <cafd-id>",
		Short: "Show one container in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := catalog.Lookup(args[0])
			if m == nil {
				return fmt.Errorf("unknown cafd id %q", args[0])
			}
			printModule(*m)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Search containers by function",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			for _, m := range catalog.Search(args[0]) {
				fmt.Fprintf(os.Stdout, "%s  %-6s %s\n", m.CAFDID, m.ECU, m.Name)
			}
		},
	})
	return cmd
}

func printModule(m catalog.Module) {
	fmt.Fprintf(os.Stdout, "%s (%s, address 0x%02X)\n", m.Name, m.CAFDID, m.ECUAddress)
	fmt.Fprintln(os.Stdout, "functions:")
	for _, fn := range m.Functions {
		fmt.Fprintf(os.Stdout, "  %s\n", fn)
	}
	fmt.Fprintln(os.Stdout, "common modifications:")
	for _, mod := range m.CommonMods {
		fmt.Fprintf(os.Stdout, "  %s\n", mod)
	}
}
