package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed binaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := a.newInstaller()
			if err != nil {
				return err
			}

			receipts, err := inst.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(receipts) == 0 {
				fmt.Fprintln(out, "No packages installed.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tVERSION\tTARGET\tPATH\tVERIFIED")
			for _, r := range receipts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Version, r.Target, r.Path, strings.Join(r.Verified, "+"))
			}
			return tw.Flush()
		},
	}
}
