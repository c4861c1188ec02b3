package main

import (
	"github.com/spf13/cobra"
)

func newUninstallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <name>",
		Short: "Remove an installed binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := a.newInstaller()
			if err != nil {
				return err
			}

			receipt, err := inst.Uninstall(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			a.printf("==> Uninstalled %s %s from %s\n", receipt.Name, receipt.Version, receipt.Path)
			return nil
		},
	}
}
