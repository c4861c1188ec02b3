package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newTestCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test <descriptor|name>",
		Short: "Run the smoke test of an installed binary",
		Long: `Test runs the installed binary with the descriptor's test arguments
(--version by default). The exit code mirrors the binary's exit code, or is 1
if it could not be started.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := a.loadDescriptor(ctx, args[0])
			if err != nil {
				return err
			}

			inst, err := a.newInstaller()
			if err != nil {
				return err
			}

			result, err := inst.Test(ctx, d)
			if err != nil {
				code := 1
				if result != nil && result.ExitCode != 0 {
					code = result.ExitCode
				}
				return &exitError{code: code, err: err}
			}

			if out := strings.TrimSpace(result.Output); out != "" {
				a.printf("%s\n", out)
			}
			a.printf("==> %s %s passed\n", inst.BinPath(d), strings.Join(d.TestArgs(), " "))
			return nil
		},
	}
}
