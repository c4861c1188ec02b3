package main

import (
	"github.com/spf13/cobra"

	"github.com/kyrylokulyhin/pour/internal/installer"
)

func newFetchCommand(a *app) *cobra.Command {
	var opts installer.InstallOptions

	cmd := &cobra.Command{
		Use:   "fetch <descriptor|name>",
		Short: "Download and verify an archive without installing it",
		Long: `Fetch downloads the release archive and verifies it, then stores it in
the download cache so a later install works offline.`,
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

			result, err := inst.Fetch(ctx, d, opts)
			if err != nil {
				return err
			}

			source := "downloaded"
			if result.FromCache {
				source = "cached"
			}
			a.printf("==> %s %s (%s) %s, verified by %s\n",
				result.Name, result.Version, result.Target, source, installer.MethodNames(result.Verified))
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "ignore cached downloads")
	return cmd
}
