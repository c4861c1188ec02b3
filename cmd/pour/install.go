package main

import (
	"github.com/spf13/cobra"

	"github.com/kyrylokulyhin/pour/internal/installer"
)

func newInstallCommand(a *app) *cobra.Command {
	var opts installer.InstallOptions

	cmd := &cobra.Command{
		Use:   "install <descriptor|name>",
		Short: "Download, verify and install a binary",
		Long: `Install fetches the release archive named by the descriptor, checks its
SHA-256 digest, installs the binary into the prefix and runs its smoke test.
A failed smoke test restores the previously installed binary.`,
		Example: `  pour install ./Formula/ecs-exec.lua
  pour install --tap https://github.com/kyrylokulyhin/homebrew-tap ecs-exec`,
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

			result, err := inst.Install(ctx, d, opts)
			if err != nil {
				if stage, ok := installer.FailedStage(err); ok {
					a.logger.Debug("install failed", "name", d.Name(), "stage", string(stage))
				}
				return err
			}

			if result.Skipped {
				a.printf("%s %s is already installed at %s\n", result.Name, result.Version, result.Path)
				return nil
			}
			a.printf("==> Installed %s %s (%s) to %s, verified by %s\n",
				result.Name, result.Version, result.Target, result.Path, installer.MethodNames(result.Verified))
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "ignore cached downloads")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "reinstall even if this version is already installed")

	return cmd
}
