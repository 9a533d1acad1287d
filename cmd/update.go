package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smazurov/devup/internal/updater"
	"github.com/spf13/cobra"
)

const updateTimeout = 5 * time.Minute

// CreateUpdateCmd creates the self-update command.
func CreateUpdateCmd() *cobra.Command {
	var (
		checkOnly  bool
		rollback   bool
		prerelease bool
		repository string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update devup to the latest release",
		Long: `Downloads the latest GitHub release for this platform and replaces the running binary. ` +
			`The replaced binary is kept for --rollback.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()

			u, err := updater.New(updater.Options{Repository: repository, Prerelease: prerelease})
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				os.Exit(1)
			}

			if rollback {
				ver, rbErr := u.Rollback()
				if rbErr != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "Error:", rbErr)
					os.Exit(1)
				}
				fmt.Fprintf(out, "Restored devup %s\n", ver)
				return
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, updateTimeout)
			defer cancel()

			if checkOnly {
				info, checkErr := u.Check(ctx)
				if checkErr != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "Error:", checkErr)
					os.Exit(1)
				}
				if info.UpdateAvailable {
					fmt.Fprintf(out, "Update available: %s -> %s\n%s\n", info.CurrentVersion, info.LatestVersion, info.ReleaseURL)
				} else {
					fmt.Fprintf(out, "devup %s is up to date\n", info.CurrentVersion)
				}
				return
			}

			info, applyErr := u.Apply(ctx)
			switch {
			case errors.Is(applyErr, updater.ErrNoUpdate):
				fmt.Fprintf(out, "devup %s is up to date\n", info.CurrentVersion)
			case applyErr != nil:
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", applyErr)
				os.Exit(1)
			default:
				fmt.Fprintf(out, "Updated devup %s -> %s\n", info.CurrentVersion, info.LatestVersion)
			}
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether an update is available")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Restore the binary replaced by the last update")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Include prereleases")
	cmd.Flags().StringVar(&repository, "repository", updater.DefaultRepository, "GitHub repository to update from")
	return cmd
}
