package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aldrienne/remit/internal/buildinfo"
)

// configFile is the project configuration written by init and read by
// every other command.
const configFile = "remit.yaml"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "remit",
		Short:   "Vendor remittance notification batch",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newMapCommand())
	rootCmd.AddCommand(newRunCommand())

	return rootCmd
}
