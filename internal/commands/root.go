package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JoeShih716/go-ledger/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ledger",
		Short:   "Account balances with an append-only transaction log",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newAccountCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newBenchCommand())

	return rootCmd
}
