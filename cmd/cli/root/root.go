package root

import (
	"github.com/spf13/cobra"
)

// RootCmd is the top level "spend" command.
var RootCmd = &cobra.Command{
	Use:           "spend",
	Short:         "Spend ledger CLI",
	Long:          "Command line interface for the spend-ledger expense tracking API.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// GetRoot returns the RootCmd.
func GetRoot() *cobra.Command {
	return RootCmd
}
