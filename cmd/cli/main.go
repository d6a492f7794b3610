package main

import (
	"fmt"
	"os"

	"github.com/crucial707/spend-ledger/cmd/cli/apikeys"
	"github.com/crucial707/spend-ledger/cmd/cli/audit"
	"github.com/crucial707/spend-ledger/cmd/cli/auth"
	"github.com/crucial707/spend-ledger/cmd/cli/categories"
	"github.com/crucial707/spend-ledger/cmd/cli/expenses"
	"github.com/crucial707/spend-ledger/cmd/cli/reports"
	"github.com/crucial707/spend-ledger/cmd/cli/root"
)

func main() {
	rootCmd := root.GetRoot()
	auth.InitAuth(rootCmd)
	categories.InitCategories(rootCmd)
	expenses.InitExpenses(rootCmd)
	reports.InitReports(rootCmd)
	audit.InitAudit(rootCmd)
	apikeys.InitAPIKeys(rootCmd)

	// Execute the root Cobra command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
