package expenses

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/crucial707/spend-ledger/cmd/cli/client"
	"github.com/crucial707/spend-ledger/cmd/cli/output"
)

type Expense struct {
	ID           int    `json:"id"`
	Description  string `json:"description"`
	Amount       string `json:"amount"`
	DateIncurred string `json:"date_incurred"`
	CategoryID   int    `json:"category_id"`
	CategoryName string `json:"category_name"`
	UserID       int    `json:"user_id"`
}

type page struct {
	Items    []Expense `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// ==========================
// Init Expenses
// ==========================
func InitExpenses(rootCmd *cobra.Command) {
	expensesCmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"expense", "exp"},
		Short:   "Record and list expenses",
	}

	expensesCmd.AddCommand(
		listExpensesCmd(),
		getExpenseCmd(),
		createExpenseCmd(),
		updateExpenseCmd(),
		deleteExpenseCmd(),
	)

	rootCmd.AddCommand(expensesCmd)
}

// ==========================
// LIST
// ==========================
func listExpensesCmd() *cobra.Command {
	var (
		jsonOut          bool
		from, to         string
		categoryID       int
		pageNum, perPage int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			q := url.Values{}
			if from != "" {
				q.Set("start_date", from)
			}
			if to != "" {
				q.Set("end_date", to)
			}
			if categoryID > 0 {
				q.Set("category_id", strconv.Itoa(categoryID))
			}
			q.Set("page", strconv.Itoa(pageNum))
			q.Set("page_size", strconv.Itoa(perPage))

			var p page
			if err := c.Do("GET", "/expenses?"+q.Encode(), nil, &p); err != nil {
				return err
			}
			if err := output.Print(cmd.OutOrStdout(), jsonOut, p,
				[]string{"ID", "Date", "Amount", "Category", "Description"},
				func() [][]any {
					rows := make([][]any, 0, len(p.Items))
					for _, e := range p.Items {
						rows = append(rows, []any{e.ID, e.DateIncurred, e.Amount, e.CategoryName, e.Description})
					}
					return rows
				}); err != nil {
				return err
			}
			if !jsonOut {
				fmt.Fprintf(cmd.OutOrStdout(), "page %d, %d of %d expenses\n", p.Page, len(p.Items), p.Total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "Output raw JSON")
	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&categoryID, "category", 0, "Only this category id")
	cmd.Flags().IntVar(&pageNum, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "page-size", 10, "Page size")
	return cmd
}

// ==========================
// GET
// ==========================
func getExpenseCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var e Expense
			if err := c.Do("GET", "/expenses/"+url.PathEscape(args[0]), nil, &e); err != nil {
				return err
			}
			return output.Print(cmd.OutOrStdout(), jsonOut, e,
				[]string{"ID", "Date", "Amount", "Category", "Description", "User"},
				func() [][]any {
					return [][]any{{e.ID, e.DateIncurred, e.Amount, e.CategoryName, e.Description, e.UserID}}
				})
		},
	}
	cmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "Output raw JSON")
	return cmd
}

// ==========================
// CREATE
// ==========================
func createExpenseCmd() *cobra.Command {
	var (
		categoryID          int
		amount, date, descr string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record an expense",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			payload := map[string]any{
				"category_id":   categoryID,
				"amount":        amount,
				"date_incurred": date,
				"description":   descr,
			}
			var e Expense
			if err := c.Do("POST", "/expenses", payload, &e); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expense %d recorded: %s on %s in %s\n", e.ID, e.Amount, e.DateIncurred, e.CategoryName)
			return nil
		},
	}

	cmd.Flags().IntVar(&categoryID, "category", 0, "Category id (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 42.50 (required)")
	cmd.Flags().StringVar(&date, "date", "", "Date incurred (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&descr, "description", "", "Description")
	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("amount")
	cmd.MarkFlagRequired("date")
	return cmd
}

// ==========================
// UPDATE
// ==========================
func updateExpenseCmd() *cobra.Command {
	var (
		categoryID          int
		amount, date, descr string
	)

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Change an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			payload := map[string]any{}
			if cmd.Flags().Changed("category") {
				payload["category_id"] = categoryID
			}
			if cmd.Flags().Changed("amount") {
				payload["amount"] = amount
			}
			if cmd.Flags().Changed("date") {
				payload["date_incurred"] = date
			}
			if cmd.Flags().Changed("description") {
				payload["description"] = descr
			}
			if len(payload) == 0 {
				return fmt.Errorf("nothing to update")
			}
			var e Expense
			if err := c.Do("PUT", "/expenses/"+url.PathEscape(args[0]), payload, &e); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expense %d updated\n", e.ID)
			return nil
		},
	}

	cmd.Flags().IntVar(&categoryID, "category", 0, "Move to this category id")
	cmd.Flags().StringVar(&amount, "amount", "", "New amount")
	cmd.Flags().StringVar(&date, "date", "", "New date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&descr, "description", "", "New description")
	return cmd
}

// ==========================
// DELETE
// ==========================
func deleteExpenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			if err := c.Do("DELETE", "/expenses/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Expense deleted")
			return nil
		},
	}
}
