package reports

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/crucial707/spend-ledger/cmd/cli/client"
	"github.com/crucial707/spend-ledger/cmd/cli/output"
)

type categoryTotal struct {
	CategoryID  int    `json:"category_id"`
	Name        string `json:"name"`
	TotalAmount string `json:"total_amount"`
}

type monthTotal struct {
	Month       int    `json:"month"`
	TotalAmount string `json:"total_amount"`
	Count       int    `json:"count"`
}

type expense struct {
	ID           int    `json:"id"`
	Description  string `json:"description"`
	Amount       string `json:"amount"`
	DateIncurred string `json:"date_incurred"`
}

// InitReports registers the read-only report commands.
func InitReports(rootCmd *cobra.Command) {
	reportsCmd := &cobra.Command{
		Use:   "reports",
		Short: "Spending reports",
	}
	reportsCmd.PersistentFlags().BoolP("json", "j", false, "Output raw JSON")

	reportsCmd.AddCommand(topCmd(), monthlyCmd(), byCategoryCmd(), historyCmd())
	rootCmd.AddCommand(reportsCmd)
}

func topCmd() *cobra.Command {
	var from, to string
	var limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Categories with the highest spend",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			q := url.Values{"limit": {strconv.Itoa(limit)}}
			if from != "" {
				q.Set("start_date", from)
			}
			if to != "" {
				q.Set("end_date", to)
			}
			var totals []categoryTotal
			if err := c.Do("GET", "/expenses/top-categories?"+q.Encode(), nil, &totals); err != nil {
				return err
			}
			return printTotals(cmd, totals)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 5, "Number of categories")
	return cmd
}

func monthlyCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Totals per month of a year",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			path := "/expenses/monthly-summary"
			if year > 0 {
				path += "?year=" + strconv.Itoa(year)
			}
			var months []monthTotal
			if err := c.Do("GET", path, nil, &months); err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			return output.Print(cmd.OutOrStdout(), jsonOut, months,
				[]string{"Month", "Total", "Count"},
				func() [][]any {
					rows := make([][]any, 0, len(months))
					for _, m := range months {
						rows = append(rows, []any{m.Month, m.TotalAmount, m.Count})
					}
					return rows
				})
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Year (defaults to the current one)")
	return cmd
}

func byCategoryCmd() *cobra.Command {
	var categoryID int
	var from, to string

	cmd := &cobra.Command{
		Use:   "by-category",
		Short: "Expenses of one category within a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				// The endpoint also accepts an api key.
				if c, err = client.WithAPIKey(); err != nil {
					return err
				}
			}
			q := url.Values{
				"category_id": {strconv.Itoa(categoryID)},
				"start_date":  {from},
				"end_date":    {to},
			}
			var out []expense
			if err := c.Do("GET", "/expenses/by-category?"+q.Encode(), nil, &out); err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			return output.Print(cmd.OutOrStdout(), jsonOut, out,
				[]string{"ID", "Date", "Amount", "Description"},
				func() [][]any {
					rows := make([][]any, 0, len(out))
					for _, e := range out {
						rows = append(rows, []any{e.ID, e.DateIncurred, e.Amount, e.Description})
					}
					return rows
				})
		},
	}

	cmd.Flags().IntVar(&categoryID, "category", 0, "Category id (required)")
	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD, required)")
	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

// historyCmd calls the api-key only history report; set SPEND_API_KEY.
func historyCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Top three categories of the current month, quarter or year",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.WithAPIKey()
			if err != nil {
				return err
			}
			var totals []categoryTotal
			if err := c.Do("GET", "/expenses/top-categories-history?"+url.Values{"period": {period}}.Encode(), nil, &totals); err != nil {
				return err
			}
			return printTotals(cmd, totals)
		},
	}

	cmd.Flags().StringVar(&period, "period", "all", "month, quarter, year or all")
	return cmd
}

func printTotals(cmd *cobra.Command, totals []categoryTotal) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	return output.Print(cmd.OutOrStdout(), jsonOut, totals,
		[]string{"Rank", "Category", "Total"},
		func() [][]any {
			rows := make([][]any, 0, len(totals))
			for i, t := range totals {
				rows = append(rows, []any{i + 1, t.Name, t.TotalAmount})
			}
			return rows
		})
}
