package categories

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/crucial707/spend-ledger/cmd/cli/client"
	"github.com/crucial707/spend-ledger/cmd/cli/output"
)

// Category mirrors the API representation. Amounts stay strings to keep their precision.
type Category struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	ExpenseLimit *string `json:"expense_limit"`
	IsActive     bool    `json:"is_active"`
}

// ==========================
// Init Categories
// ==========================
func InitCategories(rootCmd *cobra.Command) {
	categoriesCmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "cat"},
		Short:   "Manage expense categories",
	}

	categoriesCmd.AddCommand(
		listCategoriesCmd(),
		createCategoryCmd(),
		updateCategoryCmd(),
		deleteCategoryCmd(),
	)

	rootCmd.AddCommand(categoriesCmd)
}

// ==========================
// LIST
// ==========================
func listCategoriesCmd() *cobra.Command {
	var jsonOut, all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			path := "/categories"
			if all {
				path += "?" + url.Values{"include_inactive": {"true"}}.Encode()
			}
			var cats []Category
			if err := c.Do("GET", path, nil, &cats); err != nil {
				return err
			}
			return output.Print(cmd.OutOrStdout(), jsonOut, cats,
				[]string{"ID", "Name", "Limit", "Active", "Description"},
				func() [][]any {
					rows := make([][]any, 0, len(cats))
					for _, cat := range cats {
						rows = append(rows, []any{cat.ID, cat.Name, limitText(cat.ExpenseLimit), cat.IsActive, cat.Description})
					}
					return rows
				})
		},
	}

	cmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "Output raw JSON")
	cmd.Flags().BoolVar(&all, "all", false, "Include deactivated categories")
	return cmd
}

// ==========================
// CREATE
// ==========================
func createCategoryCmd() *cobra.Command {
	var name, description, limit string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			payload := map[string]any{"name": name, "description": description}
			if limit != "" {
				payload["expense_limit"] = limit
			}
			var cat Category
			if err := c.Do("POST", "/categories", payload, &cat); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Category %q created (id %d)\n", cat.Name, cat.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Category name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Category description")
	cmd.Flags().StringVar(&limit, "limit", "", "Spending limit, e.g. 1000.00")
	cmd.MarkFlagRequired("name")
	return cmd
}

// ==========================
// UPDATE
// ==========================
func updateCategoryCmd() *cobra.Command {
	var name, description, limit string
	var clearLimit bool

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Update a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			payload := map[string]any{}
			if cmd.Flags().Changed("name") {
				payload["name"] = name
			}
			if cmd.Flags().Changed("description") {
				payload["description"] = description
			}
			switch {
			case clearLimit:
				payload["expense_limit"] = nil
			case limit != "":
				payload["expense_limit"] = limit
			}
			if len(payload) == 0 {
				return fmt.Errorf("nothing to update")
			}
			var cat Category
			if err := c.Do("PUT", "/categories/"+url.PathEscape(args[0]), payload, &cat); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Category %d updated (limit %s)\n", cat.ID, limitText(cat.ExpenseLimit))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&limit, "limit", "", "New spending limit")
	cmd.Flags().BoolVar(&clearLimit, "clear-limit", false, "Remove the spending limit")
	cmd.MarkFlagsMutuallyExclusive("limit", "clear-limit")
	return cmd
}

// ==========================
// DELETE
// ==========================
func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Deactivate a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			if err := c.Do("DELETE", "/categories/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Category deactivated")
			return nil
		},
	}
}

func limitText(l *string) string {
	if l == nil {
		return "-"
	}
	return *l
}
