package apikeys

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/crucial707/spend-ledger/cmd/cli/client"
	"github.com/crucial707/spend-ledger/cmd/cli/output"
)

type apiKey struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	KeyPreview string `json:"key_preview"`
	CreatedAt  string `json:"created_at"`
	Key        string `json:"key,omitempty"`
}

// InitAPIKeys registers create, list and delete for the caller's api keys.
func InitAPIKeys(rootCmd *cobra.Command) {
	keysCmd := &cobra.Command{
		Use:   "apikeys",
		Short: "Manage your api keys",
	}
	keysCmd.AddCommand(createKeyCmd(), listKeysCmd(), deleteKeyCmd())
	rootCmd.AddCommand(keysCmd)
}

func createKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create an api key; the key is shown once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var k apiKey
			if err := c.Do("POST", "/api-keys", map[string]string{"name": args[0]}, &k); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Api key %q created. Store it now, it will not be shown again:\n%s\n", k.Name, k.Key)
			return nil
		},
	}
}

func listKeysCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active api keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var keys []apiKey
			if err := c.Do("GET", "/api-keys", nil, &keys); err != nil {
				return err
			}
			return output.Print(cmd.OutOrStdout(), jsonOut, keys,
				[]string{"ID", "Name", "Key", "Created"},
				func() [][]any {
					rows := make([][]any, 0, len(keys))
					for _, k := range keys {
						rows = append(rows, []any{k.ID, k.Name, k.KeyPreview, k.CreatedAt})
					}
					return rows
				})
		},
	}
	cmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "Output raw JSON")
	return cmd
}

func deleteKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete [id]",
		Aliases: []string{"revoke"},
		Short:   "Revoke an api key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			if err := c.Do("DELETE", "/api-keys/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Api key revoked")
			return nil
		},
	}
}
