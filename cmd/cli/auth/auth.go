package auth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/crucial707/spend-ledger/cmd/cli/client"
	"github.com/crucial707/spend-ledger/cmd/cli/config"
	"github.com/crucial707/spend-ledger/cmd/cli/output"
)

// InitAuth registers login, logout, register and whoami on the root command.
func InitAuth(rootCmd *cobra.Command) {
	rootCmd.AddCommand(loginCmd(), logoutCmd(), registerCmd(), whoamiCmd())
}

// loginCmd logs in a user and stores the JWT token locally.
func loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the spend-ledger API",
		Long:  "Authenticate with email and password and store a JWT token for subsequent CLI commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				p, err := promptPassword(cmd)
				if err != nil {
					return err
				}
				password = p
			}

			var loginResp struct {
				Token string `json:"token"`
			}
			err := client.New().Do("POST", "/auth/login", map[string]string{"email": email, "password": password}, &loginResp)
			if err != nil {
				return fmt.Errorf("failed to login: %w", err)
			}
			if loginResp.Token == "" {
				return fmt.Errorf("login succeeded but no token returned")
			}
			if err := config.SaveToken(loginResp.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Login successful. Token stored locally.")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email to authenticate as")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the locally stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := config.RemoveToken()
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintln(cmd.OutOrStdout(), "No user logged in.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out successfully.")
			return nil
		},
	}
}

// registerCmd creates a company with its first admin user.
func registerCmd() *cobra.Command {
	var company, address, website, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a company and its admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := promptPassword(cmd)
				if err != nil {
					return err
				}
				password = p
			}
			payload := map[string]string{
				"company_name": company,
				"address":      address,
				"website":      website,
				"email":        email,
				"password":     password,
			}
			var out struct {
				Company struct {
					ID   int    `json:"id"`
					Name string `json:"name"`
				} `json:"company"`
			}
			if err := client.New().Do("POST", "/auth/register", payload, &out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Company %q registered (id %d). You can now login.\n", out.Company.Name, out.Company.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&company, "company", "", "Company name (required)")
	cmd.Flags().StringVar(&address, "address", "", "Company address")
	cmd.Flags().StringVar(&website, "website", "", "Company website")
	cmd.Flags().StringVar(&email, "email", "", "Admin email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted when omitted)")
	cmd.MarkFlagRequired("company")
	cmd.MarkFlagRequired("email")
	return cmd
}

func whoamiCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var me struct {
				ID        int    `json:"id"`
				Email     string `json:"email"`
				CompanyID int    `json:"company_id"`
				IsAdmin   bool   `json:"is_admin"`
			}
			if err := c.Do("GET", "/auth/me", nil, &me); err != nil {
				return err
			}
			if jsonOut {
				return output.PrintJSON(cmd.OutOrStdout(), me)
			}
			output.RenderTable(cmd.OutOrStdout(),
				[]string{"ID", "Email", "Company", "Admin"},
				[][]any{{me.ID, me.Email, me.CompanyID, me.IsAdmin}})
			return nil
		},
	}
	cmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "Output raw JSON")
	return cmd
}

// promptPassword reads a password without echo when stdin is a terminal, and a plain line
// otherwise (pipes, tests).
func promptPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
