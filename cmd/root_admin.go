package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
)

var (
	hashPassword string
	hashCost     int
)

var rootAdminCmd = &cobra.Command{
	Use:   "root-admin",
	Short: "Root admin session utilities",
}

var rootAdminTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a signed root admin session token",
	Long: `Prints a root_admin_session cookie value for the configured root admin email.
Requires root_admin.email and root_admin.session_secret.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.RootAdmin.Enabled() {
			return errors.New("root admin is not configured: set root_admin.email and root_admin.session_secret")
		}

		signer, err := auth.NewRootAdminSigner([]byte(cfg.RootAdmin.SessionSecret), cfg.RootAdmin.SessionTTL)
		if err != nil {
			return err
		}
		token, expiresAt, err := signer.Issue(cfg.RootAdmin.Email)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cookie:     %s\n", auth.RootAdminCookieName)
		fmt.Fprintf(out, "Token:      %s\n", token)
		fmt.Fprintf(out, "Expires at: %s\n", expiresAt.Format(time.RFC3339))
		return nil
	},
}

var rootAdminHashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt hash for root_admin.password_hash",
	Long:  `Hashes --password, or the first line of stdin when the flag is omitted.`,
	// Needs no configuration or database.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		password := hashPassword
		if password == "" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		if password == "" {
			return errors.New("password must not be empty")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(hash))
		return nil
	},
}

func init() {
	rootAdminHashPasswordCmd.Flags().StringVar(&hashPassword, "password", "", "Password to hash (read from stdin when empty)")
	rootAdminHashPasswordCmd.Flags().IntVar(&hashCost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	rootCmd.AddCommand(rootAdminCmd)
	rootAdminCmd.AddCommand(rootAdminTokenCmd)
	rootAdminCmd.AddCommand(rootAdminHashPasswordCmd)
}
