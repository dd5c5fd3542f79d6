package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/bunx"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/logging"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/repository"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/services/iam"
)

var (
	sessionUserID   string
	sessionTenantID string
	sessionEmail    string
	sessionName     string
	sessionRoleHint string
	sessionToken    string
	revokeUserID    string
	listUserID      string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage cookie sessions",
}

var sessionsIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Create a cookie session for a user",
	Long: `Creates a server-side session and prints the cookie token. Only the token
hash is stored; the token cannot be recovered later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bunx.NewDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		sessions := iam.NewSessionAuthenticator(repository.NewBunSessionRepository(db),
			iam.WithCookieName(cfg.Auth.SessionCookieName),
			iam.WithSessionTTL(cfg.Auth.SessionTTL),
		)

		in := iam.NewSession{
			UserID:   sessionUserID,
			Email:    sessionEmail,
			Name:     sessionName,
			RoleHint: sessionRoleHint,
		}
		if sessionTenantID != "" {
			in.TenantID = &sessionTenantID
		}

		token, session, err := sessions.CreateSession(cmd.Context(), in)
		if err != nil {
			return err
		}

		logging.Info().Str("session_id", session.ID).Str("user_id", session.UserID).Msg("session issued")

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cookie:     %s\n", sessions.CookieName())
		fmt.Fprintf(out, "Token:      %s\n", token)
		fmt.Fprintf(out, "Expires at: %s\n", session.ExpiresAt.Format(time.RFC3339))
		return nil
	},
}

var sessionsRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke a cookie session by its token, or every session of a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bunx.NewDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		sessions := iam.NewSessionAuthenticator(repository.NewBunSessionRepository(db))
		if revokeUserID != "" {
			if err := sessions.RevokeUserSessions(cmd.Context(), revokeUserID); err != nil {
				return fmt.Errorf("failed to revoke sessions: %w", err)
			}
			logging.Info().Str("user_id", revokeUserID).Msg("user sessions revoked")
			fmt.Fprintf(cmd.OutOrStdout(), "Sessions of %s revoked\n", revokeUserID)
			return nil
		}

		if err := sessions.RevokeSession(cmd.Context(), sessionToken); err != nil {
			return fmt.Errorf("failed to revoke session: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Session revoked")
		return nil
	},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the cookie sessions of a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bunx.NewDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		sessions := iam.NewSessionAuthenticator(repository.NewBunSessionRepository(db))
		list, err := sessions.ListSessions(cmd.Context(), listUserID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No sessions")
			return nil
		}
		now := time.Now()
		for _, s := range list {
			state := "active"
			switch {
			case s.Revoked:
				state = "revoked"
			case !now.Before(s.ExpiresAt):
				state = "expired"
			}
			tenantID := "-"
			if s.TenantID != nil {
				tenantID = *s.TenantID
			}
			fmt.Fprintf(out, "%s  %-8s tenant=%s created=%s expires=%s\n",
				s.ID, state, tenantID, s.CreatedAt.Format(time.RFC3339), s.ExpiresAt.Format(time.RFC3339))
		}
		return nil
	},
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cookie sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bunx.NewDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		sessions := iam.NewSessionAuthenticator(repository.NewBunSessionRepository(db))
		n, err := sessions.PruneExpired(cmd.Context())
		if err != nil {
			return err
		}

		logging.Info().Int64("deleted", n).Msg("expired sessions pruned")
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired session(s)\n", n)
		return nil
	},
}

func init() {
	sessionsIssueCmd.Flags().StringVar(&sessionUserID, "user-id", "", "Auth provider user id (required)")
	sessionsIssueCmd.Flags().StringVar(&sessionTenantID, "tenant-id", "", "Bind the session to a tenant")
	sessionsIssueCmd.Flags().StringVar(&sessionEmail, "email", "", "Email used when no profile row exists")
	sessionsIssueCmd.Flags().StringVar(&sessionName, "name", "", "Display name used when no profile row exists")
	sessionsIssueCmd.Flags().StringVar(&sessionRoleHint, "role-hint", "", "Role used when no profile row exists")
	_ = sessionsIssueCmd.MarkFlagRequired("user-id")

	sessionsRevokeCmd.Flags().StringVar(&sessionToken, "token", "", "Session cookie token")
	sessionsRevokeCmd.Flags().StringVar(&revokeUserID, "user-id", "", "Revoke every session of this user")
	sessionsRevokeCmd.MarkFlagsOneRequired("token", "user-id")
	sessionsRevokeCmd.MarkFlagsMutuallyExclusive("token", "user-id")

	sessionsListCmd.Flags().StringVar(&listUserID, "user-id", "", "Auth provider user id (required)")
	_ = sessionsListCmd.MarkFlagRequired("user-id")

	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsIssueCmd)
	sessionsCmd.AddCommand(sessionsRevokeCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsPruneCmd)
}
