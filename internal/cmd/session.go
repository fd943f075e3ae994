package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thumbsmith/thumbsmith/internal/auth"
	"github.com/thumbsmith/thumbsmith/internal/config"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage API session tokens",
}

var sessionIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a bearer token for the HTTP API",
	Long: `Issue a signed session token for the HTTP API. The token is signed with
auth.session_secret and identifies the user given by --user (or auth.user_id).`,
	Args: cobra.NoArgs,
	RunE: runSessionIssue,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionIssueCmd)

	sessionIssueCmd.Flags().String("email", "", "Email claim for the session")
	sessionIssueCmd.Flags().Duration("ttl", 0, "Token lifetime (default: auth.session_ttl)")
	sessionIssueCmd.Flags().Bool("json", false, "Output token and expiry as JSON")
}

func runSessionIssue(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(cfg.Auth.UserID) == "" {
		return errors.New("a user id is required (--user or auth.user_id)")
	}

	manager, err := auth.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return fmt.Errorf("%w (set %s_AUTH_SESSION_SECRET)", err, config.EnvPrefix)
	}

	token, expires, err := manager.Issue(auth.User{ID: cfg.Auth.UserID, Email: email}, ttl)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"token":      token,
			"user_id":    cfg.Auth.UserID,
			"expires_at": expires.UTC().Format(time.RFC3339),
		})
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
