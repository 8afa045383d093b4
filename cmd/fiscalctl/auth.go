package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/fiscal/internal/infrastructure/auth"
	"github.com/erp/fiscal/internal/infrastructure/cache"
	"github.com/erp/fiscal/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Credentials for the API",
}

var authHashKeyCmd = &cobra.Command{
	Use:   "hash-key [key]",
	Short: "Print the bcrypt hash to configure as jwt.internal_api_key_hash",
	Long:  "Hashes the internal API key given as argument, or read from the first line of stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read key from stdin: %w", err)
			}
			key = strings.TrimSpace(line)
		}
		hash, err := auth.HashAPIKey(key)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var (
	issueUser        string
	issueUsername    string
	issuePermissions []string
	issueTTL         time.Duration
)

var authIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign an access token with the configured secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, err := requireTenant()
		if err != nil {
			return err
		}
		userID := uuid.New()
		if issueUser != "" {
			if userID, err = uuid.Parse(issueUser); err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		token, err := auth.NewJWTService(cfg.JWT).Issue(auth.IssueInput{
			TenantID:    tenantID,
			UserID:      userID,
			Username:    issueUsername,
			Permissions: issuePermissions,
			TTL:         issueTTL,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var revokeTTL time.Duration

var authRevokeCmd = &cobra.Command{
	Use:   "revoke <token-id>",
	Short: "Add a token id (jti) to the shared blacklist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
		defer cancel()

		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		if client == nil {
			return errors.New("revocation needs redis: set redis.host")
		}
		defer client.Close()

		if err := auth.NewRedisTokenBlacklist(client).Revoke(ctx, args[0], revokeTTL); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s revoked for %s\n", args[0], revokeTTL)
		return nil
	},
}

func init() {
	authIssueCmd.Flags().StringVar(&issueUser, "user", "", "User id, random when empty")
	authIssueCmd.Flags().StringVar(&issueUsername, "username", cliSource, "Username claim")
	authIssueCmd.Flags().StringSliceVar(&issuePermissions, "permission", nil, "Permission claim, repeatable")
	authIssueCmd.Flags().DurationVar(&issueTTL, "ttl", time.Hour, "Token lifetime")

	authRevokeCmd.Flags().DurationVar(&revokeTTL, "ttl", 24*time.Hour, "How long the id stays revoked, at least the token's remaining lifetime")

	authCmd.AddCommand(authHashKeyCmd, authIssueCmd, authRevokeCmd)
}
