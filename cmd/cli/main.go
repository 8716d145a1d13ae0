package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/auth"
	"github.com/iho/gobooks/internal/infrastructure/postgres"
)

// options are the persistent flags shared by every command.
type options struct {
	baseURL string
	token   string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "gobooks",
		Short:         "GoBooks CLI tool",
		Long:          `A command line interface for the GoBooks ledger: schema migrations, tokens and API calls.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("GOBOOKS_URL", "http://localhost:8080"), "Base URL of the GoBooks API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("GOBOOKS_TOKEN"), "Bearer token for the API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")

	rootCmd.AddCommand(dbCmd(), tokenCmd(), accountsCmd(opts), reportCmd(opts), ledgerCmd(opts))
	return rootCmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Database commands

func dbCmd() *cobra.Command {
	var databaseURL, migrationsPath string

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database schema operations",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	cmd.PersistentFlags().StringVar(&migrationsPath, "migrations", os.Getenv("MIGRATIONS_PATH"), "Migrations directory (embedded when empty)")

	requireURL := func() error {
		if databaseURL == "" {
			return errors.New("--database-url or DATABASE_URL is required")
		}
		return nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := requireURL(); err != nil {
					return err
				}
				return postgres.RunMigrations(databaseURL, migrationsPath)
			},
		},
		&cobra.Command{
			Use:   "rollback",
			Short: "Roll back the last migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := requireURL(); err != nil {
					return err
				}
				return postgres.RunMigrationsDown(databaseURL, migrationsPath)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := requireURL(); err != nil {
					return err
				}
				version, dirty, err := postgres.MigrationVersion(databaseURL, migrationsPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version: %d\ndirty: %v\n", version, dirty)
				return nil
			},
		},
	)
	return cmd
}

// Token commands

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Bearer token operations",
	}
	cmd.AddCommand(tokenIssueCmd())
	return cmd
}

func tokenIssueCmd() *cobra.Command {
	var (
		secret   string
		userID   string
		email    string
		role     string
		lifetime time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a token for the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret or JWT_SECRET is required")
			}
			user := &domain.User{ID: userID, Email: email, Role: domain.Role(strings.ToLower(role))}
			token, err := auth.NewJWTManager(secret, lifetime).Generate(user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret")
	cmd.Flags().StringVar(&userID, "user", "", "User ID recorded as the actor")
	cmd.Flags().StringVar(&email, "email", "", "User email")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAccountant), "admin, accountant or viewer")
	cmd.Flags().DurationVar(&lifetime, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

// API commands

func accountsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Chart of accounts",
	}

	var accountType string
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if accountType != "" {
				q.Set("type", strings.ToUpper(accountType))
			}
			return newAPIClient(opts).run(cmd, http.MethodGet, "/api/v1/accounts", q)
		},
	}
	list.Flags().StringVar(&accountType, "type", "", "Filter by account type")

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Create the default chart of accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newAPIClient(opts).run(cmd, http.MethodPost, "/api/v1/accounts/seed", nil)
		},
	}

	cmd.AddCommand(list, seed)
	return cmd
}

// reportNames lists the reports served under /api/v1/reports.
var reportNames = []string{
	"trial-balance", "profit-loss", "balance-sheet", "cash-flow", "tax-summary",
	"ar-aging", "ap-aging", "budget-variance", "fx-revaluation", "consolidated",
	"kpi", "expense-breakdown", "revenue-breakdown", "sales-trend",
	"inventory-valuation", "fixed-assets", "audit-trail", "dashboard",
}

func reportCmd(opts *options) *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:       "report NAME",
		Short:     "Fetch a report",
		Long:      "Fetch a report. Query parameters are passed as key=value, e.g. --param asOf=2025-01-31.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: reportNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseParams(params)
			if err != nil {
				return err
			}
			return newAPIClient(opts).run(cmd, http.MethodGet, "/api/v1/reports/"+args[0], q)
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Query parameter as key=value (repeatable)")
	return cmd
}

func parseParams(params []string) (url.Values, error) {
	q := url.Values{}
	for _, p := range params {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("parameter %q is not key=value", p)
		}
		q.Add(key, value)
	}
	return q, nil
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newAPIClient(opts).run(cmd, http.MethodGet, "/api/v1/ledger/consistency", nil)
		},
	})
	return cmd
}

// apiClient calls the GoBooks HTTP API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(opts *options) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(opts.baseURL, "/"),
		token:   opts.token,
		http:    &http.Client{Timeout: opts.timeout},
	}
}

// run performs the request and pretty-prints the JSON answer. A non-2xx
// status is an error carrying the server's message.
func (c *apiClient) run(cmd *cobra.Command, method, path string, q url.Values) error {
	body, err := c.do(cmd.Context(), method, path, q)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), body)
}

func (c *apiClient) do(ctx context.Context, method, path string, q url.Values) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func printJSON(w io.Writer, body []byte) error {
	if len(body) == 0 {
		return nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		_, err = w.Write(body)
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
