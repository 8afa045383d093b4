package main

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage the chart of accounts",
}

// chartFile is the layout of a seed file:
//
//	[[account]]
//	code = "1.1.01"
//	name = "Caja"
//	type = "Activo"
//	parent = "1.1"
type chartFile struct {
	Accounts []appaccounting.SeedAccount `toml:"account"`
}

func loadChart(path string) ([]appaccounting.SeedAccount, error) {
	var chart chartFile
	md, err := toml.DecodeFile(path, &chart)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown keys %v", path, undecoded)
	}
	if len(chart.Accounts) == 0 {
		return nil, fmt.Errorf("%s: no [[account]] tables", path)
	}
	return chart.Accounts, nil
}

var seedFile string

var accountsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the accounts of a TOML chart that do not exist yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, err := requireTenant()
		if err != nil {
			return err
		}
		chart, err := loadChart(seedFile)
		if err != nil {
			return err
		}
		return withLedger(cmd, func(ctx context.Context, l *ledger) error {
			result, err := l.accounts.Seed(ctx, tenantID, chart)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, code := range result.Created {
				fmt.Fprintf(out, "created  %s\n", code)
			}
			for _, code := range result.Skipped {
				fmt.Fprintf(out, "skipped  %s\n", code)
			}
			fmt.Fprintf(out, "%d created, %d already present\n", len(result.Created), len(result.Skipped))
			return nil
		})
	},
}

var accountsSystemCmd = &cobra.Command{
	Use:   "system",
	Short: "Provision the system accounts used by automatic postings",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, err := requireTenant()
		if err != nil {
			return err
		}
		return withLedger(cmd, func(ctx context.Context, l *ledger) error {
			accounts, err := l.accounts.EnsureSystemAccounts(ctx, tenantID)
			if err != nil {
				return err
			}
			for _, a := range accounts {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", a.Code, a.Name)
			}
			return nil
		})
	},
}

func init() {
	accountsSeedCmd.Flags().StringVar(&seedFile, "file", "chart.toml", "TOML chart of accounts")
	accountsCmd.AddCommand(accountsSeedCmd, accountsSystemCmd)
}
