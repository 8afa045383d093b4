package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	appfiscal "github.com/erp/fiscal/internal/application/fiscal"
	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Recurring journal entries",
}

var recurringDate string

var recurringRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate the recurring entries due on a date",
	Long: "Generates every due recurring entry for --tenant, or for every tenant " +
		"with due templates when --tenant is omitted. Entries already generated " +
		"for the date are skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDate(recurringDate)
		if err != nil {
			return err
		}
		return withLedger(cmd, func(ctx context.Context, l *ledger) error {
			out := cmd.OutOrStdout()
			if flagTenant == "" {
				results, err := l.recurring.ExecuteDueForAllTenants(ctx, date)
				if err != nil {
					return err
				}
				for tenantID, result := range results {
					printExecution(out, tenantID, result)
				}
				fmt.Fprintf(out, "%d tenants processed\n", len(results))
				return nil
			}
			tenantID, err := requireTenant()
			if err != nil {
				return err
			}
			result, err := l.recurring.ExecuteAllPending(ctx, tenantID, date, nil)
			if err != nil {
				return err
			}
			printExecution(out, tenantID, result)
			return nil
		})
	},
}

func printExecution(out io.Writer, tenantID uuid.UUID, r *appaccounting.ExecutionResult) {
	fmt.Fprintf(out, "%s  %s  executed=%d skipped=%d deactivated=%d failed=%d\n",
		tenantID, r.ExecutionDate.Format("2006-01-02"), r.ExecutedCount, r.Skipped, r.Deactivated, len(r.Failures))
	for _, f := range r.Failures {
		fmt.Fprintf(out, "  failed %s (%s): %s\n", f.Name, f.RecurringEntryID, f.Error)
	}
}

var periodsCmd = &cobra.Command{
	Use:   "periods",
	Short: "Accounting periods",
}

var periodNotes string

var periodsCloseCmd = &cobra.Command{
	Use:   "close <period-id>",
	Short: "Close a period and post its closing entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, err := requireTenant()
		if err != nil {
			return err
		}
		periodID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid period id: %w", err)
		}
		return withLedger(cmd, func(ctx context.Context, l *ledger) error {
			p, err := l.periods.Close(ctx, tenantID, shared.SystemActor(tenantID, cliSource), periodID, periodNotes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s closed: revenue %s, expenses %s, net income %s\n",
				p.Name, p.TotalRevenue.StringFixed(2), p.TotalExpenses.StringFixed(2), p.NetIncome.StringFixed(2))
			if p.ClosingEntryID != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "closing entry %s\n", *p.ClosingEntryID)
			}
			return nil
		})
	},
}

var arcCmd = &cobra.Command{
	Use:   "arc",
	Short: "Withholding ARC declaration files",
}

var (
	arcTax     string
	arcMonth   int
	arcYear    int
	arcOut     string
	arcOnlyNew bool
)

var arcExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render the ARC file of a month",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, err := requireTenant()
		if err != nil {
			return err
		}
		tax := fiscal.TaxKind(strings.ToUpper(arcTax))
		if !tax.IsValid() {
			return fmt.Errorf("invalid --tax %q: must be iva or islr", arcTax)
		}
		return withLedger(cmd, func(ctx context.Context, l *ledger) error {
			result, err := l.withholdings.ExportARC(ctx, tenantID, tax, appfiscal.ExportARCRequest{
				Month:           arcMonth,
				Year:            arcYear,
				OnlyNotExported: arcOnlyNew,
			})
			if err != nil {
				return err
			}
			if arcOut == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), result.Content)
				return err
			}
			path := arcOut
			if info, statErr := os.Stat(arcOut); statErr == nil && info.IsDir() {
				path = strings.TrimRight(arcOut, "/") + "/" + result.FileName
			}
			if err := os.WriteFile(path, []byte(result.Content), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d records written to %s\n", result.Records, path)
			return nil
		})
	},
}

func init() {
	recurringRunCmd.Flags().StringVar(&recurringDate, "date", "", "Execution date (YYYY-MM-DD), defaults to today")
	recurringCmd.AddCommand(recurringRunCmd)

	periodsCloseCmd.Flags().StringVar(&periodNotes, "notes", "", "Closing notes")
	periodsCmd.AddCommand(periodsCloseCmd)

	arcExportCmd.Flags().StringVar(&arcTax, "tax", "iva", "Withheld tax: iva or islr")
	arcExportCmd.Flags().IntVar(&arcMonth, "month", 0, "Month (1-12)")
	arcExportCmd.Flags().IntVar(&arcYear, "year", 0, "Year")
	arcExportCmd.Flags().StringVar(&arcOut, "out", "", "Output file or directory, stdout when empty")
	arcExportCmd.Flags().BoolVar(&arcOnlyNew, "only-new", false, "Skip certificates already exported")
	_ = arcExportCmd.MarkFlagRequired("month")
	_ = arcExportCmd.MarkFlagRequired("year")
	arcCmd.AddCommand(arcExportCmd)
}
