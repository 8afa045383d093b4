// Command fiscalctl runs ledger maintenance tasks against the database
// directly: seeding a chart of accounts, generating recurring entries,
// closing periods, exporting ARC files and minting credentials.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	appfiscal "github.com/erp/fiscal/internal/application/fiscal"
	"github.com/erp/fiscal/internal/infrastructure/config"
	"github.com/erp/fiscal/internal/infrastructure/logger"
	"github.com/erp/fiscal/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliSource marks entries and certificates created from this tool
const cliSource = "fiscalctl"

var (
	flagTenant  string
	flagTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "fiscalctl",
	Short:         "Operator tooling for the fiscal ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagTenant, "tenant", "", "Tenant id")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 5*time.Minute, "Timeout for the whole command")

	rootCmd.AddCommand(accountsCmd, recurringCmd, periodsCmd, arcCmd, authCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// ledger holds the services a command needs, built from the same
// configuration as the server
type ledger struct {
	cfg          *config.Config
	log          *zap.Logger
	db           *persistence.Database
	accounts     *appaccounting.AccountService
	periods      *appaccounting.PeriodService
	recurring    *appaccounting.RecurringService
	withholdings *appfiscal.WithholdingService
}

func openLedger() (*ledger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	log := logger.New(logger.FromAppConfig(cfg.Log))

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(logger.NewGormLogger(log, logger.MapGormLogLevel("warn"))),
	)
	if err != nil {
		return nil, err
	}

	accountRepo := persistence.NewGormAccountRepository(db.DB)
	journalRepo := persistence.NewGormJournalEntryRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)
	poster := appaccounting.NewJournalPoster(log)

	return &ledger{
		cfg:       cfg,
		log:       log,
		db:        db,
		accounts:  appaccounting.NewAccountService(accountRepo, log),
		periods:   appaccounting.NewPeriodService(persistence.NewGormAccountingPeriodRepository(db.DB), journalRepo, txScope, poster, log),
		recurring: appaccounting.NewRecurringService(persistence.NewGormRecurringEntryRepository(db.DB), accountRepo, txScope, poster, log),
		withholdings: appfiscal.NewWithholdingService(
			persistence.NewGormIVAWithholdingRepository(db.DB),
			persistence.NewGormISLRWithholdingRepository(db.DB),
			txScope.Fiscal(), poster, log,
		),
	}, nil
}

func (l *ledger) Close() {
	if err := l.db.Close(); err != nil {
		l.log.Warn("Error closing database", zap.Error(err))
	}
	_ = l.log.Sync()
}

// withLedger opens the ledger, runs fn under the command timeout and closes it
func withLedger(cmd *cobra.Command, fn func(ctx context.Context, l *ledger) error) error {
	l, err := openLedger()
	if err != nil {
		return err
	}
	defer l.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()
	return fn(ctx, l)
}

func requireTenant() (uuid.UUID, error) {
	if flagTenant == "" {
		return uuid.Nil, fmt.Errorf("--tenant is required")
	}
	id, err := uuid.Parse(flagTenant)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --tenant: %w", err)
	}
	return id, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}
