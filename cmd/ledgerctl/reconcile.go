package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"go-pos-ledger/internal/logger"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/service"

	"github.com/spf13/cobra"
)

var errLedgerIssues = errors.New("ledger reconciliation found issues")

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Check every credit ledger against its entries and the sales table",
	Long: `Replays each customer's ledger and compares the result with the stored
balance, then compares credit sales with the sale-linked debits.

Exits non-zero when any issue is found, so it can run from cron.`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().Bool("json", false, "print the full report as JSON")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("reconcile")
	asJSON, _ := cmd.Flags().GetBool("json")

	db, err := openDB()
	if err != nil {
		return err
	}

	ledger := service.NewLedgerService(
		repository.NewCreditRepo(db),
		repository.NewSaleRepo(db),
		retryOptions(),
		discardActivity{},
		discardEvents{},
		logger.WithComponent("ledger"),
	)

	report, err := ledger.Reconcile(context.Background())
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	}

	log.Info().Int("checked", report.Checked).Int("issues", len(report.Issues)).Msg("reconciliation finished")

	if !report.OK() {
		return errLedgerIssues
	}
	return nil
}
