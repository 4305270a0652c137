package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go-pos-ledger/internal/export"
	"go-pos-ledger/internal/logger"
	"go-pos-ledger/internal/repository"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var statementCmd = &cobra.Command{
	Use:     "statement",
	Short:   "Write a customer's credit statement to an XLSX file",
	Example: `  ledgerctl statement --customer "Mama Nkechi" --out nkechi.xlsx`,
	RunE:    runStatement,
}

func init() {
	rootCmd.AddCommand(statementCmd)

	statementCmd.Flags().String("customer", "", "exact customer name")
	statementCmd.Flags().String("out", "", "output file (default: generated name in the current directory)")
	_ = statementCmd.MarkFlagRequired("customer")
}

func runStatement(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("statement")

	customer, _ := cmd.Flags().GetString("customer")
	out, _ := cmd.Flags().GetString("out")
	customer = strings.TrimSpace(customer)

	db, err := openDB()
	if err != nil {
		return err
	}

	credit, err := repository.NewCreditRepo(db).FindByCustomer(context.Background(), customer)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("no ledger for customer %q", customer)
	}
	if err != nil {
		return err
	}

	loc := loaded.Location()
	if out == "" {
		out = export.StatementFilename(credit, time.Now().In(loc))
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := export.WriteStatement(f, credit, loc); err != nil {
		return err
	}

	log.Info().Str("customer", customer).Str("file", out).Msg("statement written")
	return nil
}
