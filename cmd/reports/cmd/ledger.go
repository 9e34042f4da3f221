package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"resell-reports/internal/config"
	"resell-reports/internal/ledger"
	"resell-reports/internal/store/sqlite"
)

// ledgerCmd groups ledger maintenance commands.
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage the local sqlite ledger",
}

// ledgerImportCmd loads YAML fixtures into the sqlite ledger.
var ledgerImportCmd = &cobra.Command{
	Use:   "import <fixtures.yaml>",
	Short: "Import sales and inventory records from a YAML file",
	Long: `Import sales and inventory_items records into the sqlite ledger.
Records with an existing id are replaced.`,
	Args: cobra.ExactArgs(1),
	Run:  runLedgerImport,
}

func init() {
	ledgerCmd.AddCommand(ledgerImportCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func runLedgerImport(cmd *cobra.Command, args []string) {
	cfg, logger := loadConfig(cmd)
	if cfg.Ledger.Driver != config.LedgerDriverSQLite {
		fmt.Fprintf(os.Stderr, "❌ ledger import needs ledger.driver=sqlite, got %s\n", cfg.Ledger.Driver)
		os.Exit(1)
	}

	fixtures, err := ledger.LoadFixtures(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	a := &app{cfg: cfg, logger: logger, stores: make(map[string]*sqlite.Store)}
	defer a.Close()
	store, err := a.sqliteStore(cfg.Ledger.SQLite.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	for _, table := range []string{ledger.TableSales, ledger.TableInventory} {
		n, err := store.InsertRecords(cmd.Context(), table, fixtures.Tables()[table])
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ import %s: %v\n", table, err)
			os.Exit(1)
		}
		fmt.Printf("✅ %s: %d records\n", table, n)
	}
}
