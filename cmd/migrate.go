/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerlift/erp-migrator/cache"
	"github.com/ledgerlift/erp-migrator/client"
	"github.com/ledgerlift/erp-migrator/client/source"
	"github.com/ledgerlift/erp-migrator/client/target"
	"github.com/ledgerlift/erp-migrator/config"
	"github.com/ledgerlift/erp-migrator/csv"
	"github.com/ledgerlift/erp-migrator/ledger"
	"github.com/ledgerlift/erp-migrator/migration"
	"github.com/ledgerlift/erp-migrator/types"
)

type migrationPair struct {
	Source types.SourceDocType
	Target types.TargetDocType
}

// defaultPairs is the order a full migration runs in. Invoices reference
// customers, so customers go first.
var defaultPairs = []migrationPair{
	{Source: types.SourceDocTypeCustomer, Target: types.TargetDocTypeCustomer},
	{Source: types.SourceDocTypeSalesInvoice, Target: types.TargetDocTypeSalesInvoice},
}

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate source records into the target ERP",
	Long: `The migrate command performs the main migration workflow:

1. Reads every record of a source collection (live API or local cache)
2. Skips records matching an ignore pattern or already recorded as migrated in the ledger
3. Validates, transforms and creates each record in the target ERP
4. Records every outcome in the ledger
5. Writes failed and invalid records to outcomes_<doctype>.csv in the working folder

Without --source and --target, customers and then sales invoices are migrated.

Examples:
  # Migrate customers and sales invoices from the live source API
  erp-migrator migrate --config ./config.yaml

  # Migrate only sales invoices from the local cache
  erp-migrator migrate --source salesInvoice --target "Sales Invoice" --fromCache

  # Migrate again, ignoring the ledger
  erp-migrator migrate --source customer --target Customer --force`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		pairs, err := migrationPairs(viper.GetString("sourceDocType"), viper.GetString("targetDocType"))
		if err != nil {
			log.Fatal(err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sourceReader := newSourceReader(cfg, viper.GetBool("fromCache"))

		if cfg.Target.BaseURL == "" {
			log.Fatal("Target base URL is not configured")
		}
		targetClient := target.NewTargetClient(
			cfg.Target.BaseURL,
			cfg.Target.APIKey,
			cfg.Target.APISecret,
			log,
		)

		ledgerClient, err := ledger.Open(cfg.LedgerPath, log)
		if err != nil {
			log.Fatalf("Error opening ledger %s: %v", cfg.LedgerPath, err)
		}
		defer ledgerClient.Close()

		outcomeCsvClient := csv.NewOutcomeCsvClient(
			cfg.WorkingFolder,
			log,
		)

		migrations := migration.NewMigrations(
			targetClient,
			cfg,
			log,
		)

		controller := migration.NewController(
			sourceReader,
			migrations,
			ledgerClient,
			outcomeCsvClient,
			log,
		)
		controller.Force = viper.GetBool("force")

		for _, pair := range pairs {
			summary, err := controller.MigrateAll(ctx, pair.Source, pair.Target)
			if errors.Is(err, context.Canceled) {
				log.Warnf("Migration of %s interrupted after %d records", pair.Source, summary.Total)
				return
			}
			if err != nil {
				log.Errorf("Migration of %s to %s aborted: %v", pair.Source, pair.Target, err)
			}
		}
	},
}

func migrationPairs(sourceDocType string, targetDocType string) ([]migrationPair, error) {
	if sourceDocType == "" && targetDocType == "" {
		return defaultPairs, nil
	}
	if sourceDocType == "" || targetDocType == "" {
		return nil, errors.New("--source and --target must be given together")
	}

	pair := migrationPair{
		Source: types.SourceDocType(sourceDocType),
		Target: types.TargetDocType(targetDocType),
	}
	if !pair.Source.IsValidSourceDocType() {
		return nil, &invalidDocTypeError{DocType: sourceDocType}
	}
	if !pair.Target.IsValidTargetDocType() {
		return nil, &invalidDocTypeError{DocType: targetDocType}
	}
	return []migrationPair{pair}, nil
}

type invalidDocTypeError struct {
	DocType string
}

func (e *invalidDocTypeError) Error() string {
	return "unknown document type: " + e.DocType
}

func newSourceReader(cfg *config.Config, fromCache bool) client.ISourceReader {
	if fromCache {
		cacheClient := cache.NewCacheClient(cfg.CacheDir, log)
		if err := cacheClient.Open(); err != nil {
			log.Fatalf("Error opening cache: %v", err)
		}
		return cacheClient
	}

	if cfg.Source.BaseURL == "" {
		log.Fatal("Source base URL is not configured")
	}
	return source.NewSourceClient(
		cfg.Source.BaseURL,
		cfg.Source.Token,
		cfg.Source.PageSize,
		log,
	)
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.PersistentFlags().StringP("source", "s", "", "Source document type to read (e.g. customer, salesInvoice)")
	viper.BindPFlag("sourceDocType", migrateCmd.PersistentFlags().Lookup("source"))
	migrateCmd.PersistentFlags().StringP("target", "t", "", "Target document type to create (e.g. Customer, \"Sales Invoice\")")
	viper.BindPFlag("targetDocType", migrateCmd.PersistentFlags().Lookup("target"))
	migrateCmd.PersistentFlags().BoolP("fromCache", "c", false, "Read source records from the local cache instead of the API")
	viper.BindPFlag("fromCache", migrateCmd.PersistentFlags().Lookup("fromCache"))
	migrateCmd.PersistentFlags().BoolP("force", "f", false, "Migrate records the ledger already marks as migrated")
	viper.BindPFlag("force", migrateCmd.PersistentFlags().Lookup("force"))
	migrateCmd.PersistentFlags().StringP("ledgerPath", "l", "./migrator.db", "SQLite ledger file")
	viper.BindPFlag("ledgerPath", migrateCmd.PersistentFlags().Lookup("ledgerPath"))
}
