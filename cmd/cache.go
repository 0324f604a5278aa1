/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerlift/erp-migrator/cache"
	"github.com/ledgerlift/erp-migrator/types"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Snapshot source collections into the local cache",
	Long: `The cache command clears the cache directory and downloads every
configured source collection into one JSON file per collection.

A later "migrate --fromCache" reads from these files instead of the API.

Examples:
  # Snapshot all collections
  erp-migrator cache --config ./config.yaml

  # Snapshot customers and invoices only
  erp-migrator cache --docTypes customer,salesInvoice`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		docTypes := types.SourceDocTypes
		if names := viper.GetStringSlice("docTypes"); len(names) > 0 {
			docTypes = []types.SourceDocType{}
			for _, name := range names {
				docType := types.SourceDocType(name)
				if !docType.IsValidSourceDocType() {
					log.Fatalf("Unknown source document type: %s", name)
				}
				docTypes = append(docTypes, docType)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		snapshotClient := cache.NewSnapshotClient(
			newSourceReader(cfg, false),
			cache.NewCacheClient(cfg.CacheDir, log),
			log,
		)

		counts, err := snapshotClient.SnapshotAll(ctx, docTypes)
		if err != nil {
			log.Fatalf("Error writing cache: %v", err)
		}
		for _, docType := range docTypes {
			log.Infof("Cached %d %s records", counts[docType], docType)
		}
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.PersistentFlags().StringSliceP("docTypes", "d", []string{}, "Source document types to snapshot (default all)")
	viper.BindPFlag("docTypes", cacheCmd.PersistentFlags().Lookup("docTypes"))
}
