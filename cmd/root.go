/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerlift/erp-migrator/config"
)

var log = logrus.New()

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "erp-migrator",
	Short: "Migrate customers and sales invoices from the source ERP into the target ERP",
	Long: `erp-migrator copies customers (with their addresses, contacts and bank
accounts) and sales invoices from the source ERP REST API into the target ERP
REST API.

Every migrated record is written to a local SQLite ledger so a re-run skips
what already succeeded. Failed and invalid records are exported to a CSV file
in the working folder.

Configuration is read from a YAML file (--config), ERPMIGRATE_* environment
variables and a .env file in the current directory.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default is ./config.yaml if present)")
	rootCmd.PersistentFlags().StringP("verbosity", "v", "info", "Log level (trace, debug, info, warn, error)")
	viper.BindPFlag("verbosity", rootCmd.PersistentFlags().Lookup("verbosity"))
	rootCmd.PersistentFlags().Bool("structuredLogs", false, "Write logs as JSON")
	viper.BindPFlag("structuredLogs", rootCmd.PersistentFlags().Lookup("structuredLogs"))
	rootCmd.PersistentFlags().StringP("workingFolderPath", "w", ".", "Working folder path for outcome CSV files")
	viper.BindPFlag("workingFolderPath", rootCmd.PersistentFlags().Lookup("workingFolderPath"))
	rootCmd.PersistentFlags().String("cacheDir", "./cache", "Directory of the source document cache")
	viper.BindPFlag("cacheDir", rootCmd.PersistentFlags().Lookup("cacheDir"))
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("Could not load .env file: %v", err)
	}

	config.SetDefaults(viper.GetViper())
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range []string{"source.baseUrl", "source.token", "target.baseUrl", "target.apiKey", "target.apiSecret"} {
		viper.BindEnv(key)
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			log.Fatalf("Error reading config file: %v", err)
		}
	}
}

func configureLogger() {
	logVerbosity := viper.GetString("verbosity")
	logLevel, err := logrus.ParseLevel(logVerbosity)
	if err != nil {
		log.Fatalf("Invalid log level: %s", logVerbosity)
	}
	log.SetLevel(logLevel)
	log.SetFormatter(&logrus.TextFormatter{})
	if viper.GetBool("structuredLogs") {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	if file := viper.ConfigFileUsed(); file != "" {
		log.Debugf("Using config file: %s", file)
	}
}

// loadConfig unmarshals the merged viper settings and expands path values.
func loadConfig() *config.Config {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	cfg.WorkingFolder, err = config.ExpandPath(cfg.WorkingFolder)
	if err != nil {
		log.Fatalf("Error getting working folder path: %v", err)
	}
	cfg.CacheDir, err = config.ExpandPath(cfg.CacheDir)
	if err != nil {
		log.Fatalf("Error getting cache directory: %v", err)
	}
	cfg.LedgerPath, err = config.ExpandPath(cfg.LedgerPath)
	if err != nil {
		log.Fatalf("Error getting ledger path: %v", err)
	}

	for _, key := range viper.AllKeys() {
		if strings.HasSuffix(key, "token") || strings.HasSuffix(key, "apikey") || strings.HasSuffix(key, "apisecret") {
			continue
		}
		log.Tracef("Setting: %s = %v", key, viper.Get(key))
	}
	return cfg
}
