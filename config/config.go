// Package config holds the settings threaded into clients and migrators.
// Values come from viper, so a config file, ERPMIGRATE_* environment
// variables and command flags all feed the same keys.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	"github.com/ledgerlift/erp-migrator/types"
)

const EnvPrefix = "ERPMIGRATE"

type Config struct {
	Source         SourceConfig             `mapstructure:"source"`
	Target         TargetConfig             `mapstructure:"target"`
	CacheDir       string                   `mapstructure:"cacheDir"`
	WorkingFolder  string                   `mapstructure:"workingFolderPath"`
	LedgerPath     string                   `mapstructure:"ledgerPath"`
	Defaults       Defaults                 `mapstructure:"defaults"`
	PaymentEntry   PaymentEntryConfig       `mapstructure:"paymentEntry"`
	CustomerGroups CustomerGroupConfig      `mapstructure:"customerGroups"`
	// TaxTable and Countries replace the built-in tables when configured.
	TaxTable       map[string]types.TaxInfo `mapstructure:"taxTable"`
	Countries      map[string]string        `mapstructure:"countries"`
	IgnorePatterns []string                 `mapstructure:"ignorePatterns"`
	// EnsureReferences creates missing customer groups and territories
	// before a customer is created.
	EnsureReferences bool   `mapstructure:"ensureReferences"`
	TimeZone         string `mapstructure:"timeZone"`

	location    *time.Location
	ignore      []*regexp.Regexp
	unitAliases map[string]string
}

type SourceConfig struct {
	BaseURL  string `mapstructure:"baseUrl"`
	Token    string `mapstructure:"token"`
	PageSize int    `mapstructure:"pageSize"`
}

type TargetConfig struct {
	BaseURL   string `mapstructure:"baseUrl"`
	APIKey    string `mapstructure:"apiKey"`
	APISecret string `mapstructure:"apiSecret"`
}

type Defaults struct {
	// InvoiceState is the docstatus for invoices, items, taxes and
	// payments: 0 draft, 1 submitted, 2 cancelled.
	InvoiceState     int         `mapstructure:"invoiceState"`
	Currency         string      `mapstructure:"currency"`
	PhoneCountryCode string      `mapstructure:"phoneCountryCode"`
	UnitOfMeasure    string      `mapstructure:"unitOfMeasure"`
	UnitAliases      []UnitAlias `mapstructure:"unitAliases"`
	CostCenter       string      `mapstructure:"costCenter"`
	PaymentTerm      string      `mapstructure:"paymentTerm"`
	TaxesAndCharges  string      `mapstructure:"taxesAndCharges"`
	BankAccountType  string      `mapstructure:"bankAccountType"`
	ItemTitle        string      `mapstructure:"itemTitle"`
	Territory        string      `mapstructure:"territory"`
}

// UnitAlias renames a source unit. Aliases are a list rather than a map
// because viper splits map keys on dots.
type UnitAlias struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

type PaymentEntryConfig struct {
	ModeOfPayment     string `mapstructure:"modeOfPayment"`
	PaidFromAccount   string `mapstructure:"paidFromAccount"`
	PaidToAccount     string `mapstructure:"paidToAccount"`
	PaidToAccountType string `mapstructure:"paidToAccountType"`
}

type CustomerGroupConfig struct {
	Organization string `mapstructure:"organization"`
	Individual   string `mapstructure:"individual"`
	Parent       string `mapstructure:"parent"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source.pageSize", 100)
	v.SetDefault("cacheDir", "./cache")
	v.SetDefault("workingFolderPath", ".")
	v.SetDefault("ledgerPath", "./migrator.db")
	v.SetDefault("timeZone", "UTC")

	v.SetDefault("defaults.invoiceState", 1)
	v.SetDefault("defaults.currency", "EUR")
	v.SetDefault("defaults.phoneCountryCode", "49")
	v.SetDefault("defaults.unitOfMeasure", "Stk")
	v.SetDefault("defaults.unitAliases", []map[string]any{{"from": "Stk.", "to": "Stk"}})
	v.SetDefault("defaults.costCenter", "Haupt - pcg")
	v.SetDefault("defaults.paymentTerm", "net sofort")
	v.SetDefault("defaults.taxesAndCharges", "Lieferung oder sonstige Leistung im Inland - pcg")
	v.SetDefault("defaults.bankAccountType", "Kunden-Bankkonto")
	v.SetDefault("defaults.itemTitle", "(No title)")
	v.SetDefault("defaults.territory", "All Territories")

	v.SetDefault("paymentEntry.modeOfPayment", "Bargeld")
	v.SetDefault("paymentEntry.paidFromAccount", "3250 - Erhaltene Anz. auf Bestellungen (Verb.) - pcg")
	v.SetDefault("paymentEntry.paidToAccount", "1620 - Nebenkasse 2 - pcg")
	v.SetDefault("paymentEntry.paidToAccountType", "Cash")

	v.SetDefault("customerGroups.organization", "B2B Small Business")
	v.SetDefault("customerGroups.individual", "Einzelperson")
	v.SetDefault("customerGroups.parent", "All Customer Groups")

}

// DefaultTaxTable returns the booking rules keyed by source tax id.
// Tax-free entries carry no tax account and produce no tax line.
func DefaultTaxTable() map[string]types.TaxInfo {
	const (
		revenue19 = "4400 - Erlöse 19 % USt - pcg"
		vat19     = "3806 - Umsatzsteuer 19 % - pcg"
		taxFree   = "4125 - Steuerfreie Innergemeinschaftliche Lieferungen § 4 Nr. 1b UStG - pcg"
	)

	return map[string]types.TaxInfo{
		"2691": {
			IncomeAccount: revenue19,
			TaxAccount:    vat19,
			Description:   "Umsatzsteuer 19 %",
			Rate:          19,
		},
		"2699": {
			IncomeAccount: revenue19,
			TaxAccount:    vat19,
			Description:   "Umsatzsteuer 16 % (Q3/4 2020)",
			Rate:          16,
		},
		"2680": {
			IncomeAccount: taxFree,
		},
		"179484": {
			IncomeAccount: taxFree,
		},
	}
}

// DefaultCountries maps lower-case country codes and synonyms to the
// canonical target country names.
func DefaultCountries() map[string]string {
	return map[string]string{
		"germany":        "Germany",
		"german":         "Germany",
		"ger":            "Germany",
		"deutschland":    "Germany",
		"de":             "Germany",
		"austria":        "Austria",
		"österreich":     "Austria",
		"at":             "Austria",
		"switzerland":    "Switzerland",
		"schweiz":        "Switzerland",
		"ch":             "Switzerland",
		"united states":  "United States",
		"usa":            "United States",
		"us":             "United States",
		"america":        "United States",
		"united kingdom": "United Kingdom",
		"uk":             "United Kingdom",
		"gb":             "United Kingdom",
		"great britain":  "United Kingdom",
		"england":        "United Kingdom",
		"france":         "France",
		"french":         "France",
		"fr":             "France",
		"italy":          "Italy",
		"italian":        "Italy",
		"it":             "Italy",
		"spain":          "Spain",
		"spanish":        "Spain",
		"es":             "Spain",
		"netherlands":    "Netherlands",
		"dutch":          "Netherlands",
		"nl":             "Netherlands",
		"holland":        "Netherlands",
	}
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// Tables are not viper defaults: viper would merge default keys into a
	// configured table, so a configured table could never drop an entry.
	if !v.IsSet("taxTable") {
		cfg.TaxTable = DefaultTaxTable()
	}
	if !v.IsSet("countries") {
		cfg.Countries = DefaultCountries()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings and prepares derived values. It must be
// called on configs that are not built by Load.
func (cfg *Config) Validate() error {
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return fmt.Errorf("timeZone %q: %w", cfg.TimeZone, err)
	}
	cfg.location = location

	cfg.ignore = nil
	for _, pattern := range cfg.IgnorePatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("ignorePatterns %q: %w", pattern, err)
		}
		cfg.ignore = append(cfg.ignore, compiled)
	}

	if cfg.Defaults.InvoiceState < 0 || cfg.Defaults.InvoiceState > 2 {
		return fmt.Errorf("defaults.invoiceState must be 0, 1 or 2, got %d", cfg.Defaults.InvoiceState)
	}
	if cfg.Source.PageSize < 0 {
		return fmt.Errorf("source.pageSize must not be negative, got %d", cfg.Source.PageSize)
	}

	countries := make(map[string]string, len(cfg.Countries))
	for synonym, canonical := range cfg.Countries {
		countries[strings.ToLower(synonym)] = canonical
	}
	cfg.Countries = countries

	cfg.unitAliases = make(map[string]string, len(cfg.Defaults.UnitAliases))
	for _, alias := range cfg.Defaults.UnitAliases {
		cfg.unitAliases[strings.ToLower(alias.From)] = alias.To
	}
	return nil
}

// Location is the time zone source timestamps are converted in.
func (cfg *Config) Location() *time.Location {
	if cfg.location == nil {
		return time.UTC
	}
	return cfg.location
}

// IsIgnored reports whether a record key matches one of the ignore patterns.
func (cfg *Config) IsIgnored(key string) bool {
	for _, pattern := range cfg.ignore {
		if pattern.MatchString(key) {
			return true
		}
	}
	return false
}

// UnitAliases maps lower-case source unit names to target units.
func (cfg *Config) UnitAliases() map[string]string {
	return cfg.unitAliases
}

// TaxInfo looks up the booking rules for a source tax identifier.
func (cfg *Config) TaxInfo(taxID string) (types.TaxInfo, bool) {
	taxInfo, ok := cfg.TaxTable[taxID]
	return taxInfo, ok
}
