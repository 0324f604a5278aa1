package types

import "fmt"

// TaxInfo describes how a source tax identifier is booked in the target
// ledger. An empty TaxAccount means items are booked on IncomeAccount but no
// tax line is emitted for them.
type TaxInfo struct {
	IncomeAccount string  `mapstructure:"incomeaccount"`
	TaxAccount    string  `mapstructure:"taxaccount"`
	Description   string  `mapstructure:"description"`
	Rate          float64 `mapstructure:"rate"`
}

func (taxInfo TaxInfo) String() string {
	return fmt.Sprintf("%s (%g%%)", taxInfo.IncomeAccount, taxInfo.Rate)
}
