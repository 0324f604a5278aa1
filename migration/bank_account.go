package migration

import (
	"context"
	"fmt"

	"github.com/ledgerlift/erp-migrator/types"
)

type BankAccount struct {
	base
	customer types.Payload
	bank     *Bank
}

// NewBankAccount builds the migrator for a source bank account owned by an
// already created target customer.
func (migrations *Migrations) NewBankAccount(record types.Record, customer types.Payload) *BankAccount {
	return &BankAccount{
		base:     migrations.newBase(record, nil, record.Bool("primary")),
		customer: customer,
		bank:     migrations.NewBank(record),
	}
}

func (bankAccount *BankAccount) DocType() types.TargetDocType {
	return types.TargetDocTypeBankAccount
}

func (bankAccount *BankAccount) Validate() bool {
	return hasAll(bankAccount.record, "accountHolder", "accountNumber", "bankCode", "creditInstitute")
}

func (bankAccount *BankAccount) Transform() types.Payload {
	payload := types.Payload{
		"account_name": bankAccount.accountName(),
		"account_type": bankAccount.config.Defaults.BankAccountType,
		"is_default":   bankAccount.isPrimary,
		"party_type":   string(types.TargetDocTypeCustomer),
		"iban":         bankAccount.record.String("accountNumber"),
	}
	if customerName := bankAccount.customer.Name(); customerName != "" {
		payload["party"] = customerName
	}
	return payload
}

// Migrate resolves the bank first and creates the account referencing it.
// It returns nil without writing when the bank data is incomplete.
func (bankAccount *BankAccount) Migrate(ctx context.Context) (types.Payload, error) {
	if !bankAccount.bank.Validate() {
		return nil, nil
	}
	payload := bankAccount.Transform()

	bank, err := bankAccount.bank.Migrate(ctx)
	if err != nil {
		return nil, err
	}
	bankName := bank.Name()
	if bankName == "" {
		bankName = bank.String("bank_name")
	}
	payload["bank"] = bankName

	created, err := bankAccount.writer.Create(ctx, bankAccount.DocType(), payload)
	if err != nil {
		return nil, fmt.Errorf("create bank account %s: %w", payload.String("iban"), err)
	}
	return created, nil
}

func (bankAccount *BankAccount) accountName() string {
	if customerName := bankAccount.customer.Name(); customerName != "" {
		return customerName
	}
	return bankAccount.record.String("id")
}
