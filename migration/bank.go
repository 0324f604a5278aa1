package migration

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ledgerlift/erp-migrator/client"
	"github.com/ledgerlift/erp-migrator/types"
)

const DefaultMaxNameProbes = 1000

type Bank struct {
	base
	resolver *BankResolver
}

func (migrations *Migrations) NewBank(record types.Record) *Bank {
	return &Bank{
		base:     migrations.newBase(record, nil, false),
		resolver: NewBankResolver(migrations.Writer, migrations.Logger),
	}
}

func (bank *Bank) DocType() types.TargetDocType {
	return types.TargetDocTypeBank
}

func (bank *Bank) Validate() bool {
	return hasAll(bank.record, "creditInstitute", "bankCode")
}

func (bank *Bank) Transform() types.Payload {
	return types.Payload{
		"bank_name":    bank.record.String("creditInstitute"),
		"swift_number": bank.record.String("bankCode"),
	}
}

// Migrate returns an existing bank with the same swift number or creates a
// new one under a free name.
func (bank *Bank) Migrate(ctx context.Context) (types.Payload, error) {
	return bank.resolver.Resolve(ctx, bank.Transform())
}

// BankResolver finds or creates banks, keyed by swift number first and
// bank name second.
type BankResolver struct {
	Writer    client.ITargetWriter
	MaxProbes int
	Logger    *logrus.Logger
}

func NewBankResolver(writer client.ITargetWriter, logger *logrus.Logger) *BankResolver {
	return &BankResolver{
		Writer:    writer,
		MaxProbes: DefaultMaxNameProbes,
		Logger:    logger,
	}
}

func (resolver *BankResolver) Resolve(ctx context.Context, bank types.Payload) (types.Payload, error) {
	swiftNumber := bank.String("swift_number")
	if swiftNumber != "" {
		banks, err := resolver.Writer.Search(ctx, types.TargetDocTypeBank, []types.Filter{types.Equals("swift_number", swiftNumber)})
		if err != nil {
			return nil, fmt.Errorf("search bank by swift number %s: %w", swiftNumber, err)
		}
		if len(banks) > 0 {
			resolver.Logger.Debugf("Using existing bank %s for swift number %s", banks[0].Name(), swiftNumber)
			return banks[0], nil
		}
	}

	name := bank.String("bank_name")
	free, err := resolver.isFree(ctx, name)
	if err != nil {
		return nil, err
	}
	if free {
		return resolver.create(ctx, bank)
	}

	for n := 1; n <= resolver.MaxProbes; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		free, err := resolver.isFree(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if free {
			renamed := bank.Clone()
			renamed["bank_name"] = candidate
			resolver.Logger.Debugf("Bank name %s is taken, creating %s", name, candidate)
			return resolver.create(ctx, renamed)
		}
	}
	return nil, &DuplicateResolutionError{Name: name, Probes: resolver.MaxProbes}
}

func (resolver *BankResolver) isFree(ctx context.Context, name string) (bool, error) {
	_, err := resolver.Writer.Get(ctx, types.TargetDocTypeBank, name)
	switch {
	case err == nil:
		return false, nil
	case client.IsNotFound(err):
		return true, nil
	default:
		return false, fmt.Errorf("lookup bank %s: %w", name, err)
	}
}

func (resolver *BankResolver) create(ctx context.Context, bank types.Payload) (types.Payload, error) {
	created, err := resolver.Writer.Create(ctx, types.TargetDocTypeBank, bank)
	if err != nil {
		return nil, fmt.Errorf("create bank %s: %w", bank.String("bank_name"), err)
	}
	return created, nil
}
