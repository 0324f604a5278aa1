package migration

import (
	"context"
	"strings"

	"github.com/ledgerlift/erp-migrator/normalize"
	"github.com/ledgerlift/erp-migrator/types"
)

type Address struct {
	base
}

// NewAddress builds the migrator for record, the address at index of the
// parent's addresses. Standalone addresses pass a nil parent.
func (migrations *Migrations) NewAddress(record types.Record, parent types.Record, index int) *Address {
	return &Address{base: migrations.newBase(record, parent, isPrimaryAddress(record, parent, index))}
}

func (address *Address) DocType() types.TargetDocType {
	return types.TargetDocTypeAddress
}

func (address *Address) Validate() bool {
	return isValidAddress(address.record)
}

func (address *Address) Transform() types.Payload {
	payload := types.Payload{
		"address_title":       address.title(),
		"address_line1":       address.record.String("street1"),
		"city":                address.record.String("city"),
		"country":             normalize.Country(address.record.String("countryCode"), address.config.Countries),
		"pincode":             address.record.String("zipcode"),
		"is_shipping_address": true,
		"is_primary_address":  address.isPrimary,
	}
	if addressType := address.addressType(); addressType != "" {
		payload["address_type"] = addressType
	}
	return payload
}

func (address *Address) Migrate(ctx context.Context) (types.Payload, error) {
	return address.writer.Create(ctx, address.DocType(), address.Transform())
}

func (address *Address) title() string {
	if customerNumber := address.parent.String("customerNumber"); customerNumber != "" {
		return customerNumber
	}
	return address.record.String("id")
}

func (address *Address) addressType() string {
	switch {
	case address.record.Bool("invoiceAddress"):
		return "Billing"
	case address.record.Bool("deliveryAddress"):
		return "Shipping"
	default:
		return ""
	}
}

func isValidAddress(record types.Record) bool {
	return hasAll(record, "street1", "city", "zipcode", "countryCode")
}

func addressKey(record types.Record) string {
	if id := record.String("id"); id != "" {
		return id
	}
	return strings.Join([]string{
		record.String("street1"),
		record.String("zipcode"),
		record.String("city"),
		record.String("countryCode"),
	}, "|")
}

// isPrimaryAddress reports whether the address at index is the parent's
// single primary address. Without a parent the record's own flag decides.
func isPrimaryAddress(record types.Record, parent types.Record, index int) bool {
	if parent == nil {
		return record.Bool("primeAddress")
	}
	return index >= 0 && index == primaryAddressIndex(parent)
}

// primaryAddressIndex picks the primary address from the parent alone. An
// explicit primaryAddressId wins; otherwise the valid primeAddress-flagged
// address with the smallest key is primary, and equal keys go to the earlier
// position. It returns -1 when no address qualifies.
func primaryAddressIndex(parent types.Record) int {
	addresses := parent.Records("addresses")
	if primaryID := parent.String("primaryAddressId"); primaryID != "" {
		for i, address := range addresses {
			if address.String("id") == primaryID {
				return i
			}
		}
		return -1
	}

	primary := -1
	for i, address := range addresses {
		if !address.Bool("primeAddress") || !isValidAddress(address) {
			continue
		}
		if primary < 0 || addressKey(address) < addressKey(addresses[primary]) {
			primary = i
		}
	}
	return primary
}
