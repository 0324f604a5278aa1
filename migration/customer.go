package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledgerlift/erp-migrator/normalize"
	"github.com/ledgerlift/erp-migrator/types"
)

const partyTypePerson = "PERSON"

// Customer migrates a customer together with its addresses, contacts and
// bank accounts.
type Customer struct {
	base
	migrations *Migrations
}

func (migrations *Migrations) NewCustomer(record types.Record) *Customer {
	return &Customer{
		base:       migrations.newBase(record, nil, false),
		migrations: migrations,
	}
}

func (customer *Customer) DocType() types.TargetDocType {
	return types.TargetDocTypeCustomer
}

func (customer *Customer) Validate() bool {
	if !hasAll(customer.record, "customerNumber", "partyType") {
		return false
	}
	if customer.isOrganization() {
		return hasAll(customer.record, "company")
	}
	return hasAll(customer.record, "firstName") || hasAll(customer.record, "lastName")
}

func (customer *Customer) Transform() types.Payload {
	groups := customer.config.CustomerGroups
	customerGroup, customerType := groups.Individual, "Individual"
	if customer.isOrganization() {
		customerGroup, customerType = groups.Organization, "Company"
	}

	return types.Payload{
		"name":           customer.record.String("customerNumber"),
		"customer_name":  customer.customerName(),
		"customer_group": customerGroup,
		"customer_type":  customerType,
		"website":        customer.record.String("website"),
		"tax_id":         customer.record.String("vatRegistrationNumber"),
		"phone":          normalize.PhoneNumber(customer.record.String("phone"), customer.config.Defaults.PhoneCountryCode),
		"email":          customer.record.String("email"),
	}
}

// Migrate creates addresses and contacts first so the header can point at
// its primary ones, then the header, the links and the bank accounts. Child
// failures are logged and skipped; a failed header create is returned.
func (customer *Customer) Migrate(ctx context.Context) (types.Payload, error) {
	payload := customer.Transform()
	customerNumber := payload.String("name")

	var addresses []types.Payload
	for i, record := range customer.record.Records("addresses") {
		address := customer.migrations.NewAddress(record, customer.record, i)
		if !address.Validate() {
			customer.logger.Warnf("Skipping invalid address %s of customer %s", addressKey(record), customerNumber)
			continue
		}
		created, err := address.Migrate(ctx)
		if err != nil {
			customer.logger.Errorf("Could not migrate address %s of customer %s: %v", addressKey(record), customerNumber, err)
			continue
		}
		addresses = append(addresses, created)

		if address.IsPrimary() && payload["customer_primary_address"] == nil {
			payload["customer_primary_address"] = created.Name()
			country := created.String("country")
			if country == "" {
				country = normalize.Country(record.String("countryCode"), customer.config.Countries)
			}
			payload["territory"] = country
		}
	}

	var contacts []types.Payload
	for i, record := range customer.record.Records("contacts") {
		contact := customer.migrations.NewContact(record, customer.record, i)
		if !contact.Validate() {
			customer.logger.Warnf("Skipping invalid contact %s of customer %s", record.String("id"), customerNumber)
			continue
		}
		created, err := contact.Migrate(ctx)
		if err != nil {
			customer.logger.Errorf("Could not migrate contact %s of customer %s: %v", record.String("id"), customerNumber, err)
			continue
		}
		contacts = append(contacts, created)

		if contact.IsPrimary() && payload["customer_primary_contact"] == nil {
			payload["customer_primary_contact"] = created.Name()
		}
	}

	if customer.config.EnsureReferences {
		resolved, err := ResolveLinks(ctx, customer.writer, customer.withReferences(payload))
		if err != nil {
			return nil, fmt.Errorf("ensure references of customer %s: %w", customerNumber, err)
		}
		payload = resolved
	}

	created, err := customer.writer.Create(ctx, customer.DocType(), payload)
	if err != nil {
		return nil, fmt.Errorf("create customer %s: %w", customerNumber, err)
	}
	customerName := nameOr(created, customerNumber)

	for _, address := range addresses {
		if _, err := customer.writer.CreateLink(ctx, types.TargetDocTypeCustomer, customerName, types.TargetDocTypeAddress, address.Name()); err != nil {
			customer.logger.Errorf("Could not link address %s to customer %s: %v", address.Name(), customerName, err)
		}
	}
	for _, contact := range contacts {
		if _, err := customer.writer.CreateLink(ctx, types.TargetDocTypeCustomer, customerName, types.TargetDocTypeContact, contact.Name()); err != nil {
			customer.logger.Errorf("Could not link contact %s to customer %s: %v", contact.Name(), customerName, err)
		}
	}

	for _, record := range customer.record.Records("bankAccounts") {
		bankAccount := customer.migrations.NewBankAccount(record, created)
		if !bankAccount.Validate() {
			customer.logger.Warnf("Skipping invalid bank account %s of customer %s", record.String("id"), customerNumber)
			continue
		}
		if _, err := bankAccount.Migrate(ctx); err != nil {
			customer.logger.Errorf("Could not migrate bank account %s of customer %s: %v", record.String("id"), customerNumber, err)
		}
	}

	return created, nil
}

func (customer *Customer) isOrganization() bool {
	return customer.record.String("partyType") != partyTypePerson
}

func (customer *Customer) customerName() string {
	if customer.isOrganization() {
		return customer.record.String("company")
	}
	return strings.TrimSpace(customer.record.String("firstName") + " " + customer.record.String("lastName"))
}

// withReferences wraps customer group and territory so ResolveLinks creates
// them when they are missing.
func (customer *Customer) withReferences(payload types.Payload) types.Payload {
	linked := payload.Clone()
	if group := payload.String("customer_group"); group != "" {
		linked["customer_group"] = types.LinkedPayload{
			DocType: types.TargetDocTypeCustomerGroup,
			Name:    group,
			Fields: types.Payload{
				"customer_group_name":   group,
				"parent_customer_group": customer.config.CustomerGroups.Parent,
			},
		}
	}
	if territory := payload.String("territory"); territory != "" {
		linked["territory"] = types.LinkedPayload{
			DocType: types.TargetDocTypeTerritory,
			Name:    territory,
			Fields: types.Payload{
				"territory_name":   territory,
				"parent_territory": customer.config.Defaults.Territory,
			},
		}
	}
	return linked
}
