package migration

import (
	"context"

	"github.com/ledgerlift/erp-migrator/normalize"
	"github.com/ledgerlift/erp-migrator/types"
)

type Contact struct {
	base
}

// NewContact builds the migrator for record, the contact at index of the
// parent's contacts.
func (migrations *Migrations) NewContact(record types.Record, parent types.Record, index int) *Contact {
	return &Contact{base: migrations.newBase(record, parent, isPrimaryContact(parent, index))}
}

func (contact *Contact) DocType() types.TargetDocType {
	return types.TargetDocTypeContact
}

func (contact *Contact) Validate() bool {
	return hasAll(contact.record, "firstName", "lastName")
}

func (contact *Contact) Transform() types.Payload {
	return types.Payload{
		"first_name":         contact.record.String("firstName"),
		"last_name":          contact.record.String("lastName"),
		"is_primary_contact": contact.isPrimary,
		"status":             "Passive",
		"email_ids":          contact.emails(),
		"phone_nos":          contact.phoneNumbers(),
	}
}

func (contact *Contact) Migrate(ctx context.Context) (types.Payload, error) {
	return contact.writer.Create(ctx, contact.DocType(), contact.Transform())
}

func (contact *Contact) emails() []types.Payload {
	emails := []types.Payload{}
	if email := contact.record.String("email"); email != "" {
		emails = append(emails, types.Payload{
			"email_id":   email,
			"is_primary": true,
		})
	}
	return emails
}

func (contact *Contact) phoneNumbers() []types.Payload {
	countryCode := contact.config.Defaults.PhoneCountryCode
	phoneNumbers := []types.Payload{}

	if phone := normalize.PhoneNumber(contact.record.String("phone"), countryCode); phone != "" {
		phoneNumbers = append(phoneNumbers, types.Payload{
			"phone":            phone,
			"is_primary_phone": true,
		})
	}
	if mobile := normalize.PhoneNumber(contact.record.String("mobilePhone1"), countryCode); mobile != "" {
		phoneNumbers = append(phoneNumbers, types.Payload{
			"phone":                mobile,
			"is_primary_mobile_no": true,
		})
	}
	return phoneNumbers
}

// isPrimaryContact reports whether the contact at index is the first of the
// parent's contacts carrying the primaryContactId.
func isPrimaryContact(parent types.Record, index int) bool {
	primaryID := parent.String("primaryContactId")
	if primaryID == "" || index < 0 {
		return false
	}
	for i, contact := range parent.Records("contacts") {
		if contact.String("id") == primaryID {
			return i == index
		}
	}
	return false
}
