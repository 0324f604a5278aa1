package types

type SourceDocType string

const (
	SourceDocTypeCustomer      SourceDocType = "customer"
	SourceDocTypeContact       SourceDocType = "contact"
	SourceDocTypeBankAccount   SourceDocType = "bankAccount"
	SourceDocTypeSalesInvoice  SourceDocType = "salesInvoice"
	SourceDocTypeSalesOrder    SourceDocType = "salesOrder"
	SourceDocTypeArticle       SourceDocType = "article"
	SourceDocTypeUnit          SourceDocType = "unit"
	SourceDocTypeTax           SourceDocType = "tax"
	SourceDocTypeTermOfPayment SourceDocType = "termOfPayment"
)

// SourceDocTypes lists the collections the cache command snapshots by default.
var SourceDocTypes = []SourceDocType{
	SourceDocTypeCustomer,
	SourceDocTypeContact,
	SourceDocTypeBankAccount,
	SourceDocTypeSalesInvoice,
	SourceDocTypeSalesOrder,
	SourceDocTypeArticle,
	SourceDocTypeUnit,
	SourceDocTypeTax,
	SourceDocTypeTermOfPayment,
}

func (docType SourceDocType) IsValidSourceDocType() bool {
	for _, known := range SourceDocTypes {
		if docType == known {
			return true
		}
	}
	return false
}

type TargetDocType string

const (
	TargetDocTypeCustomer      TargetDocType = "Customer"
	TargetDocTypeAddress       TargetDocType = "Address"
	TargetDocTypeContact       TargetDocType = "Contact"
	TargetDocTypeBank          TargetDocType = "Bank"
	TargetDocTypeBankAccount   TargetDocType = "Bank Account"
	TargetDocTypeSalesInvoice  TargetDocType = "Sales Invoice"
	TargetDocTypePaymentEntry  TargetDocType = "Payment Entry"
	TargetDocTypeCustomerGroup TargetDocType = "Customer Group"
	TargetDocTypeTerritory     TargetDocType = "Territory"
)

func (docType TargetDocType) IsValidTargetDocType() bool {
	switch docType {
	case TargetDocTypeCustomer,
		TargetDocTypeAddress,
		TargetDocTypeContact,
		TargetDocTypeBank,
		TargetDocTypeBankAccount,
		TargetDocTypeSalesInvoice,
		TargetDocTypePaymentEntry,
		TargetDocTypeCustomerGroup,
		TargetDocTypeTerritory:
		return true
	default:
		return false
	}
}
