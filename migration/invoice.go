package migration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ledgerlift/erp-migrator/normalize"
	"github.com/ledgerlift/erp-migrator/types"
)

const (
	invoiceNamePrefix     = "RE-"
	invoiceTypeCredit     = "CREDIT_NOTE"
	paymentStatusPaid     = "PAID"
	maxItemTitleLength    = 140
	defaultItemTitle      = "(No title)"
	chargeTypeNetTotal    = "On Net Total"
	paymentTypeReceive    = "Receive"
	accountTypeReceivable = "Receivable"
)

type InvoiceState string

const (
	InvoiceStateUnvalidated    InvoiceState = "unvalidated"
	InvoiceStateTransformed    InvoiceState = "transformed"
	InvoiceStateCreated        InvoiceState = "created"
	InvoiceStatePostValidated  InvoiceState = "postValidated"
	InvoiceStatePaymentChecked InvoiceState = "paymentChecked"
	InvoiceStateDone           InvoiceState = "done"
	InvoiceStateInvalid        InvoiceState = "invalid"
	InvoiceStateFailed         InvoiceState = "failed"
)

type Invoice struct {
	base
	now   func() time.Time
	state InvoiceState
}

func (migrations *Migrations) NewInvoice(record types.Record) *Invoice {
	now := migrations.Now
	if now == nil {
		now = time.Now
	}
	return &Invoice{
		base:  migrations.newBase(record, nil, false),
		now:   now,
		state: InvoiceStateUnvalidated,
	}
}

func (invoice *Invoice) DocType() types.TargetDocType {
	return types.TargetDocTypeSalesInvoice
}

// State is the last state Migrate reached.
func (invoice *Invoice) State() InvoiceState {
	return invoice.state
}

// Validate requires a positive net amount, for credit notes as well.
func (invoice *Invoice) Validate() bool {
	return invoice.record.Float("netAmount") > 0
}

func (invoice *Invoice) Transform() types.Payload {
	defaults := invoice.config.Defaults
	postingDate := invoice.postingDate()

	items, buckets := invoice.items()
	payload := types.Payload{
		"name":              invoiceNamePrefix + invoice.record.String("invoiceNumber"),
		"docstatus":         defaults.InvoiceState,
		"set_posting_time":  1,
		"posting_date":      postingDate,
		"due_date":          invoice.dueDate(postingDate),
		"customer":          invoice.record.String("customerNumber"),
		"title":             invoice.record.String("commission"),
		"taxes_and_charges": defaults.TaxesAndCharges,
		"currency":          defaults.Currency,
		"is_return":         invoice.isCreditNote(),
		"items":             items,
		"taxes":             invoice.taxes(buckets),
	}
	if !invoice.isCreditNote() {
		payload["payment_schedule"] = []types.Payload{{
			"docstatus":       defaults.InvoiceState,
			"due_date":        payload["due_date"],
			"invoice_portion": 100.0,
			"payment_term":    invoice.paymentTerm(),
		}}
	}
	return payload
}

// Migrate walks the invoice through creation, the total check and the
// payment. Invalid invoices return nil without any remote call. A total
// mismatch is logged and the created invoice is kept. A failed payment
// returns the created invoice together with the error.
func (invoice *Invoice) Migrate(ctx context.Context) (types.Payload, error) {
	invoice.state = InvoiceStateUnvalidated
	if !invoice.Validate() {
		invoice.state = InvoiceStateInvalid
		return nil, nil
	}

	payload := invoice.Transform()
	invoice.state = InvoiceStateTransformed

	created, err := invoice.writer.Create(ctx, invoice.DocType(), payload)
	if err != nil {
		invoice.state = InvoiceStateFailed
		return nil, fmt.Errorf("create sales invoice %s: %w", payload.Name(), err)
	}
	invoice.state = InvoiceStateCreated

	if err := invoice.postValidate(created); err != nil {
		var mismatch *IntegrityMismatchError
		if errors.As(err, &mismatch) {
			invoice.logger.Errorf("Integrity check failed: %v", mismatch)
		}
	}
	invoice.state = InvoiceStatePostValidated

	if err := invoice.createPayment(ctx, created); err != nil {
		invoice.state = InvoiceStateFailed
		return created, fmt.Errorf("create payment for sales invoice %s: %w", created.Name(), err)
	}
	invoice.state = InvoiceStatePaymentChecked

	invoice.state = InvoiceStateDone
	return created, nil
}

func (invoice *Invoice) isCreditNote() bool {
	return invoice.record.String("salesInvoiceType") == invoiceTypeCredit
}

func (invoice *Invoice) postingDate() string {
	if millis, ok := invoice.record.Timestamp("invoiceDate"); ok {
		return normalize.DateFromTimestamp(millis, invoice.config.Location())
	}
	return invoice.now().In(invoice.config.Location()).Format(normalize.DateLayout)
}

func (invoice *Invoice) dueDate(postingDate string) string {
	if millis, ok := invoice.record.Timestamp("dueDate"); ok {
		return normalize.DateFromTimestamp(millis, invoice.config.Location())
	}
	return postingDate
}

func (invoice *Invoice) paymentTerm() string {
	if term := invoice.record.String("termOfPaymentName"); term != "" {
		return term
	}
	return invoice.config.Defaults.PaymentTerm
}

// items maps the invoice items and buckets every item whose tax id is in
// the tax table.
func (invoice *Invoice) items() ([]types.Payload, *taxBuckets) {
	defaults := invoice.config.Defaults
	buckets := newTaxBuckets()
	items := []types.Payload{}

	for _, record := range invoice.record.Records("salesInvoiceItems") {
		title := invoice.itemTitle(record)
		description := record.String("description")
		if description == "" {
			description = title
		}

		item := types.Payload{
			"docstatus":           defaults.InvoiceState,
			"item_name":           title,
			"description":         description,
			"price_list_rate":     record.Float("unitPrice"),
			"discount_percentage": record.Float("discountPercentage"),
			"qty":                 invoice.quantity(record),
			"uom":                 normalize.UnitOfMeasure(record.String("unitName"), invoice.config.UnitAliases(), defaults.UnitOfMeasure),
			"cost_center":         defaults.CostCenter,
		}

		taxID := record.String("taxId")
		if taxInfo, ok := invoice.config.TaxInfo(taxID); ok {
			item["income_account"] = taxInfo.IncomeAccount
			buckets.add(taxID, item)
		}
		items = append(items, item)
	}
	return items, buckets
}

func (invoice *Invoice) itemTitle(record types.Record) string {
	title := record.String("title")
	if title == "" {
		title = invoice.config.Defaults.ItemTitle
	}
	if title == "" {
		title = defaultItemTitle
	}
	return normalize.Clip(title, maxItemTitleLength)
}

func (invoice *Invoice) quantity(record types.Record) float64 {
	quantity := record.Float("quantity")
	if invoice.isCreditNote() && quantity != 0 {
		return -quantity
	}
	return quantity
}

// taxes emits one line per bucket whose tax info books to a tax account.
func (invoice *Invoice) taxes(buckets *taxBuckets) []types.Payload {
	defaults := invoice.config.Defaults
	taxes := []types.Payload{}
	for _, taxID := range buckets.keys {
		taxInfo, ok := invoice.config.TaxInfo(taxID)
		if !ok || taxInfo.TaxAccount == "" {
			continue
		}
		taxes = append(taxes, types.Payload{
			"docstatus":    defaults.InvoiceState,
			"charge_type":  chargeTypeNetTotal,
			"account_head": taxInfo.TaxAccount,
			"description":  taxInfo.Description,
			"rate":         taxInfo.Rate,
			"cost_center":  defaults.CostCenter,
		})
	}
	return taxes
}

// postValidate compares the created grand total with the source gross
// amount in cents. Missing or zero totals are not checked.
func (invoice *Invoice) postValidate(created types.Payload) error {
	targetTotal := created.Float("grand_total")
	sourceTotal := invoice.record.Float("grossAmount")
	if targetTotal == 0 || sourceTotal == 0 {
		return nil
	}
	if invoice.isCreditNote() {
		sourceTotal = -sourceTotal
	}

	if toCents(targetTotal) != toCents(sourceTotal) {
		return &IntegrityMismatchError{
			Invoice:     created.Name(),
			TargetTotal: targetTotal,
			SourceTotal: sourceTotal,
		}
	}
	return nil
}

func (invoice *Invoice) createPayment(ctx context.Context, created types.Payload) error {
	if invoice.isCreditNote() || invoice.record.String("paymentStatus") != paymentStatusPaid {
		return nil
	}
	grandTotal := created.Float("grand_total")
	if grandTotal <= 0 {
		return nil
	}

	defaults := invoice.config.Defaults
	accounts := invoice.config.PaymentEntry
	payment := types.Payload{
		"docstatus":                  defaults.InvoiceState,
		"payment_type":               paymentTypeReceive,
		"posting_date":               created.String("posting_date"),
		"mode_of_payment":            accounts.ModeOfPayment,
		"party_type":                 string(types.TargetDocTypeCustomer),
		"party":                      created.String("customer"),
		"party_name":                 created.String("customer_name"),
		"paid_from":                  accounts.PaidFromAccount,
		"paid_from_account_type":     accountTypeReceivable,
		"paid_from_account_currency": defaults.Currency,
		"paid_to":                    accounts.PaidToAccount,
		"paid_to_account_type":       accounts.PaidToAccountType,
		"paid_to_account_currency":   defaults.Currency,
		"paid_amount":                grandTotal,
		"received_amount":            grandTotal,
		"references": []types.Payload{{
			"docstatus":         defaults.InvoiceState,
			"reference_doctype": string(types.TargetDocTypeSalesInvoice),
			"reference_name":    created.Name(),
			"total_amount":      grandTotal,
			"allocated_amount":  grandTotal,
		}},
	}

	_, err := invoice.writer.Create(ctx, types.TargetDocTypePaymentEntry, payment)
	if err != nil {
		return err
	}
	invoice.logger.Infof("Created payment entry for sales invoice %s", created.Name())
	return nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
