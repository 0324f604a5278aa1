package migration

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlift/erp-migrator/types"
)

var fixedNow = time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)

func newInvoiceMigrations(t *testing.T, writer *mockTargetWriter) *Migrations {
	migrations := newTestMigrations(t, writer)
	migrations.Now = func() time.Time { return fixedNow }
	return migrations
}

func sampleInvoice() types.Record {
	return types.Record{
		"invoiceNumber":     "1001",
		"customerNumber":    "C-001",
		"commission":        "Spring order",
		"invoiceDate":       int64(1700000000000),
		"netAmount":         300.0,
		"grossAmount":       357.0,
		"termOfPaymentName": "14 Tage netto",
		"salesInvoiceItems": []any{
			map[string]any{"title": "Widget", "quantity": 2.0, "unitPrice": 100.0, "taxId": "2691", "unitName": "Stk."},
			map[string]any{"title": "Service", "description": "Setup", "quantity": 1.0, "unitPrice": 100.0, "taxId": "2680", "unitName": "h"},
			map[string]any{"title": "Mystery", "quantity": 1.0, "unitPrice": 0.0, "taxId": "9999"},
			map[string]any{"quantity": 3.0, "unitPrice": 0.0, "taxId": "2691"},
		},
	}
}

func TestInvoice_Validate(t *testing.T) {
	migrations := newInvoiceMigrations(t, newMockTargetWriter())

	assert.True(t, migrations.NewInvoice(types.Record{"netAmount": 0.01}).Validate())
	assert.False(t, migrations.NewInvoice(types.Record{"netAmount": 0.0}).Validate())
	assert.False(t, migrations.NewInvoice(types.Record{"netAmount": -10.0, "salesInvoiceType": "CREDIT_NOTE"}).Validate())
	assert.False(t, migrations.NewInvoice(types.Record{}).Validate())
}

func TestInvoice_Transform_Header(t *testing.T) {
	migrations := newInvoiceMigrations(t, newMockTargetWriter())

	payload := migrations.NewInvoice(sampleInvoice()).Transform()

	assert.Equal(t, "RE-1001", payload["name"])
	assert.Equal(t, 1, payload["docstatus"])
	assert.Equal(t, 1, payload["set_posting_time"])
	assert.Equal(t, "2023-11-14", payload["posting_date"])
	assert.Equal(t, "2023-11-14", payload["due_date"])
	assert.Equal(t, "C-001", payload["customer"])
	assert.Equal(t, "Spring order", payload["title"])
	assert.Equal(t, "EUR", payload["currency"])
	assert.Equal(t, false, payload["is_return"])
	assert.Equal(t, []types.Payload{{
		"docstatus":       1,
		"due_date":        "2023-11-14",
		"invoice_portion": 100.0,
		"payment_term":    "14 Tage netto",
	}}, payload["payment_schedule"])
}

func TestInvoice_Transform_Items(t *testing.T) {
	migrations := newInvoiceMigrations(t, newMockTargetWriter())

	items := migrations.NewInvoice(sampleInvoice()).Transform()["items"].([]types.Payload)

	require.Len(t, items, 4)
	assert.Equal(t, "Widget", items[0]["item_name"])
	assert.Equal(t, "Widget", items[0]["description"])
	assert.Equal(t, "Stk", items[0]["uom"])
	assert.Equal(t, 2.0, items[0]["qty"])
	assert.Equal(t, "4400 - Erlöse 19 % USt - pcg", items[0]["income_account"])
	assert.Equal(t, "Haupt - pcg", items[0]["cost_center"])

	assert.Equal(t, "Setup", items[1]["description"])
	assert.Equal(t, "h", items[1]["uom"])

	assert.NotContains(t, items[2], "income_account")
	assert.Equal(t, "Stk", items[2]["uom"])

	assert.Equal(t, "(No title)", items[3]["item_name"])
	assert.Equal(t, "(No title)", items[3]["description"])
}

func TestInvoice_Transform_TaxBucketing(t *testing.T) {
	migrations := newInvoiceMigrations(t, newMockTargetWriter())
	invoice := migrations.NewInvoice(sampleInvoice())

	items, buckets := invoice.items()

	assert.Equal(t, []string{"2691", "2680"}, buckets.keys)
	assert.Len(t, buckets.items["2691"], 2)
	assert.Len(t, buckets.items["2680"], 1)
	assert.NotContains(t, buckets.items, "9999")

	var bucketed int
	for _, taxID := range buckets.keys {
		bucketed += len(buckets.items[taxID])
	}
	var mapped int
	for _, item := range items {
		if _, ok := item["income_account"]; ok {
			mapped++
		}
	}
	assert.Equal(t, mapped, bucketed)

	taxes := invoice.taxes(buckets)
	require.Len(t, taxes, 1)
	assert.Equal(t, types.Payload{
		"docstatus":    1,
		"charge_type":  "On Net Total",
		"account_head": "3806 - Umsatzsteuer 19 % - pcg",
		"description":  "Umsatzsteuer 19 %",
		"rate":         19.0,
		"cost_center":  "Haupt - pcg",
	}, taxes[0])
}

func TestInvoice_Transform_TaxOrderFollowsItems(t *testing.T) {
	migrations := newInvoiceMigrations(t, newMockTargetWriter())
	record := types.Record{
		"netAmount": 1.0,
		"salesInvoiceItems": []any{
			map[string]any{"taxId": "2699"},
			map[string]any{"taxId": "2691"},
			map[string]any{"taxId": "2699"},
		},
	}

	taxes := migrations.NewInvoice(record).Transform()["taxes"].([]types.Payload)

	require.Len(t, taxes, 2)
	assert.Equal(t, 16.0, taxes[0]["rate"])
	assert.Equal(t, 19.0, taxes[1]["rate"])
}

func TestInvoice_Transform_CreditNote(t *testing.T) {
	migrations := newInvoiceMigrations(t, newMockTargetWriter())
	record := sampleInvoice()
	record["salesInvoiceType"] = "CREDIT_NOTE"

	payload := migrations.NewInvoice(record).Transform()

	assert.Equal(t, true, payload["is_return"])
	assert.NotContains(t, payload, "payment_schedule")
	items := payload["items"].([]types.Payload)
	assert.Equal(t, -2.0, items[0]["qty"])
	assert.Equal(t, -1.0, items[1]["qty"])
	assert.Equal(t, -3.0, items[3]["qty"])
}

func TestInvoice_Transform_DateFallbacks(t *testing.T) {
	migrations := newInvoiceMigrations(t, newMockTargetWriter())
	record := types.Record{"invoiceDate": "yesterday", "dueDate": int64(1700600000000)}

	payload := migrations.NewInvoice(record).Transform()

	assert.Equal(t, "2024-05-17", payload["posting_date"])
	assert.Equal(t, "2023-11-21", payload["due_date"])

	payload = migrations.NewInvoice(types.Record{"dueDate": 0}).Transform()
	assert.Equal(t, "2024-05-17", payload["due_date"])

	payload = migrations.NewInvoice(types.Record{"invoiceDate": 1e300}).Transform()
	assert.Equal(t, "2024-05-17", payload["posting_date"])
}

func TestInvoice_Transform_ClipsTitleAndDefaultsTerm(t *testing.T) {
	migrations := newInvoiceMigrations(t, newMockTargetWriter())
	longTitle := strings.Repeat("ä", 200)
	record := types.Record{"salesInvoiceItems": []any{map[string]any{"title": longTitle}}}

	payload := migrations.NewInvoice(record).Transform()

	items := payload["items"].([]types.Payload)
	assert.Equal(t, strings.Repeat("ä", 140), items[0]["item_name"])
	assert.Equal(t, "net sofort", payload["payment_schedule"].([]types.Payload)[0]["payment_term"])
}

func TestInvoice_Transform_Idempotent(t *testing.T) {
	migrations := newInvoiceMigrations(t, newMockTargetWriter())
	invoice := migrations.NewInvoice(sampleInvoice())

	assert.Equal(t, invoice.Transform(), invoice.Transform())
}

func TestInvoice_Migrate_ZeroNetAmount(t *testing.T) {
	writer := newMockTargetWriter()
	migrations := newInvoiceMigrations(t, writer)
	invoice := migrations.NewInvoice(types.Record{"invoiceNumber": "1", "netAmount": 0})

	assert.False(t, invoice.Validate())
	created, err := invoice.Migrate(context.Background())

	assert.NoError(t, err)
	assert.Nil(t, created)
	assert.False(t, writer.Called)
	assert.Equal(t, InvoiceStateInvalid, invoice.State())
}

func TestInvoice_Migrate_PaidCreatesPayment(t *testing.T) {
	writer := newMockTargetWriter()
	writer.OnCreate = func(docType types.TargetDocType, created types.Payload) types.Payload {
		if docType == types.TargetDocTypeSalesInvoice {
			created["grand_total"] = 357.0
			created["customer_name"] = "Acme GmbH"
		}
		return created
	}
	migrations := newInvoiceMigrations(t, writer)
	record := sampleInvoice()
	record["paymentStatus"] = "PAID"
	invoice := migrations.NewInvoice(record)

	created, err := invoice.Migrate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "RE-1001", created.Name())
	assert.Equal(t, InvoiceStateDone, invoice.State())

	payments := writer.calls("Create", types.TargetDocTypePaymentEntry)
	require.Len(t, payments, 1)
	payment := payments[0].Payload
	assert.Equal(t, "Receive", payment["payment_type"])
	assert.Equal(t, "C-001", payment["party"])
	assert.Equal(t, "Acme GmbH", payment["party_name"])
	assert.Equal(t, "2023-11-14", payment["posting_date"])
	assert.Equal(t, 357.0, payment["paid_amount"])
	assert.Equal(t, 357.0, payment["received_amount"])
	references := payment["references"].([]types.Payload)
	require.Len(t, references, 1)
	assert.Equal(t, "RE-1001", references[0]["reference_name"])
	assert.Equal(t, 357.0, references[0]["allocated_amount"])
}

func TestInvoice_Migrate_NoPayment(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		credit     bool
		grandTotal float64
	}{
		{"unpaid", "OPEN", false, 357.0},
		{"credit note", "PAID", true, -357.0},
		{"zero total", "PAID", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := newMockTargetWriter()
			writer.OnCreate = func(docType types.TargetDocType, created types.Payload) types.Payload {
				created["grand_total"] = tt.grandTotal
				return created
			}
			migrations := newInvoiceMigrations(t, writer)
			record := sampleInvoice()
			record["paymentStatus"] = tt.status
			if tt.credit {
				record["salesInvoiceType"] = "CREDIT_NOTE"
			}

			_, err := migrations.NewInvoice(record).Migrate(context.Background())

			require.NoError(t, err)
			assert.Empty(t, writer.calls("Create", types.TargetDocTypePaymentEntry))
		})
	}
}

func TestInvoice_PostValidate(t *testing.T) {
	migrations := newInvoiceMigrations(t, newMockTargetWriter())
	invoice := migrations.NewInvoice(sampleInvoice())

	assert.NoError(t, invoice.postValidate(types.Payload{"name": "RE-1001", "grand_total": 357.001}))
	assert.NoError(t, invoice.postValidate(types.Payload{"name": "RE-1001"}))

	err := invoice.postValidate(types.Payload{"name": "RE-1001", "grand_total": 350.0})
	var mismatch *IntegrityMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "RE-1001", mismatch.Invoice)
	assert.Equal(t, 357.0, mismatch.SourceTotal)

	record := sampleInvoice()
	record["salesInvoiceType"] = "CREDIT_NOTE"
	credit := migrations.NewInvoice(record)
	assert.NoError(t, credit.postValidate(types.Payload{"grand_total": -357.0}))
	assert.Error(t, credit.postValidate(types.Payload{"grand_total": 357.0}))
}

func TestInvoice_Migrate_MismatchKeepsInvoice(t *testing.T) {
	writer := newMockTargetWriter()
	writer.OnCreate = func(docType types.TargetDocType, created types.Payload) types.Payload {
		created["grand_total"] = 1.0
		return created
	}
	migrations := newInvoiceMigrations(t, writer)
	invoice := migrations.NewInvoice(sampleInvoice())

	created, err := invoice.Migrate(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, created)
	assert.Equal(t, InvoiceStateDone, invoice.State())
	assert.Empty(t, writer.calls("Delete", types.TargetDocTypeSalesInvoice))
}

func TestInvoice_Migrate_CreateError(t *testing.T) {
	writer := newMockTargetWriter()
	writer.CreateErrs[types.TargetDocTypeSalesInvoice] = errors.New("rejected")
	migrations := newInvoiceMigrations(t, writer)
	invoice := migrations.NewInvoice(sampleInvoice())

	_, err := invoice.Migrate(context.Background())

	assert.ErrorContains(t, err, "rejected")
	assert.Equal(t, InvoiceStateFailed, invoice.State())
}

func TestInvoice_Migrate_PaymentError(t *testing.T) {
	writer := newMockTargetWriter()
	writer.CreateErrs[types.TargetDocTypePaymentEntry] = errors.New("no account")
	writer.OnCreate = func(docType types.TargetDocType, created types.Payload) types.Payload {
		created["grand_total"] = 357.0
		return created
	}
	migrations := newInvoiceMigrations(t, writer)
	record := sampleInvoice()
	record["paymentStatus"] = "PAID"
	invoice := migrations.NewInvoice(record)

	created, err := invoice.Migrate(context.Background())

	assert.ErrorContains(t, err, "no account")
	require.NotNil(t, created)
	assert.Equal(t, "RE-1001", created.Name())
	assert.Equal(t, InvoiceStateFailed, invoice.State())
	assert.Len(t, writer.Docs[types.TargetDocTypeSalesInvoice], 1)
}
