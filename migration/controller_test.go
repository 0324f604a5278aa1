package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlift/erp-migrator/types"
)

type mockSourceReader struct {
	Records []types.Record
	Err     error
	Called  bool
}

func (m *mockSourceReader) GetAll(ctx context.Context, docType types.SourceDocType) ([]types.Record, error) {
	m.Called = true
	return m.Records, m.Err
}

func (m *mockSourceReader) Get(ctx context.Context, docType types.SourceDocType, id string) (types.Record, error) {
	m.Called = true
	return nil, nil
}

func (m *mockSourceReader) Search(ctx context.Context, docType types.SourceDocType, filters []types.Filter) ([]types.Record, error) {
	m.Called = true
	return nil, nil
}

type mockLedgerClient struct {
	Migrated  map[string]bool
	Outcomes  []types.RecordOutcome
	Completed *types.RunSummary
	Called    bool
}

func (m *mockLedgerClient) StartRun(ctx context.Context, sourceDocType types.SourceDocType, targetDocType types.TargetDocType) (string, error) {
	m.Called = true
	return "run-1", nil
}

func (m *mockLedgerClient) RecordOutcome(ctx context.Context, outcome types.RecordOutcome) error {
	m.Called = true
	m.Outcomes = append(m.Outcomes, outcome)
	return nil
}

func (m *mockLedgerClient) IsMigrated(ctx context.Context, targetDocType types.TargetDocType, sourceKey string) (bool, error) {
	m.Called = true
	return m.Migrated[sourceKey], nil
}

func (m *mockLedgerClient) CompleteRun(ctx context.Context, summary types.RunSummary) error {
	m.Called = true
	m.Completed = &summary
	return nil
}

type mockOutcomeCsvClient struct {
	Summary *types.RunSummary
	Called  bool
}

func (m *mockOutcomeCsvClient) Export(summary types.RunSummary) (string, error) {
	m.Called = true
	m.Summary = &summary
	return "outcomes.csv", nil
}

func newTestController(t *testing.T, source *mockSourceReader, writer *mockTargetWriter) *Controller {
	migrations := newInvoiceMigrations(t, writer)
	return NewController(source, migrations, &mockLedgerClient{Migrated: map[string]bool{}}, &mockOutcomeCsvClient{}, logrus.New())
}

func TestController_MigrateAll_UnknownTargetType(t *testing.T) {
	source := &mockSourceReader{}
	controller := newTestController(t, source, newMockTargetWriter())

	_, err := controller.MigrateAll(context.Background(), types.SourceDocTypeSalesOrder, types.TargetDocTypePaymentEntry)

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, types.TargetDocTypePaymentEntry, configErr.TargetDocType)
	assert.False(t, source.Called)
	assert.False(t, controller.Ledger.(*mockLedgerClient).Called)
}

func TestController_MigrateAll_FetchError(t *testing.T) {
	source := &mockSourceReader{Err: errors.New("source down")}
	controller := newTestController(t, source, newMockTargetWriter())

	_, err := controller.MigrateAll(context.Background(), types.SourceDocTypeCustomer, types.TargetDocTypeCustomer)

	assert.ErrorContains(t, err, "source down")
}

func TestController_MigrateAll_Invoices(t *testing.T) {
	failing := sampleInvoice()
	failing["invoiceNumber"] = "1003"
	source := &mockSourceReader{Records: []types.Record{
		sampleInvoice(),
		{"invoiceNumber": "1002", "netAmount": 0},
		failing,
	}}
	writer := newMockTargetWriter()
	migrations := newInvoiceMigrations(t, writer)
	ledgerClient := &mockLedgerClient{Migrated: map[string]bool{}}
	outcomeCsvClient := &mockOutcomeCsvClient{}
	controller := NewController(source, migrations, ledgerClient, outcomeCsvClient, logrus.New())
	controller.Factories[types.TargetDocTypeSalesInvoice] = func(record types.Record, parent types.Record) Migrator {
		if record.String("invoiceNumber") == "1003" {
			return &failingMigrator{Migrator: migrations.NewInvoice(record)}
		}
		return migrations.NewInvoice(record)
	}

	summary, err := controller.MigrateAll(context.Background(), types.SourceDocTypeSalesInvoice, types.TargetDocTypeSalesInvoice)

	require.NoError(t, err)
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Invalid)
	assert.Equal(t, 1, summary.Failed)

	assert.Equal(t, "1001", summary.Outcomes[0].SourceKey)
	assert.Equal(t, "RE-1001", summary.Outcomes[0].TargetName)
	assert.Equal(t, types.OutcomeStatusInvalid, summary.Outcomes[1].Status)
	assert.Equal(t, "failing migrator", summary.Outcomes[2].ErrorMessage)

	assert.Len(t, ledgerClient.Outcomes, 3)
	require.NotNil(t, ledgerClient.Completed)
	assert.Equal(t, 3, ledgerClient.Completed.Total)
	assert.True(t, outcomeCsvClient.Called)
	assert.Len(t, writer.calls("Create", types.TargetDocTypeSalesInvoice), 1)
}

func TestController_MigrateAll_SkipsIgnoredAndMigrated(t *testing.T) {
	source := &mockSourceReader{Records: []types.Record{
		{"customerNumber": "TEST-1", "partyType": "ORGANIZATION", "company": "Test"},
		{"customerNumber": "1000", "partyType": "ORGANIZATION", "company": "Done Corp"},
		{"customerNumber": "1001", "partyType": "PERSON", "firstName": "Ada"},
	}}
	writer := newMockTargetWriter()
	controller := newTestController(t, source, writer)
	controller.Config.IgnorePatterns = []string{"^TEST-"}
	require.NoError(t, controller.Config.Validate())
	controller.Ledger.(*mockLedgerClient).Migrated["1000"] = true

	summary, err := controller.MigrateAll(context.Background(), types.SourceDocTypeCustomer, types.TargetDocTypeCustomer)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, summary.Succeeded)
	creates := writer.calls("Create", types.TargetDocTypeCustomer)
	require.Len(t, creates, 1)
	assert.Equal(t, "1001", creates[0].Payload["name"])
	assert.False(t, controller.OutcomeCsvClient.(*mockOutcomeCsvClient).Called)
}

func TestController_MigrateAll_Force(t *testing.T) {
	source := &mockSourceReader{Records: []types.Record{
		{"customerNumber": "1000", "partyType": "ORGANIZATION", "company": "Done Corp"},
	}}
	writer := newMockTargetWriter()
	controller := newTestController(t, source, writer)
	controller.Ledger.(*mockLedgerClient).Migrated["1000"] = true
	controller.Force = true

	summary, err := controller.MigrateAll(context.Background(), types.SourceDocTypeCustomer, types.TargetDocTypeCustomer)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestController_MigrateAll_WithoutLedger(t *testing.T) {
	source := &mockSourceReader{Records: []types.Record{
		{"id": "a1", "street1": "Main St 1", "city": "Berlin", "zipcode": "10115", "countryCode": "de"},
	}}
	writer := newMockTargetWriter()
	controller := NewController(source, newTestMigrations(t, writer), nil, nil, logrus.New())

	summary, err := controller.MigrateAll(context.Background(), types.SourceDocTypeCustomer, types.TargetDocTypeAddress)

	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, "a1", summary.Outcomes[0].SourceKey)
}

func TestController_MigrateAll_PaymentFailureKeepsInvoiceName(t *testing.T) {
	record := sampleInvoice()
	record["paymentStatus"] = "PAID"
	source := &mockSourceReader{Records: []types.Record{record}}
	writer := newMockTargetWriter()
	writer.CreateErrs[types.TargetDocTypePaymentEntry] = errors.New("no account")
	writer.OnCreate = func(docType types.TargetDocType, created types.Payload) types.Payload {
		created["grand_total"] = 357.0
		return created
	}
	ledgerClient := &mockLedgerClient{Migrated: map[string]bool{}}
	outcomeCsvClient := &mockOutcomeCsvClient{}
	controller := NewController(source, newInvoiceMigrations(t, writer), ledgerClient, outcomeCsvClient, logrus.New())

	summary, err := controller.MigrateAll(context.Background(), types.SourceDocTypeSalesInvoice, types.TargetDocTypeSalesInvoice)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, ledgerClient.Outcomes, 1)
	assert.Equal(t, types.OutcomeStatusFailed, ledgerClient.Outcomes[0].Status)
	assert.Equal(t, "RE-1001", ledgerClient.Outcomes[0].TargetName)
	assert.Contains(t, ledgerClient.Outcomes[0].ErrorMessage, "no account")
	require.NotNil(t, outcomeCsvClient.Summary)
	assert.Equal(t, "RE-1001", outcomeCsvClient.Summary.Outcomes[0].TargetName)
}

func TestController_MigrateAll_Cancelled(t *testing.T) {
	source := &mockSourceReader{Records: []types.Record{{"id": "a1"}}}
	writer := newMockTargetWriter()
	controller := newTestController(t, source, writer)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := controller.MigrateAll(ctx, types.SourceDocTypeCustomer, types.TargetDocTypeAddress)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, writer.Called)
	assert.NotNil(t, controller.Ledger.(*mockLedgerClient).Completed)
}

func TestRecordKey(t *testing.T) {
	assert.Equal(t, "C-1", recordKey(types.Record{"id": "1", "customerNumber": "C-1"}, types.TargetDocTypeCustomer))
	assert.Equal(t, "1", recordKey(types.Record{"id": "1", "customerNumber": "C-1"}, types.TargetDocTypeAddress))
	assert.Equal(t, "1001", recordKey(types.Record{"id": "1", "invoiceNumber": "1001"}, types.TargetDocTypeSalesInvoice))

	hashed := recordKey(types.Record{"street1": "x"}, types.TargetDocTypeAddress)
	assert.Len(t, hashed, 7)
	assert.Equal(t, hashed, recordKey(types.Record{"street1": "x"}, types.TargetDocTypeAddress))
}

type failingMigrator struct {
	Migrator
}

func (m *failingMigrator) Migrate(ctx context.Context) (types.Payload, error) {
	return nil, errors.New("failing migrator")
}
