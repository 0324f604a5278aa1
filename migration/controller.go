package migration

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ledgerlift/erp-migrator/client"
	"github.com/ledgerlift/erp-migrator/config"
	"github.com/ledgerlift/erp-migrator/csv"
	"github.com/ledgerlift/erp-migrator/ledger"
	"github.com/ledgerlift/erp-migrator/types"
)

// Controller runs a migrator over a whole source collection. Ledger and
// OutcomeCsvClient are optional.
type Controller struct {
	Source           client.ISourceReader
	Factories        map[types.TargetDocType]Factory
	Ledger           ledger.ILedgerClient
	OutcomeCsvClient csv.IOutcomeCsvClient
	Config           *config.Config
	Force            bool
	Now              func() time.Time
	Logger           *logrus.Logger
}

func NewController(source client.ISourceReader, migrations *Migrations, ledgerClient ledger.ILedgerClient, outcomeCsvClient csv.IOutcomeCsvClient, logger *logrus.Logger) *Controller {
	return &Controller{
		Source:           source,
		Factories:        migrations.Factories(),
		Ledger:           ledgerClient,
		OutcomeCsvClient: outcomeCsvClient,
		Config:           migrations.Config,
		Now:              time.Now,
		Logger:           logger,
	}
}

// MigrateAll migrates every record of sourceDocType into targetDocType.
// Record failures are logged and counted; only a missing migrator, a failed
// fetch or a cancelled context end the run early.
func (controller *Controller) MigrateAll(ctx context.Context, sourceDocType types.SourceDocType, targetDocType types.TargetDocType) (types.RunSummary, error) {
	summary := types.RunSummary{SourceDocType: sourceDocType, TargetDocType: targetDocType}

	factory, ok := controller.Factories[targetDocType]
	if !ok {
		return summary, &ConfigurationError{SourceDocType: sourceDocType, TargetDocType: targetDocType}
	}

	records, err := controller.Source.GetAll(ctx, sourceDocType)
	if err != nil {
		return summary, fmt.Errorf("fetch %s: %w", sourceDocType, err)
	}
	controller.Logger.Infof("Migrating %d %s records to %s", len(records), sourceDocType, targetDocType)

	summary.RunID, err = controller.startRun(ctx, sourceDocType, targetDocType)
	if err != nil {
		return summary, err
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			controller.completeRun(ctx, summary)
			return summary, err
		}

		outcome := controller.migrateRecord(ctx, factory, record, sourceDocType, targetDocType)
		outcome.RunID = summary.RunID
		outcome.CreatedAt = controller.now()
		if controller.Ledger != nil {
			if err := controller.Ledger.RecordOutcome(ctx, outcome); err != nil {
				controller.Logger.Errorf("Could not record outcome of %s: %v", outcome.SourceKey, err)
			}
		}
		summary.Add(outcome)
	}

	controller.completeRun(ctx, summary)
	controller.Logger.Infof("Migrated %s to %s: %d succeeded, %d failed, %d invalid, %d skipped",
		sourceDocType, targetDocType, summary.Succeeded, summary.Failed, summary.Invalid, summary.Skipped)
	return summary, nil
}

func (controller *Controller) migrateRecord(ctx context.Context, factory Factory, record types.Record, sourceDocType types.SourceDocType, targetDocType types.TargetDocType) types.RecordOutcome {
	key := recordKey(record, targetDocType)
	outcome := types.RecordOutcome{
		SourceDocType: sourceDocType,
		TargetDocType: targetDocType,
		SourceKey:     key,
	}

	if controller.Config != nil && controller.Config.IsIgnored(key) {
		controller.Logger.Debugf("Ignoring %s %s", sourceDocType, key)
		outcome.Status = types.OutcomeStatusSkipped
		return outcome
	}
	if controller.isMigrated(ctx, targetDocType, key) {
		controller.Logger.Debugf("Skipping %s %s, already migrated", sourceDocType, key)
		outcome.Status = types.OutcomeStatusSkipped
		return outcome
	}

	migrator := factory(record, nil)
	if !migrator.Validate() {
		controller.Logger.Warnf("Skipping invalid %s %s", sourceDocType, key)
		outcome.Status = types.OutcomeStatusInvalid
		return outcome
	}

	created, err := migrator.Migrate(ctx)
	switch {
	case err != nil:
		controller.Logger.Errorf("Could not migrate %s %s: %v", sourceDocType, key, err)
		outcome.Status = types.OutcomeStatusFailed
		outcome.ErrorMessage = err.Error()
		if created != nil {
			outcome.TargetName = created.Name()
		}
	case created == nil:
		controller.Logger.Warnf("Nothing created for %s %s", sourceDocType, key)
		outcome.Status = types.OutcomeStatusInvalid
	default:
		controller.Logger.Infof("Created %s %s", targetDocType, created.Name())
		outcome.Status = types.OutcomeStatusSuccess
		outcome.TargetName = created.Name()
	}
	return outcome
}

func (controller *Controller) isMigrated(ctx context.Context, targetDocType types.TargetDocType, key string) bool {
	if controller.Force || controller.Ledger == nil {
		return false
	}
	migrated, err := controller.Ledger.IsMigrated(ctx, targetDocType, key)
	if err != nil {
		controller.Logger.Warnf("Could not check ledger for %s: %v", key, err)
		return false
	}
	return migrated
}

func (controller *Controller) startRun(ctx context.Context, sourceDocType types.SourceDocType, targetDocType types.TargetDocType) (string, error) {
	if controller.Ledger == nil {
		return uuid.NewString(), nil
	}
	runID, err := controller.Ledger.StartRun(ctx, sourceDocType, targetDocType)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return runID, nil
}

func (controller *Controller) completeRun(ctx context.Context, summary types.RunSummary) {
	if controller.Ledger != nil {
		if err := controller.Ledger.CompleteRun(context.WithoutCancel(ctx), summary); err != nil {
			controller.Logger.Errorf("Could not complete run %s: %v", summary.RunID, err)
		}
	}
	if controller.OutcomeCsvClient != nil && summary.Failed+summary.Invalid > 0 {
		if _, err := controller.OutcomeCsvClient.Export(summary); err != nil {
			controller.Logger.Errorf("Could not export outcomes of run %s: %v", summary.RunID, err)
		}
	}
}

func (controller *Controller) now() time.Time {
	if controller.Now == nil {
		return time.Now()
	}
	return controller.Now()
}

// recordKey identifies a record in logs, the ledger and ignore patterns.
// Records without a usable field are keyed by a hash of their content.
func recordKey(record types.Record, targetDocType types.TargetDocType) string {
	switch targetDocType {
	case types.TargetDocTypeCustomer:
		if customerNumber := record.String("customerNumber"); customerNumber != "" {
			return customerNumber
		}
	case types.TargetDocTypeSalesInvoice:
		if invoiceNumber := record.String("invoiceNumber"); invoiceNumber != "" {
			return invoiceNumber
		}
	}
	if id := record.String("id"); id != "" {
		return id
	}

	content, err := json.Marshal(record)
	if err != nil {
		content = []byte(fmt.Sprint(record))
	}
	return getIdentityHash(string(content))
}

func getIdentityHash(id string) string {
	sha256ID := sha256.Sum256([]byte(id))
	return fmt.Sprintf("%x", sha256ID)[0:7]
}
