// Package migration converts source records into target documents and
// writes them through the target client, one record at a time.
package migration

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ledgerlift/erp-migrator/client"
	"github.com/ledgerlift/erp-migrator/config"
	"github.com/ledgerlift/erp-migrator/types"
)

// Migrator validates, transforms and writes a single source record.
// Validate and Transform never call the target.
type Migrator interface {
	DocType() types.TargetDocType
	Validate() bool
	Transform() types.Payload
	Migrate(ctx context.Context) (types.Payload, error)
	IsPrimary() bool
}

// Factory builds the migrator for a record. parent is the owning source
// record for nested entities and nil otherwise.
type Factory func(record types.Record, parent types.Record) Migrator

// Migrations carries the shared dependencies of every migrator.
type Migrations struct {
	Writer client.ITargetWriter
	Config *config.Config
	Now    func() time.Time
	Logger *logrus.Logger
}

func NewMigrations(writer client.ITargetWriter, cfg *config.Config, logger *logrus.Logger) *Migrations {
	return &Migrations{
		Writer: writer,
		Config: cfg,
		Now:    time.Now,
		Logger: logger,
	}
}

// Factories returns the migrators the controller can run on their own.
func (migrations *Migrations) Factories() map[types.TargetDocType]Factory {
	return map[types.TargetDocType]Factory{
		types.TargetDocTypeCustomer: func(record types.Record, parent types.Record) Migrator {
			return migrations.NewCustomer(record)
		},
		types.TargetDocTypeAddress: func(record types.Record, parent types.Record) Migrator {
			return migrations.NewAddress(record, parent, -1)
		},
		types.TargetDocTypeContact: func(record types.Record, parent types.Record) Migrator {
			return migrations.NewContact(record, parent, -1)
		},
		types.TargetDocTypeBank: func(record types.Record, parent types.Record) Migrator {
			return migrations.NewBank(record)
		},
		types.TargetDocTypeSalesInvoice: func(record types.Record, parent types.Record) Migrator {
			return migrations.NewInvoice(record)
		},
	}
}

type base struct {
	record    types.Record
	parent    types.Record
	isPrimary bool

	writer client.ITargetWriter
	config *config.Config
	logger *logrus.Logger
}

func (migrations *Migrations) newBase(record types.Record, parent types.Record, isPrimary bool) base {
	return base{
		record:    record,
		parent:    parent,
		isPrimary: isPrimary,
		writer:    migrations.Writer,
		config:    migrations.Config,
		logger:    migrations.Logger,
	}
}

func (b *base) IsPrimary() bool {
	return b.isPrimary
}

func hasAll(record types.Record, keys ...string) bool {
	for _, key := range keys {
		if strings.TrimSpace(record.String(key)) == "" {
			return false
		}
	}
	return true
}
