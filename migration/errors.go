package migration

import (
	"fmt"

	"github.com/ledgerlift/erp-migrator/types"
)

// ConfigurationError aborts a run whose target doc type has no migrator.
type ConfigurationError struct {
	SourceDocType types.SourceDocType
	TargetDocType types.TargetDocType
}

func (err *ConfigurationError) Error() string {
	return fmt.Sprintf("no migration configured for %s -> %s", err.SourceDocType, err.TargetDocType)
}

// DuplicateResolutionError is returned when no free bank name was found
// within the probe limit.
type DuplicateResolutionError struct {
	Name   string
	Probes int
}

func (err *DuplicateResolutionError) Error() string {
	return fmt.Sprintf("no free name for bank %q after %d attempts", err.Name, err.Probes)
}

// IntegrityMismatchError reports a created invoice whose total differs from
// the source gross amount. The invoice is kept.
type IntegrityMismatchError struct {
	Invoice     string
	TargetTotal float64
	SourceTotal float64
}

func (err *IntegrityMismatchError) Error() string {
	return fmt.Sprintf("gross amount of invoice %s is not correct (target: %.2f, source: %.2f)", err.Invoice, err.TargetTotal, err.SourceTotal)
}
