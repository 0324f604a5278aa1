package types

import "time"

type OutcomeStatus string

const (
	OutcomeStatusSuccess OutcomeStatus = "success"
	OutcomeStatusFailed  OutcomeStatus = "failed"
	OutcomeStatusInvalid OutcomeStatus = "invalid"
	OutcomeStatusSkipped OutcomeStatus = "skipped"
)

func (status OutcomeStatus) IsValidOutcomeStatus() bool {
	switch status {
	case OutcomeStatusSuccess,
		OutcomeStatusFailed,
		OutcomeStatusInvalid,
		OutcomeStatusSkipped:
		return true
	default:
		return false
	}
}

// RecordOutcome is the result of migrating one source record.
type RecordOutcome struct {
	RunID         string
	SourceDocType SourceDocType
	TargetDocType TargetDocType
	SourceKey     string
	TargetName    string
	Status        OutcomeStatus
	ErrorMessage  string
	CreatedAt     time.Time
}

type RunSummary struct {
	RunID         string
	SourceDocType SourceDocType
	TargetDocType TargetDocType
	Total         int
	Succeeded     int
	Failed        int
	Invalid       int
	Skipped       int
	Outcomes      []RecordOutcome
}

func (summary *RunSummary) Add(outcome RecordOutcome) {
	summary.Total++
	switch outcome.Status {
	case OutcomeStatusSuccess:
		summary.Succeeded++
	case OutcomeStatusFailed:
		summary.Failed++
	case OutcomeStatusInvalid:
		summary.Invalid++
	case OutcomeStatusSkipped:
		summary.Skipped++
	}
	summary.Outcomes = append(summary.Outcomes, outcome)
}
