package constants

// Outcome is the terminal label of one document worker run.
type Outcome string

// Stable values (these exact strings appear in stats and the journal).
const (
	OutcomeInvoice               Outcome = Outcome(Invoice)
	OutcomeContract              Outcome = Outcome(Contract)
	OutcomeMaintenanceReport     Outcome = Outcome(MaintenanceReport)
	OutcomeUnknown               Outcome = Outcome(Unknown)
	OutcomeSkipped               Outcome = "skipped"                // result file already present
	OutcomeSkippedDuplicate      Outcome = "skipped_duplicate"      // content hash already registered
	OutcomeQuarantined           Outcome = "quarantined"            // low classification confidence
	OutcomeQuarantinedUnreadable Outcome = "quarantined_unreadable" // no text and no images
	OutcomeError                 Outcome = "error"
)

// StatusSkippedUnknown is written to result metadata for documents classified as unknown.
const StatusSkippedUnknown = "skipped_unknown"

// ConfidenceThreshold is the minimum classification confidence that avoids quarantine.
const ConfidenceThreshold = 0.80

// AllOutcomes lists every known outcome in reporting order.
var AllOutcomes = []Outcome{
	OutcomeInvoice,
	OutcomeContract,
	OutcomeMaintenanceReport,
	OutcomeUnknown,
	OutcomeSkipped,
	OutcomeSkippedDuplicate,
	OutcomeQuarantined,
	OutcomeQuarantinedUnreadable,
	OutcomeError,
}

// IsKnownOutcome reports whether o is one of AllOutcomes.
func IsKnownOutcome(o Outcome) bool {
	for _, k := range AllOutcomes {
		if k == o {
			return true
		}
	}
	return false
}
