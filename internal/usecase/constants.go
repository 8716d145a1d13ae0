package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// ReferencePrefixJournal prefixes generated references on manual entries.
	ReferencePrefixJournal = "JE"

	// DefaultBreakdownLimit is how many accounts expense and revenue breakdowns return.
	DefaultBreakdownLimit = 10

	// AuditTrailLimit caps the audit trail report.
	AuditTrailLimit = 100

	// TopCustomersLimit caps the KPI customer ranking.
	TopCustomersLimit = 10

	// DefaultReportCurrency is used by FX revaluation when none is given.
	DefaultReportCurrency = "USD"
)
