package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Journal metrics
	JournalEntriesCreated  prometheus.Counter
	JournalEntriesPosted   prometheus.Counter
	JournalEntriesReversed prometheus.Counter
	JournalEntriesRejected *prometheus.CounterVec
	JournalEntryAmount     prometheus.Histogram

	// Account metrics
	AccountsCreated   prometheus.Counter
	AccountOperations *prometheus.CounterVec

	// Report metrics
	ReportDuration    *prometheus.HistogramVec
	ReportImbalances  *prometheus.CounterVec
	ReportCacheHits   prometheus.Counter
	ReportCacheMisses prometheus.Counter

	// Reconciliation metrics
	AutoMatchRuns    prometheus.Counter
	AutoMatchMatches prometheus.Counter
	AutoMatchSkipped prometheus.Counter

	// Commerce posting metrics
	CommerceEvents *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBConnections prometheus.Gauge

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec

	// Authentication metrics
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Audit metrics
	AuditLogsCreated *prometheus.CounterVec

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter
}

// New creates all metrics on the default Prometheus registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		// Journal metrics
		JournalEntriesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "gobooks_journal_entries_created_total",
			Help: "Total number of journal entries created",
		}),
		JournalEntriesPosted: f.NewCounter(prometheus.CounterOpts{
			Name: "gobooks_journal_entries_posted_total",
			Help: "Total number of journal entries posted",
		}),
		JournalEntriesReversed: f.NewCounter(prometheus.CounterOpts{
			Name: "gobooks_journal_entries_reversed_total",
			Help: "Total number of journal entries reversed",
		}),
		JournalEntriesRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gobooks_journal_entries_rejected_total",
				Help: "Total number of rejected journal entries by reason",
			},
			[]string{"reason"},
		),
		JournalEntryAmount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gobooks_journal_entry_amount",
			Help:    "Total debit of created journal entries",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),

		// Account metrics
		AccountsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "gobooks_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		AccountOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gobooks_account_operations_total",
				Help: "Total account operations by type",
			},
			[]string{"operation"},
		),

		// Report metrics
		ReportDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gobooks_report_duration_seconds",
				Help:    "Duration of report generation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"report"},
		),
		ReportImbalances: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gobooks_report_imbalances_total",
				Help: "Reports that surfaced a non-zero integrity difference",
			},
			[]string{"report"},
		),
		ReportCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "gobooks_report_cache_hits_total",
			Help: "Report cache hits",
		}),
		ReportCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "gobooks_report_cache_misses_total",
			Help: "Report cache misses",
		}),

		// Reconciliation metrics
		AutoMatchRuns: f.NewCounter(prometheus.CounterOpts{
			Name: "gobooks_auto_match_runs_total",
			Help: "Total auto-match runs",
		}),
		AutoMatchMatches: f.NewCounter(prometheus.CounterOpts{
			Name: "gobooks_auto_match_matches_total",
			Help: "Matches created by auto-match",
		}),
		AutoMatchSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "gobooks_auto_match_skipped_total",
			Help: "Candidate pairings skipped for lack of a cash account",
		}),

		// Commerce posting metrics
		CommerceEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gobooks_commerce_events_total",
				Help: "Commerce events processed by type and outcome",
			},
			[]string{"event", "outcome"},
		),

		// API metrics
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gobooks_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gobooks_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Database metrics
		DBConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "gobooks_db_connections",
			Help: "Current number of database connections",
		}),

		// Redis metrics
		RedisOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gobooks_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gobooks_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		// Authentication metrics
		AuthFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gobooks_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		// Rate limiting metrics
		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gobooks_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"limiter"},
		),

		// Audit metrics
		AuditLogsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gobooks_audit_logs_total",
				Help: "Total audit logs created",
			},
			[]string{"action", "status"},
		),

		// Outbox metrics
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "gobooks_outbox_published_total",
			Help: "Outbox events published",
		}),
		OutboxFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "gobooks_outbox_failures_total",
			Help: "Outbox events that failed to publish",
		}),
	}
}
