// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Wallet-side metrics
	AccountsScanned    *prometheus.CounterVec
	TransactionsTotal  *prometheus.CounterVec
	FeeLamportsTotal   *prometheus.CounterVec
	TransactionLatency *prometheus.HistogramVec

	// Ledger metrics
	LedgerAwards *prometheus.CounterVec

	// Leaderboard metrics
	PointsAwarded   *prometheus.CounterVec
	ReferralBonuses prometheus.Counter

	// Metadata metrics
	MetadataLookups *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "rugal_dominion"
	}

	return &Metrics{
		AccountsScanned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "accounts_scanned_total",
			Help:      "Token accounts seen by scans, by class",
		}, []string{"class"}),
		TransactionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "transactions_total",
			Help:      "Cleanup transactions by action and outcome",
		}, []string{"action", "status"}),
		FeeLamportsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "fee_lamports_total",
			Help:      "Platform fee lamports charged in confirmed transactions",
		}, []string{"action"}),
		TransactionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "transaction_seconds",
			Help:      "Time from build to confirmation",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}, []string{"action"}),

		LedgerAwards: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "awards_total",
			Help:      "Points awards by sink and outcome",
		}, []string{"sink", "status"}),

		PointsAwarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "points_awarded_total",
			Help:      "Points awarded by action",
		}, []string{"action"}),
		ReferralBonuses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "referral_bonuses_total",
			Help:      "Referral bonuses credited to referrers",
		}),

		MetadataLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "lookups_total",
			Help:      "Metadata resolutions by source",
		}, []string{"source"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "latency",
			Name:      "rpc_call_seconds",
			Help:      "RPC call latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordScan records the classes of scanned accounts.
func RecordScan(empty, nfts, fungible, compressed int) {
	DefaultMetrics.AccountsScanned.WithLabelValues("empty").Add(float64(empty))
	DefaultMetrics.AccountsScanned.WithLabelValues("nft").Add(float64(nfts))
	DefaultMetrics.AccountsScanned.WithLabelValues("fungible").Add(float64(fungible))
	DefaultMetrics.AccountsScanned.WithLabelValues("compressed").Add(float64(compressed))
}

// RecordTransaction records a submitted transaction outcome.
func RecordTransaction(action, status string, feeLamports uint64, seconds float64) {
	DefaultMetrics.TransactionsTotal.WithLabelValues(action, status).Inc()
	DefaultMetrics.TransactionLatency.WithLabelValues(action).Observe(seconds)
	if status == "confirmed" && feeLamports > 0 {
		DefaultMetrics.FeeLamportsTotal.WithLabelValues(action).Add(float64(feeLamports))
	}
}

// RecordLedgerAward records a points award delivery attempt.
func RecordLedgerAward(sink string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.LedgerAwards.WithLabelValues(sink, status).Inc()
}

// RecordPointsAwarded records points credited to a wallet.
func RecordPointsAwarded(action string, points int64, referralBonus bool) {
	DefaultMetrics.PointsAwarded.WithLabelValues(action).Add(float64(points))
	if referralBonus {
		DefaultMetrics.ReferralBonuses.Inc()
	}
}

// RecordMetadataLookup records which source resolved a mint.
func RecordMetadataLookup(source string) {
	DefaultMetrics.MetadataLookups.WithLabelValues(source).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(route string, code int) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, httpCode(code)).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

func httpCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
