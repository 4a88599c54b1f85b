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
	// Campaign metrics
	CampaignRunsTotal   *prometheus.CounterVec
	CampaignDuration    prometheus.Histogram
	VariantsEvaluated   *prometheus.CounterVec
	GuardrailFailures   *prometheus.CounterVec
	ChampionsPromoted   prometheus.Counter
	SignificanceRejects prometheus.Counter

	// Backtest metrics
	BacktestDuration *prometheus.HistogramVec
	TradesSimulated  prometheus.Counter
	BarsReplayed     prometheus.Counter
	RegimeSwaps      prometheus.Counter

	// Risk metrics
	RuinSimulations     prometheus.Counter
	RuinIndeterminate   prometheus.Counter
	SensitivityCells    prometheus.Counter
	RecalibrationEvents *prometheus.CounterVec
	DriftAlerts         *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec

	// Health metrics
	LastSuccessfulCampaign prometheus.Gauge
	ReportsGenerated       prometheus.Counter
	UptimeSeconds          prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "campaign_lab"
	}

	return &Metrics{
		// Campaign metrics
		CampaignRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "runs_total",
			Help:      "Total number of campaign runs by status",
		}, []string{"status"}),
		CampaignDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "duration_seconds",
			Help:      "Campaign execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		VariantsEvaluated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "variants_evaluated_total",
			Help:      "Total number of parameter variants evaluated by final state",
		}, []string{"state"}),
		GuardrailFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "guardrail_failures_total",
			Help:      "Total number of guardrail check failures by check name",
		}, []string{"check"}),
		ChampionsPromoted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "champions_promoted_total",
			Help:      "Total number of champion promotions",
		}),
		SignificanceRejects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "significance_rejects_total",
			Help:      "Total number of candidates rejected at the significance gate",
		}),

		// Backtest metrics
		BacktestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest run duration in seconds by stage",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated",
		}),
		BarsReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "bars_replayed_total",
			Help:      "Total number of price bars replayed",
		}),
		RegimeSwaps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "regime_swaps_total",
			Help:      "Total number of confirmed regime playbook swaps",
		}),

		// Risk metrics
		RuinSimulations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "ruin_simulations_total",
			Help:      "Total number of ruin simulations executed",
		}),
		RuinIndeterminate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "ruin_indeterminate_total",
			Help:      "Total number of ruin simulations with no trades to resample",
		}),
		SensitivityCells: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "sensitivity_cells_total",
			Help:      "Total number of sensitivity grid cells evaluated",
		}),
		RecalibrationEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "recalibration_events_total",
			Help:      "Total number of recalibration events by lifecycle step",
		}, []string{"step"}),
		DriftAlerts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "drift_alerts_total",
			Help:      "Total number of performance drift detections by metric",
		}, []string{"metric"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		DBConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Number of database connections by state",
		}, []string{"database", "state"}),

		// Health metrics
		LastSuccessfulCampaign: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_campaign_timestamp",
			Help:      "Unix timestamp of last successful campaign run",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCampaignRun records a completed campaign run.
func RecordCampaignRun(status string, durationSeconds float64) {
	DefaultMetrics.CampaignRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CampaignDuration.Observe(durationSeconds)
}

// RecordVariantState increments the variant counter for a final state.
func RecordVariantState(state string) {
	DefaultMetrics.VariantsEvaluated.WithLabelValues(state).Inc()
}

// RecordGuardrailFailure records a failed guardrail check.
func RecordGuardrailFailure(check string) {
	DefaultMetrics.GuardrailFailures.WithLabelValues(check).Inc()
}

// RecordPromotion increments the champion promotion counter.
func RecordPromotion() {
	DefaultMetrics.ChampionsPromoted.Inc()
}

// RecordBacktest records one backtest run: its stage, duration, and the
// trades and bars it produced.
func RecordBacktest(stage string, durationSeconds float64, trades, bars int) {
	DefaultMetrics.BacktestDuration.WithLabelValues(stage).Observe(durationSeconds)
	DefaultMetrics.TradesSimulated.Add(float64(trades))
	DefaultMetrics.BarsReplayed.Add(float64(bars))
}

// RecordRuinSimulation records one ruin simulation outcome.
func RecordRuinSimulation(indeterminate bool) {
	DefaultMetrics.RuinSimulations.Inc()
	if indeterminate {
		DefaultMetrics.RuinIndeterminate.Inc()
	}
}

// RecordRecalibrationEvent records a lifecycle step: "triggered",
// "consumed", or "duplicate".
func RecordRecalibrationEvent(step string) {
	DefaultMetrics.RecalibrationEvents.WithLabelValues(step).Inc()
}

// RecordDriftAlert records a performance drift detection for a metric.
func RecordDriftAlert(metric string) {
	DefaultMetrics.DriftAlerts.WithLabelValues(metric).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
