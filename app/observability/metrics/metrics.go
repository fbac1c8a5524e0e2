package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	RegistrationsTotal      metric.Int64Counter
	LoginsTotal             metric.Int64Counter
	LoginFailuresTotal      metric.Int64Counter
	TokenRefreshesTotal     metric.Int64Counter
	TokenReuseDetectedTotal metric.Int64Counter
	DbQueryDurationSeconds  metric.Float64Histogram
	RequestDurationSeconds  metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// Get returns the process-wide metrics, creating them on first use from the
// globally configured MeterProvider. Before the provider is installed the
// instruments are no-ops, which keeps tests free of metrics setup.
func Get() *AppMetrics {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("product-catalog")
		m := &AppMetrics{}
		var err error

		m.RegistrationsTotal, err = meter.Int64Counter(
			"registrations_total",
			metric.WithDescription("Total number of completed registrations"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create registrations_total: %v", err)
		}

		m.LoginsTotal, err = meter.Int64Counter(
			"logins_total",
			metric.WithDescription("Total number of successful logins"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create logins_total: %v", err)
		}

		m.LoginFailuresTotal, err = meter.Int64Counter(
			"login_failures_total",
			metric.WithDescription("Total number of rejected login attempts"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_failures_total: %v", err)
		}

		m.TokenRefreshesTotal, err = meter.Int64Counter(
			"token_refreshes_total",
			metric.WithDescription("Total number of successful refresh-token rotations"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create token_refreshes_total: %v", err)
		}

		m.TokenReuseDetectedTotal, err = meter.Int64Counter(
			"token_reuse_detected_total",
			metric.WithDescription("Refresh attempts with a verified token missing from the store"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create token_reuse_detected_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.RequestDurationSeconds, err = meter.Float64Histogram(
			"request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create request_duration_seconds: %v", err)
		}

		appMetrics = m
	})
	return appMetrics
}
