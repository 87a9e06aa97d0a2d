package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Global logger instance
	Logger *zap.Logger

	// Metrics
	enforcementActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enforcement_actions_total",
			Help: "Total number of enforcement actions issued",
		},
		[]string{"action"},
	)

	warningsIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warnings_issued_total",
			Help: "Total number of warnings recorded",
		},
	)

	policyEvalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "policy_evaluation_duration_seconds",
			Help:    "Time spent evaluating the moderation cascade",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
)

func Init(ctx context.Context) error {
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(enforcementActionsTotal)
	prometheus.MustRegister(warningsIssuedTotal)
	prometheus.MustRegister(policyEvalDuration)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	server := &http.Server{Addr: ":2112", Handler: promhttp.Handler()}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		_ = server.Close()
		_ = tp.Shutdown(context.Background())
	}()

	return nil
}

// RecordEnforcementAction counts a single issued gateway action.
func RecordEnforcementAction(action string) {
	enforcementActionsTotal.WithLabelValues(action).Inc()
}

// RecordWarningIssued counts a recorded warning.
func RecordWarningIssued() {
	warningsIssuedTotal.Inc()
}

// StartPolicyEvaluation returns a function to record cascade duration
// under its terminal outcome.
func StartPolicyEvaluation() func(outcome string) {
	start := time.Now()
	return func(outcome string) {
		policyEvalDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
}
