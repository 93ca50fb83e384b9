// Package metrics provides Prometheus instrumentation for the consent
// vault server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	// Consent tokens issued.
	TokensIssued prometheus.Counter

	// Token verification outcomes by result ("ok", "expired", "revoked", ...).
	TokenVerifications *prometheus.CounterVec

	// Vault operations by op ("store", "retrieve", ...) and result.
	VaultOperations *prometheus.CounterVec

	// Records removed by expiry sweeps.
	RecordsSwept prometheus.Counter
}

// New creates and registers all server metrics with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		TokensIssued: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "consentvault_tokens_issued_total",
			Help: "Total number of consent tokens issued",
		}),

		TokenVerifications: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "consentvault_token_verifications_total",
			Help: "Total token verification attempts by result",
		}, []string{"result"}),

		VaultOperations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "consentvault_vault_operations_total",
			Help: "Total vault operations by operation and result",
		}, []string{"op", "result"}),

		RecordsSwept: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "consentvault_records_swept_total",
			Help: "Total expired records removed by sweeps",
		}),
	}
}

// IncrementTokensIssued records an issued token.
func (m *Metrics) IncrementTokensIssued() {
	if m != nil {
		m.TokensIssued.Inc()
	}
}

// IncrementTokenVerification records a verification attempt outcome.
func (m *Metrics) IncrementTokenVerification(result string) {
	if m != nil {
		m.TokenVerifications.WithLabelValues(result).Inc()
	}
}

// IncrementVaultOperation records a vault operation outcome.
func (m *Metrics) IncrementVaultOperation(op, result string) {
	if m != nil {
		m.VaultOperations.WithLabelValues(op, result).Inc()
	}
}

// AddRecordsSwept records records removed by an expiry sweep.
func (m *Metrics) AddRecordsSwept(n int) {
	if m != nil && n > 0 {
		m.RecordsSwept.Add(float64(n))
	}
}
