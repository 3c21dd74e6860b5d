package metrics

import (
	"time"
)

// Completion outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeFailed    = "failed"
	OutcomeStale     = "stale"
)

func RecordDispatch(mode, trigger string) {
	DispatchesTotal.WithLabelValues(mode, trigger).Inc()
}

func RecordCompletion(outcome string) {
	CompletionsTotal.WithLabelValues(outcome).Inc()
}

func RecordFetchDuration(mode string, d time.Duration) {
	FetchDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func RecordValidationError(reason string) {
	ValidationErrorsTotal.WithLabelValues(reason).Inc()
}

// RecordProviderRequest records one provider call. code is "ok" or the
// provider error code.
func RecordProviderRequest(endpoint, code string, duration time.Duration) {
	ProviderRequestsTotal.WithLabelValues(endpoint, code).Inc()
	ProviderRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func RecordArticlesReceived(source string, count int) {
	if count <= 0 {
		return
	}
	ArticlesReceivedTotal.WithLabelValues(source).Add(float64(count))
}

func RecordBreakerState(name string, state int) {
	BreakerState.WithLabelValues(name).Set(float64(state))
}
