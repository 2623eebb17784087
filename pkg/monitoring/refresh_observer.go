package monitoring

import (
	"errors"
	"mindora_hub/internal/service"
	"time"

	"go.uber.org/zap"
)

const (
	OutcomeSuccess      = "success"
	OutcomeNetworkError = "network_error"
	OutcomePayloadError = "payload_error"
)

// RefreshObserver records pipeline events as metrics and log lines.
type RefreshObserver struct {
	log *zap.Logger
}

var _ service.RefreshObserver = (*RefreshObserver)(nil)

func NewRefreshObserver(log *zap.Logger) *RefreshObserver {
	if log == nil {
		log = zap.NewNop()
	}
	return &RefreshObserver{log: log.Named("refresh")}
}

func (o *RefreshObserver) RefreshStarted(runID string, trigger service.Trigger) {
	RefreshRuns.WithLabelValues(string(trigger)).Inc()
	o.log.Info("refresh started", zap.String("run_id", runID), zap.String("trigger", string(trigger)))
}

func (o *RefreshObserver) RefreshCoalesced(trigger service.Trigger) {
	RefreshCoalesced.Inc()
	o.log.Debug("refresh coalesced into pending run", zap.String("trigger", string(trigger)))
}

func (o *RefreshObserver) FetchStarted(runID, resource string) {
	o.log.Debug("fetch started", zap.String("run_id", runID), zap.String("resource", resource))
}

func (o *RefreshObserver) FetchFinished(runID, resource string, err error, elapsed time.Duration) {
	outcome := FetchOutcome(err)
	FetchCounter.WithLabelValues(resource, outcome).Inc()
	FetchDuration.WithLabelValues(resource).Observe(elapsed.Seconds())

	fields := []zap.Field{
		zap.String("run_id", runID),
		zap.String("resource", resource),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		o.log.Warn("fetch failed", append(fields, zap.String("outcome", outcome), zap.Error(err))...)
		return
	}
	o.log.Debug("fetch finished", fields...)
}

func (o *RefreshObserver) ModulesCommitted(runID string, count int) {
	StoreModules.Set(float64(count))
	if count == 0 {
		o.log.Warn("modules committed", zap.String("run_id", runID), zap.Error(service.ErrEmptyResult))
		return
	}
	o.log.Info("modules committed", zap.String("run_id", runID), zap.Int("count", count))
}

func (o *RefreshObserver) FallbackTriggered(view string) {
	FallbackCounter.WithLabelValues(view).Inc()
	o.log.Debug("serving default collection", zap.String("view", view))
}

func (o *RefreshObserver) RefreshFinished(runID string, trigger service.Trigger, elapsed time.Duration) {
	RefreshDuration.Observe(elapsed.Seconds())
	o.log.Info("refresh finished",
		zap.String("run_id", runID),
		zap.String("trigger", string(trigger)),
		zap.Duration("elapsed", elapsed),
	)
}

// FetchOutcome maps a fetch error to its metric label.
func FetchOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, service.ErrNetwork):
		return OutcomeNetworkError
	default:
		return OutcomePayloadError
	}
}
