package service

import "time"

// RefreshObserver receives pipeline events. Implementations must be safe for
// concurrent use since the module and achievement chains report in parallel.
type RefreshObserver interface {
	RefreshStarted(runID string, trigger Trigger)
	RefreshCoalesced(trigger Trigger)
	FetchStarted(runID, resource string)
	FetchFinished(runID, resource string, err error, elapsed time.Duration)
	ModulesCommitted(runID string, count int)
	FallbackTriggered(view string)
	RefreshFinished(runID string, trigger Trigger, elapsed time.Duration)
}

type NopObserver struct{}

func (NopObserver) RefreshStarted(string, Trigger) {}
func (NopObserver) RefreshCoalesced(Trigger) {}
func (NopObserver) FetchStarted(string, string) {}
func (NopObserver) FetchFinished(string, string, error, time.Duration) {}
func (NopObserver) ModulesCommitted(string, int) {}
func (NopObserver) FallbackTriggered(string) {}
func (NopObserver) RefreshFinished(string, Trigger, time.Duration) {}
