package pos

import "context"

// Sequence events recorded by the license coordinator
const (
	SequenceEventInitialized  = "initialized"
	SequenceEventAdvanced     = "advanced"
	SequenceEventInstanceLost = "instance_reset"
	SequenceEventResynced     = "resynced"
	SequenceEventResyncFailed = "resync_failed"
	SequenceEventSoftSuccess  = "soft_success"
	SequenceEventExhausted    = "exhausted"
)

// Metrics receives integration outcomes. The telemetry package provides the
// OpenTelemetry implementation.
type Metrics interface {
	RecordSequenceEvent(ctx context.Context, event string)
	RecordStationSync(ctx context.Context, station string, ok bool, created, updated, removed int)
	RecordSubmission(ctx context.Context, outcome SubmitOutcome)
}

type noopMetrics struct{}

func (noopMetrics) RecordSequenceEvent(context.Context, string) {}

func (noopMetrics) RecordStationSync(context.Context, string, bool, int, int, int) {}

func (noopMetrics) RecordSubmission(context.Context, SubmitOutcome) {}
