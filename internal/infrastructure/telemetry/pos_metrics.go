package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	apppos "github.com/rkbridge/backend/internal/application/pos"
	"github.com/rkbridge/backend/internal/domain/pos"
	"github.com/rkbridge/backend/internal/infrastructure/rkeeper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the POS instruments
const MeterName = "github.com/rkbridge/backend/pos"

// Attribute keys shared by the POS instruments
var (
	AttrCommand = attribute.Key("rkeeper.command")
	AttrResult  = attribute.Key("result")
	AttrEvent   = attribute.Key("event")
	AttrStation = attribute.Key("station")
	AttrChange  = attribute.Key("change")
	AttrOutcome = attribute.Key("outcome")
)

// POSMetrics records POS round trips and integration outcomes.
type POSMetrics struct {
	callDuration   metric.Float64Histogram
	calls          metric.Int64Counter
	sequenceEvents metric.Int64Counter
	stationSyncs   metric.Int64Counter
	menuChanges    metric.Int64Counter
	submissions    metric.Int64Counter
}

// NewPOSMetrics creates the instruments on meter
func NewPOSMetrics(meter metric.Meter) (*POSMetrics, error) {
	m := &POSMetrics{}
	var err error

	if m.callDuration, err = meter.Float64Histogram("rkeeper.call.duration",
		metric.WithDescription("Duration of XML interface round trips"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(POSCallDurationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create rkeeper.call.duration: %w", err)
	}
	if m.calls, err = meter.Int64Counter("rkeeper.calls",
		metric.WithDescription("XML interface calls by command and result"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rkeeper.calls: %w", err)
	}
	if m.sequenceEvents, err = meter.Int64Counter("pos.license.sequence.events",
		metric.WithDescription("License sequence transitions"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create pos.license.sequence.events: %w", err)
	}
	if m.stationSyncs, err = meter.Int64Counter("pos.menu.station_syncs",
		metric.WithDescription("Per-station menu sync runs"),
		metric.WithUnit("{sync}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create pos.menu.station_syncs: %w", err)
	}
	if m.menuChanges, err = meter.Int64Counter("pos.menu.items.changed",
		metric.WithDescription("Menu items created, updated or removed by sync"),
		metric.WithUnit("{item}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create pos.menu.items.changed: %w", err)
	}
	if m.submissions, err = meter.Int64Counter("pos.order.submissions",
		metric.WithDescription("Order submissions by outcome"),
		metric.WithUnit("{order}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create pos.order.submissions: %w", err)
	}

	return m, nil
}

// ObservePOSCall implements rkeeper.CallObserver
func (m *POSMetrics) ObservePOSCall(ctx context.Context, command string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(AttrCommand.String(command), AttrResult.String(callResult(err)))
	m.callDuration.Record(ctx, duration.Seconds(), attrs)
	m.calls.Add(ctx, 1, attrs)
}

func callResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, pos.ErrTransport):
		return "transport_error"
	case errors.Is(err, pos.ErrProtocolStatus):
		return "protocol_error"
	case errors.Is(err, pos.ErrParse):
		return "parse_error"
	default:
		return "error"
	}
}

// RecordSequenceEvent implements apppos.Metrics
func (m *POSMetrics) RecordSequenceEvent(ctx context.Context, event string) {
	m.sequenceEvents.Add(ctx, 1, metric.WithAttributes(AttrEvent.String(event)))
}

// RecordStationSync implements apppos.Metrics
func (m *POSMetrics) RecordStationSync(ctx context.Context, station string, ok bool, created, updated, removed int) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.stationSyncs.Add(ctx, 1, metric.WithAttributes(AttrStation.String(station), AttrResult.String(result)))

	for change, n := range map[string]int{"created": created, "updated": updated, "removed": removed} {
		if n > 0 {
			m.menuChanges.Add(ctx, int64(n), metric.WithAttributes(AttrStation.String(station), AttrChange.String(change)))
		}
	}
}

// RecordSubmission implements apppos.Metrics
func (m *POSMetrics) RecordSubmission(ctx context.Context, outcome apppos.SubmitOutcome) {
	m.submissions.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(outcome.String())))
}

var (
	_ rkeeper.CallObserver = (*POSMetrics)(nil)
	_ apppos.Metrics       = (*POSMetrics)(nil)
)
