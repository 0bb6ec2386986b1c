package rkeeper

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rkbridge/backend/internal/domain/pos"
)

const tracerName = "github.com/rkbridge/backend/internal/infrastructure/rkeeper"

// CallObserver receives the outcome of every POS call
type CallObserver interface {
	ObservePOSCall(ctx context.Context, command string, duration time.Duration, err error)
}

// Client implements pos.Gateway over the R-Keeper 7 XML interface
type Client struct {
	config    *Config
	transport *Transport
	logger    *zap.Logger
	tracer    trace.Tracer
	observer  CallObserver
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithCallObserver records call metrics
func WithCallObserver(o CallObserver) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// WithTracer overrides the global tracer
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) {
		c.tracer = t
	}
}

// NewClient creates a new R-Keeper client with the given configuration
func NewClient(config *Config, logger *zap.Logger, opts ...ClientOption) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport, err := NewTransport(config, logger)
	if err != nil {
		return nil, err
	}
	c := &Client{
		config:    config,
		transport: transport,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the client configuration
func (c *Client) Config() *Config {
	return c.config
}

// FetchDishReference loads the active dish reference table
func (c *Client) FetchDishReference(ctx context.Context) (map[string]pos.DishReference, error) {
	payload, err := BuildDishReferenceQuery()
	if err != nil {
		return nil, err
	}
	var refs map[string]pos.DishReference
	err = c.call(ctx, CmdGetRefData, payload, c.config.ReadTimeout, func(body []byte) error {
		var perr error
		refs, perr = ParseDishReferenceResponse(body)
		return perr
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("Fetched dish reference table", zap.Int("items", len(refs)))
	return refs, nil
}

// FetchStationMenu loads the live order menu of a station
func (c *Client) FetchStationMenu(ctx context.Context, stationCode int) ([]pos.SnapshotItem, error) {
	payload, err := BuildStationMenuQuery(stationCode)
	if err != nil {
		return nil, err
	}
	var menu StationMenu
	err = c.call(ctx, CmdGetOrderMenu, payload, c.config.ReadTimeout, func(body []byte) error {
		var perr error
		menu, perr = ParseStationMenuResponse(body)
		return perr
	}, attribute.Int("rkeeper.station_code", stationCode))
	if err != nil {
		return nil, err
	}
	return menu.Items, nil
}

// CreateOrder opens an order and returns its POS GUID. Once sent, the call
// is not abandoned when ctx is cancelled.
func (c *Client) CreateOrder(ctx context.Context, cmd pos.CreateOrderCommand) (string, error) {
	payload, err := BuildCreateOrderQuery(cmd)
	if err != nil {
		return "", err
	}
	var result CreateOrderResult
	err = c.call(context.WithoutCancel(ctx), CmdCreateOrder, payload, c.config.WriteTimeout, func(body []byte) error {
		var perr error
		result, perr = ParseCreateOrderResponse(body)
		return perr
	}, attribute.Int("rkeeper.station_code", cmd.StationCode))
	if err != nil {
		return "", err
	}
	if !result.IsOK() {
		text := result.ErrorText
		if text == "" {
			text = "unknown error"
		}
		return "", &pos.ProtocolStatusError{
			Command: CmdCreateOrder,
			Status:  result.Status,
			Code:    result.ErrorCode,
			Text:    text,
		}
	}
	if result.OrderGUID == "" {
		return "", pos.ErrMissingOrderGUID
	}
	return result.OrderGUID, nil
}

// SaveOrder adds dishes to an order. Non-Ok statuses are returned in the
// result for the caller to triage.
func (c *Client) SaveOrder(ctx context.Context, cmd pos.SaveOrderCommand) (pos.SaveOrderResult, error) {
	payload, err := BuildSaveOrderQuery(cmd)
	if err != nil {
		return pos.SaveOrderResult{}, err
	}
	attrs := []attribute.KeyValue{
		attribute.Int("rkeeper.station_code", cmd.StationCode),
		attribute.Int("rkeeper.dishes", len(cmd.Dishes)),
	}
	if cmd.License != nil {
		attrs = append(attrs, attribute.Int64("rkeeper.seq_number", cmd.License.SeqNumber))
	}
	var result pos.SaveOrderResult
	err = c.call(context.WithoutCancel(ctx), CmdSaveOrder, payload, c.config.WriteTimeout, func(body []byte) error {
		var perr error
		result, perr = ParseSaveOrderResponse(body)
		return perr
	}, attrs...)
	if err != nil {
		return pos.SaveOrderResult{}, err
	}
	return result, nil
}

// GetLicenseSeqNumber asks the POS for the current sequence number
func (c *Client) GetLicenseSeqNumber(ctx context.Context, creds pos.LicenseCredentials) (int64, error) {
	payload, err := BuildGetLicenseSeqQuery(creds)
	if err != nil {
		return 0, err
	}
	var seq int64
	err = c.call(ctx, CmdGetLicenseSeqNum, payload, c.config.WriteTimeout, func(body []byte) error {
		var perr error
		seq, perr = ParseGetLicenseSeqResponse(body)
		return perr
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// call sends payload inside a span and hands the body to parse.
func (c *Client) call(ctx context.Context, command string, payload []byte, timeout time.Duration, parse func([]byte) error, attrs ...attribute.KeyValue) error {
	ctx, span := c.tracer.Start(ctx, "rkeeper."+command,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("rkeeper.command", command))...),
	)
	defer span.End()

	start := time.Now()
	err := c.roundTrip(ctx, payload, timeout, parse)
	duration := time.Since(start)

	if c.observer != nil {
		c.observer.ObservePOSCall(ctx, command, duration, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("R-Keeper call failed",
			zap.String("command", command),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return err
	}
	span.SetStatus(codes.Ok, "")
	c.logger.Debug("R-Keeper call completed",
		zap.String("command", command),
		zap.Duration("duration", duration),
	)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, payload []byte, timeout time.Duration, parse func([]byte) error) error {
	body, err := c.transport.Send(ctx, payload, timeout)
	if err != nil {
		return err
	}
	return parse(body)
}

// Ensure Client implements pos.Gateway
var _ pos.Gateway = (*Client)(nil)
