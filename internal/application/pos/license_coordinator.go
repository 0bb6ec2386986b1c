package pos

import (
	"context"
	"fmt"
	"strings"

	"github.com/rkbridge/backend/internal/domain/pos"
	"go.uber.org/zap"
)

// DefaultSaveAttempts is the retry budget of one licensed save
const DefaultSaveAttempts = 3

// LicenseGateway is the subset of the POS gateway used for licensed writes
type LicenseGateway interface {
	SaveOrder(ctx context.Context, cmd pos.SaveOrderCommand) (pos.SaveOrderResult, error)
	GetLicenseSeqNumber(ctx context.Context, creds pos.LicenseCredentials) (int64, error)
}

// LicenseStatus is the operator view of a license instance
type LicenseStatus struct {
	InstanceGUID string
	CacheKey     string
	// Cached is nil when the cache holds no value
	Cached *int64
	// Server is nil when the query failed; ServerErr then holds the reason
	Server    *int64
	ServerErr error
}

// InSync reports whether cache and server agree
func (s LicenseStatus) InSync() bool {
	return s.Cached != nil && s.Server != nil && *s.Cached == *s.Server
}

// LicenseSequenceCoordinator drives SaveOrder through the license sequence
// protocol. The cached counter is the only state shared between concurrent
// submissions; it is advanced with the store's atomic increment.
type LicenseSequenceCoordinator struct {
	gateway     LicenseGateway
	store       pos.LicenseSequenceStore
	creds       pos.LicenseCredentials
	maxAttempts int
	metrics     Metrics
	logger      *zap.Logger
}

// CoordinatorOption configures the coordinator
type CoordinatorOption func(*LicenseSequenceCoordinator)

// WithMaxAttempts overrides the save retry budget
func WithMaxAttempts(n int) CoordinatorOption {
	return func(c *LicenseSequenceCoordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithCoordinatorMetrics sets the metrics sink
func WithCoordinatorMetrics(m Metrics) CoordinatorOption {
	return func(c *LicenseSequenceCoordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewLicenseSequenceCoordinator creates a coordinator for one license instance
func NewLicenseSequenceCoordinator(
	gateway LicenseGateway,
	store pos.LicenseSequenceStore,
	creds pos.LicenseCredentials,
	logger *zap.Logger,
	opts ...CoordinatorOption,
) *LicenseSequenceCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &LicenseSequenceCoordinator{
		gateway:     gateway,
		store:       store,
		creds:       creds,
		maxAttempts: DefaultSaveAttempts,
		metrics:     noopMetrics{},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credentials returns the license instance the coordinator manages
func (c *LicenseSequenceCoordinator) Credentials() pos.LicenseCredentials {
	return c.creds
}

// Save sends the order save, recovering from license sequence errors.
//
// Transport and parse errors are returned immediately. A rejected save that
// no recovery rule covers wraps pos.ErrSaveRejected; running out of attempts
// wraps pos.ErrSaveRetriesExhausted.
func (c *LicenseSequenceCoordinator) Save(ctx context.Context, cmd pos.SaveOrderCommand) (pos.SaveOrderResult, error) {
	if !c.creds.Configured() {
		cmd.License = nil
		result, err := c.gateway.SaveOrder(ctx, cmd)
		if err != nil {
			return result, err
		}
		return result, c.triageUnlicensed(ctx, cmd, result)
	}

	key := c.creds.CacheKey()
	var last pos.SaveOrderResult

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		seq, err := c.current(ctx, key)
		if err != nil {
			return last, err
		}

		cmd.License = &pos.LicenseTicket{LicenseCredentials: c.creds, SeqNumber: seq}
		c.logger.Info("Saving order with license sequence",
			zap.String("order_guid", cmd.OrderGUID),
			zap.Int64("seq_number", seq),
			zap.Int("attempt", attempt),
		)

		result, err := c.gateway.SaveOrder(ctx, cmd)
		// The POS may have consumed seq by now, so the counter updates below
		// must not be lost to a caller that gave up.
		ctx = context.WithoutCancel(ctx)
		if err != nil {
			return result, err
		}
		last = result

		if result.IsOK() {
			c.advance(ctx, key)
			return result, nil
		}

		c.logger.Warn("SaveOrder returned error",
			zap.String("order_guid", cmd.OrderGUID),
			zap.String("error_code", result.ErrorCode),
			zap.String("error_text", result.ErrorText),
			zap.Int("attempt", attempt),
		)

		switch result.ErrorCode {
		case pos.LicenseErrInstanceNotFound:
			if err := c.store.Set(ctx, key, 0); err != nil {
				return result, fmt.Errorf("%w: %v", pos.ErrSequenceUnavailable, err)
			}
			c.metrics.RecordSequenceEvent(ctx, SequenceEventInstanceLost)
			c.logger.Info("License instance not found, sequence reset to 0")
			continue
		case pos.LicenseErrSeqMismatch, pos.LicenseErrSeqNotAdvanced:
			if err := c.resync(ctx, key); err != nil {
				return result, err
			}
			continue
		}

		if strings.Contains(result.ErrorText, pos.LicenseCheckMarker) {
			c.metrics.RecordSequenceEvent(ctx, SequenceEventSoftSuccess)
			c.logger.Warn("License check error during SaveOrder, treating save as accepted",
				zap.String("order_guid", cmd.OrderGUID),
				zap.String("error_text", result.ErrorText),
			)
			return result, nil
		}

		return result, c.rejected(result)
	}

	c.metrics.RecordSequenceEvent(ctx, SequenceEventExhausted)
	c.logger.Error("License sequence recovery exhausted",
		zap.String("order_guid", cmd.OrderGUID),
		zap.Int("attempts", c.maxAttempts),
	)
	return last, fmt.Errorf("%w after %d attempts: %w", pos.ErrSaveRetriesExhausted, c.maxAttempts, c.rejected(last))
}

// Reset clears the cached sequence so the next save starts from 0
func (c *LicenseSequenceCoordinator) Reset(ctx context.Context) error {
	if !c.creds.Configured() {
		return pos.ErrLicenseNotConfigured
	}
	if err := c.store.Delete(ctx, c.creds.CacheKey()); err != nil {
		return fmt.Errorf("%w: %v", pos.ErrSequenceUnavailable, err)
	}
	c.logger.Info("License sequence reset", zap.String("instance_guid", c.creds.InstanceGUID))
	return nil
}

// Status returns the cached and server-side sequence numbers. A failed
// server query is reported in the result rather than as an error.
func (c *LicenseSequenceCoordinator) Status(ctx context.Context) (LicenseStatus, error) {
	if !c.creds.Configured() {
		return LicenseStatus{}, pos.ErrLicenseNotConfigured
	}
	status := LicenseStatus{
		InstanceGUID: c.creds.InstanceGUID,
		CacheKey:     c.creds.CacheKey(),
	}

	cached, found, err := c.store.Get(ctx, status.CacheKey)
	if err != nil {
		return status, fmt.Errorf("%w: %v", pos.ErrSequenceUnavailable, err)
	}
	if found {
		status.Cached = &cached
	}

	server, err := c.gateway.GetLicenseSeqNumber(ctx, c.creds)
	if err != nil {
		status.ServerErr = err
	} else {
		status.Server = &server
	}
	return status, nil
}

// Sync overwrites the cached sequence with the server value
func (c *LicenseSequenceCoordinator) Sync(ctx context.Context) (int64, error) {
	if !c.creds.Configured() {
		return 0, pos.ErrLicenseNotConfigured
	}
	server, err := c.gateway.GetLicenseSeqNumber(ctx, c.creds)
	if err != nil {
		return 0, err
	}
	if err := c.store.Set(ctx, c.creds.CacheKey(), server); err != nil {
		return 0, fmt.Errorf("%w: %v", pos.ErrSequenceUnavailable, err)
	}
	c.logger.Info("License sequence synchronized from server", zap.Int64("seq_number", server))
	return server, nil
}

// current returns the cached sequence, initializing an unknown key to 0.
// The initialization is a SET NX so a concurrent first save that already
// advanced the counter is never rewound.
func (c *LicenseSequenceCoordinator) current(ctx context.Context, key string) (int64, error) {
	seq, found, err := c.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", pos.ErrSequenceUnavailable, err)
	}
	if found {
		return seq, nil
	}
	created, err := c.store.SetIfAbsent(ctx, key, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", pos.ErrSequenceUnavailable, err)
	}
	if !created {
		seq, _, err = c.store.Get(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", pos.ErrSequenceUnavailable, err)
		}
		return seq, nil
	}
	c.metrics.RecordSequenceEvent(ctx, SequenceEventInitialized)
	c.logger.Info("Initial sequence number set to 0 for license instance")
	return 0, nil
}

// advance increments the sequence after an accepted save. The save already
// happened, so a cache failure is logged and recovered by the next
// mismatch response.
func (c *LicenseSequenceCoordinator) advance(ctx context.Context, key string) {
	next, err := c.store.Increment(ctx, key)
	if err != nil {
		c.logger.Warn("Failed to increment sequence, setting it to 1", zap.Error(err))
		if err := c.store.Set(ctx, key, 1); err != nil {
			c.logger.Error("Failed to store sequence after accepted save", zap.Error(err))
			return
		}
		next = 1
	}
	c.metrics.RecordSequenceEvent(ctx, SequenceEventAdvanced)
	c.logger.Info("Sequence number advanced", zap.Int64("seq_number", next))
}

// resync stores the server's sequence, or 0 when the server cannot tell
func (c *LicenseSequenceCoordinator) resync(ctx context.Context, key string) error {
	seq, err := c.gateway.GetLicenseSeqNumber(ctx, c.creds)
	event := SequenceEventResynced
	if err != nil {
		c.logger.Error("Failed to refresh sequence number, resetting to 0", zap.Error(err))
		seq = 0
		event = SequenceEventResyncFailed
	}
	if err := c.store.Set(ctx, key, seq); err != nil {
		return fmt.Errorf("%w: %v", pos.ErrSequenceUnavailable, err)
	}
	c.metrics.RecordSequenceEvent(ctx, event)
	c.logger.Info("Sequence number updated for retry", zap.Int64("seq_number", seq))
	return nil
}

func (c *LicenseSequenceCoordinator) triageUnlicensed(ctx context.Context, cmd pos.SaveOrderCommand, result pos.SaveOrderResult) error {
	if result.IsOK() {
		return nil
	}
	if strings.Contains(result.ErrorText, pos.LicenseCheckMarker) {
		c.metrics.RecordSequenceEvent(ctx, SequenceEventSoftSuccess)
		c.logger.Warn("License check error during SaveOrder, treating save as accepted",
			zap.String("order_guid", cmd.OrderGUID),
			zap.String("error_text", result.ErrorText),
		)
		return nil
	}
	return c.rejected(result)
}

func (c *LicenseSequenceCoordinator) rejected(result pos.SaveOrderResult) error {
	return fmt.Errorf("%w: %w", pos.ErrSaveRejected, &pos.ProtocolStatusError{
		Command: "SaveOrder",
		Status:  result.Status,
		Code:    result.ErrorCode,
		Text:    result.ErrorText,
	})
}
