package pos

import "context"

// LicenseSeqKeyPrefix prefixes the shared cache key of a license instance
const LicenseSeqKeyPrefix = "rkeeper:license_seq:"

// License protocol error codes reported in RK7ErrorN
const (
	LicenseErrInstanceNotFound = "5304"
	LicenseErrSeqMismatch      = "5305"
	LicenseErrSeqNotAdvanced   = "5310"
)

// LicenseCheckMarker appears in the error text of degraded license responses
const LicenseCheckMarker = "License check"

// LicenseCredentials identify a POS license instance.
type LicenseCredentials struct {
	Anchor       string
	Token        string
	InstanceGUID string
}

// Configured returns true when all three values are set. Without them no
// license block is sent.
func (c LicenseCredentials) Configured() bool {
	return c.Anchor != "" && c.Token != "" && c.InstanceGUID != ""
}

// CacheKey returns the shared cache key holding the sequence number
func (c LicenseCredentials) CacheKey() string {
	return LicenseSeqKeyPrefix + c.InstanceGUID
}

// LicenseSequenceStore is a shared keyed integer store. Increment must be
// atomic across processes and treat a missing key as zero.
type LicenseSequenceStore interface {
	// Get returns the value and whether the key exists
	Get(ctx context.Context, key string) (int64, bool, error)
	Set(ctx context.Context, key string, value int64) error
	// SetIfAbsent stores value only when the key is missing and reports
	// whether it did. It must be atomic with respect to Increment.
	SetIfAbsent(ctx context.Context, key string, value int64) (bool, error)
	Delete(ctx context.Context, key string) error
	// Increment adds one and returns the new value
	Increment(ctx context.Context, key string) (int64, error)
}
