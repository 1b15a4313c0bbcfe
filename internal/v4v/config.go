package v4v

import "github.com/sirupsen/logrus"

// PageSize fixes the host page size assumed throughout this module (§5
// of the spec: non-x86 page-size assumptions are out of scope).
const PageSize = 4096

// HTableSize is the number of hash buckets in a per-domain ring registry.
const HTableSize = 32

// HeaderSize is the size in bytes of a message frame header.
const HeaderSize = 16

// SlotMarker is the reserved slot, in bytes, that distinguishes an empty
// ring from a full one.
const SlotMarker = 16

// MaxSendBytes is the hard cap on a single sendv's scatter-list total
// length (v4v_iov_count's 2 GiB overflow guard in the original).
const MaxSendBytes = 1 << 31

// Config holds the tunables for a Hub. Zero value is not usable; build one
// with NewConfig.
type Config struct {
	HTableSize uint32
	PageSize   uint32
	DebugLocks bool
	Logger     *logrus.Logger
}

// Option configures a Config constructed by NewConfig.
type Option func(*Config)

// WithHTableSize overrides the number of hash buckets per domain.
func WithHTableSize(n uint32) Option {
	return func(c *Config) { c.HTableSize = n }
}

// WithPageSize overrides the assumed host page size.
func WithPageSize(n uint32) Option {
	return func(c *Config) { c.PageSize = n }
}

// WithDebugLocks enables go-deadlock's lock-order checking on the L1/L2
// hierarchy. Expensive; intended for tests and development builds.
func WithDebugLocks(enabled bool) Option {
	return func(c *Config) { c.DebugLocks = enabled }
}

// WithLogger overrides the structured logger used for registry, delivery,
// and notify events.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// NewConfig builds a Config with the module's defaults, then applies opts.
func NewConfig(opts ...Option) Config {
	c := Config{
		HTableSize: HTableSize,
		PageSize:   PageSize,
		DebugLocks: false,
		Logger:     defaultLogger,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
