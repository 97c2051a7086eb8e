package pgexec

import "time"

// defaultMaxBufferedQueries is MAX_BUFFERED_QUERIES from spec §4.2/§9:
// derived as a 64KB server-side output buffer divided by roughly 250
// bytes per reply.
const defaultMaxBufferedQueries = 256

// Options carries the knobs this core consults directly. Connection
// establishment, authentication, and pooling are out of scope (spec §1)
// and have no knobs here; Options only configures behavior the Executor
// itself owns.
type Options struct {
	// AllowEncodingChanges silently tolerates a non-UTF8 client_encoding
	// ParameterStatus instead of force-closing the connection (spec
	// §4.5).
	AllowEncodingChanges bool

	// ReadTimeout is applied to the connection via SetReadDeadline
	// before every blocking read. Zero means no deadline.
	ReadTimeout time.Duration
	// WriteTimeout is applied via SetWriteDeadline before every write.
	// Zero means no deadline.
	WriteTimeout time.Duration

	// DisallowBatching forces DISALLOW_BATCHING semantics (Sync after
	// every statement) on every execute, regardless of the flags passed
	// to an individual call.
	DisallowBatching bool

	// MaxBufferedQueries overrides MAX_BUFFERED_QUERIES. Default is 256.
	MaxBufferedQueries int
}

func (opt *Options) init() {
	if opt.MaxBufferedQueries == 0 {
		opt.MaxBufferedQueries = defaultMaxBufferedQueries
	}
}
