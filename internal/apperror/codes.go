package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Tick-stream domain error codes
const (
	// Transport: connect failed, TLS failure, abrupt close, protocol
	// violation. Always triggers a reconnect attempt.
	CodeTransport Code = "TRANSPORT"

	// Codec errors. Packet-level failures never abort a frame's
	// remaining packets except CodecTruncatedFrame, which by definition
	// means no further packets can be located.
	CodeCodecUnknownShape    Code = "CODEC_UNKNOWN_SHAPE"
	CodeCodecTruncatedFrame  Code = "CODEC_TRUNCATED_FRAME"

	// Capacity: no worker has room for a requested subscription. Returned
	// synchronously from Manager.subscribe.
	CodeCapacity Code = "CAPACITY"

	// PlacementConflict: token already placed under a connection. Normally
	// handled silently (skipped); surfaced only in strict mode.
	CodePlacementConflict Code = "PLACEMENT_CONFLICT"

	// WorkerBusy: a worker's control queue is full. Surfaced synchronously
	// so callers can retry instead of blocking.
	CodeWorkerBusy Code = "WORKER_BUSY"

	// StrategyRequiresExplicit: multi-credential subscribe called under
	// the Manual distribution strategy without naming a credential.
	CodeStrategyRequiresExplicit Code = "STRATEGY_REQUIRES_EXPLICIT"

	// TerminalDisconnect: reconnect attempts exhausted for a worker; this
	// is emitted once on that worker's parsed broadcast before it closes.
	CodeTerminalDisconnect Code = "TERMINAL_DISCONNECT"
)
