package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Tick-stream domain errors
	CodeTransport:                "Transport error communicating with upstream",
	CodeCodecUnknownShape:        "Unrecognized packet shape for given length",
	CodeCodecTruncatedFrame:      "Frame ended before its declared packets were fully read",
	CodeCapacity:                 "No connection has capacity for the requested subscription",
	CodePlacementConflict:        "Instrument token is already placed on a connection",
	CodeWorkerBusy:               "Worker control queue is full",
	CodeStrategyRequiresExplicit: "Manual distribution strategy requires naming a credential",
	CodeTerminalDisconnect:       "Reconnect attempts exhausted; connection closed",
}
