package errors

// JSON-RPC 2.0 Standard Error Codes
// The transport never produces these itself, but its error space is aligned
// with the payloads it carries so callers can mix both in one taxonomy.
const (
	// CodeParseError indicates invalid JSON was received by the peer
	CodeParseError int = -32700

	// CodeInvalidRequest indicates the JSON sent is not a valid Request object
	CodeInvalidRequest int = -32600

	// CodeInternalError indicates an internal JSON-RPC error
	CodeInternalError int = -32603
)

// Transport Error Codes (-32500 to -32599)
const (
	// CodeTransportError is a generic transport failure
	CodeTransportError int = -32500

	// CodeNotConnected means an operation required an established connection
	CodeNotConnected int = -32501

	// CodeConfigurationFailed means the descriptors could not be configured
	// for non-blocking operation
	CodeConfigurationFailed int = -32502

	// CodeReadFailed means the read loop hit an unrecoverable error
	CodeReadFailed int = -32503

	// CodeWriteFailed means a send could not be driven to completion
	CodeWriteFailed int = -32504

	// CodeTransportClosed means the transport was already disconnected;
	// a closed transport never reconnects
	CodeTransportClosed int = -32505
)

// Validation Error Codes (-32750 to -32799)
const (
	// CodeValidationError is a generic configuration-validation error
	CodeValidationError int = -32750
)

// ErrorCodeInfo provides human-readable information about error codes
type ErrorCodeInfo struct {
	Code        int
	Name        string
	Description string
	Category    Category
	Severity    Severity
}

// errorCodeRegistry maps error codes to their information
var errorCodeRegistry = map[int]ErrorCodeInfo{
	CodeParseError:     {CodeParseError, "ParseError", "Invalid JSON was received", CategoryInternal, SeverityError},
	CodeInvalidRequest: {CodeInvalidRequest, "InvalidRequest", "Invalid Request object", CategoryInternal, SeverityError},
	CodeInternalError:  {CodeInternalError, "InternalError", "Internal JSON-RPC error", CategoryInternal, SeverityError},

	CodeTransportError:      {CodeTransportError, "TransportError", "Transport error", CategoryTransport, SeverityError},
	CodeNotConnected:        {CodeNotConnected, "NotConnected", "Transport is not connected", CategoryTransport, SeverityError},
	CodeConfigurationFailed: {CodeConfigurationFailed, "ConfigurationFailed", "Descriptor configuration failed", CategoryConfig, SeverityCritical},
	CodeReadFailed:          {CodeReadFailed, "ReadFailed", "Read loop terminated with an error", CategoryTransport, SeverityError},
	CodeWriteFailed:         {CodeWriteFailed, "WriteFailed", "Frame could not be written", CategoryTransport, SeverityError},
	CodeTransportClosed:     {CodeTransportClosed, "TransportClosed", "Transport already disconnected", CategoryTransport, SeverityWarning},

	CodeValidationError: {CodeValidationError, "ValidationError", "Invalid transport configuration", CategoryValidation, SeverityError},
}

// GetErrorCodeInfo returns information about an error code
func GetErrorCodeInfo(code int) (ErrorCodeInfo, bool) {
	info, exists := errorCodeRegistry[code]
	return info, exists
}

// GetErrorCodeName returns the name of an error code
func GetErrorCodeName(code int) string {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Name
	}
	return "UnknownError"
}

// ListErrorCodes returns all registered error codes
func ListErrorCodes() []ErrorCodeInfo {
	codes := make([]ErrorCodeInfo, 0, len(errorCodeRegistry))
	for _, info := range errorCodeRegistry {
		codes = append(codes, info)
	}
	return codes
}
