package errors

import (
	"fmt"
)

// TransportErrorData contains structured data for transport-related errors
type TransportErrorData struct {
	Transport    string `json:"transport"`
	Operation    string `json:"operation,omitempty"`
	Connected    bool   `json:"connected"`
	Retryable    bool   `json:"retryable"`
	Descriptor   string `json:"descriptor,omitempty"`
	BytesWritten int    `json:"bytes_written,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// ConfigurationFailed creates an error for a descriptor that could not be
// switched to non-blocking mode. Fatal to Connect; the connection is not
// established.
func ConfigurationFailed(descriptor string, cause error) WireError {
	message := fmt.Sprintf("failed to configure %s descriptor for non-blocking I/O", descriptor)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return Wrap(
		cause,
		CodeConfigurationFailed,
		message,
		CategoryConfig,
		SeverityCritical,
	).WithData(&TransportErrorData{
		Transport:  "stdio",
		Operation:  "set_nonblocking",
		Connected:  false,
		Retryable:  false,
		Descriptor: descriptor,
		Reason:     reasonOf(cause),
	})
}

// NotConnected creates an error for operations attempted before Connect or
// on a descriptor that reports no connection.
func NotConnected(operation string) WireError {
	return New(
		CodeNotConnected,
		fmt.Sprintf("transport is not connected: cannot %s", operation),
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: "stdio",
		Operation: operation,
		Connected: false,
		Retryable: false,
		Reason:    "not connected",
	})
}

// TransportClosed creates an error for operations on a transport that has
// already been disconnected. Disconnection is terminal.
func TransportClosed(operation string) WireError {
	return New(
		CodeTransportClosed,
		fmt.Sprintf("transport is closed: cannot %s", operation),
		CategoryTransport,
		SeverityWarning,
	).WithData(&TransportErrorData{
		Transport: "stdio",
		Operation: operation,
		Connected: false,
		Retryable: false,
		Reason:    "closed",
	})
}

// ReadFailed creates the terminal error of a receive sequence whose read
// loop hit an unrecoverable failure.
func ReadFailed(cause error) WireError {
	message := "read loop terminated"
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return Wrap(
		cause,
		CodeReadFailed,
		message,
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: "stdio",
		Operation: "read",
		Connected: true,
		Retryable: false,
		Reason:    reasonOf(cause),
	})
}

// WriteFailed creates an error for a send aborted by an unrecoverable write
// failure. The written byte count records how far the frame got before the
// abort.
func WriteFailed(written int, cause error) WireError {
	message := "failed to write frame"
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return Wrap(
		cause,
		CodeWriteFailed,
		message,
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport:    "stdio",
		Operation:    "write",
		Connected:    true,
		Retryable:    false,
		BytesWritten: written,
		Reason:       reasonOf(cause),
	})
}

// InvalidTransportConfiguration creates an error for invalid construction
// parameters.
func InvalidTransportConfiguration(parameter, reason string) WireError {
	return New(
		CodeValidationError,
		fmt.Sprintf("invalid transport configuration for parameter %q: %s", parameter, reason),
		CategoryValidation,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: "stdio",
		Operation: "configure",
		Connected: false,
		Retryable: false,
		Reason:    fmt.Sprintf("invalid %s: %s", parameter, reason),
	})
}

func reasonOf(cause error) string {
	if cause == nil {
		return ""
	}
	return cause.Error()
}
