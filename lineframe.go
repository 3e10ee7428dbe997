// Package lineframe provides a Golang implementation of a newline-delimited
// frame transport over process standard streams
package lineframe

import (
	"github.com/lineframe/lineframe-go/pkg/transport"
)

// Version represents the current version of the library
const Version = "1.0.0"

// These exports provide direct access to the core components
var (
	// NewTransport creates a transport from a TransportConfig
	NewTransport = transport.NewTransport

	// DefaultTransportConfig returns a configuration with sensible defaults
	DefaultTransportConfig = transport.DefaultTransportConfig

	// ChainMiddleware composes transport middleware
	ChainMiddleware = transport.ChainMiddleware
)

// Transport types
const (
	TransportTypeStdio = transport.TransportTypeStdio
)

// Connection states
const (
	StateNotConnected = transport.StateNotConnected
	StateConnected    = transport.StateConnected
	StateClosed       = transport.StateClosed
)
