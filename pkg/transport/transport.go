// Package transport provides a config-driven transport layer for
// newline-delimited message exchange over process standard streams.
//
// Key Features:
// - Unified TransportConfig-based creation
// - Non-blocking descriptor I/O with transparent would-block retries
// - Channel-based receive with a single terminal close
// - Automatic middleware composition (observability)
//
// Usage:
//
//	config := transport.DefaultTransportConfig(transport.TransportTypeStdio)
//	t, err := transport.NewTransport(config)
//	if err != nil { ... }
//	if err := t.Connect(ctx); err != nil { ... }
//	for msg := range t.Messages() { ... }
//	if err := t.Err(); err != nil { ... }
package transport

import (
	"context"
	"io"
	"time"

	"github.com/lineframe/lineframe-go/pkg/errors"
	"github.com/lineframe/lineframe-go/pkg/logging"
	"github.com/lineframe/lineframe-go/pkg/observability"
)

// Transport is the core interface for message stream transports.
type Transport interface {
	// Connect prepares the descriptors and starts the read loop. It is
	// idempotent while connected and returns immediately.
	Connect(ctx context.Context) error

	// Send frames data with a trailing newline and drives the whole frame
	// onto the output descriptor before returning.
	Send(data []byte) error

	// Messages returns the receive channel. Each element is one complete
	// frame without its delimiter. The channel is closed exactly once,
	// when the connection terminates.
	Messages() <-chan []byte

	// Err reports why the message channel closed. It returns nil after a
	// clean end of stream or a local disconnect, and the terminal read
	// error otherwise. Valid only after Messages() is closed.
	Err() error

	// Disconnect tears the connection down. It is idempotent and safe to
	// call concurrently with a blocked read.
	Disconnect()

	// State reports the current connection state.
	State() State
}

// State is the connection lifecycle state of a transport.
type State int

const (
	// StateNotConnected is the initial state, before Connect.
	StateNotConnected State = iota
	// StateConnected means the read loop is running.
	StateConnected
	// StateClosed is terminal. A closed transport cannot reconnect.
	StateClosed
)

// String returns the string representation of a connection state
func (s State) String() string {
	switch s {
	case StateNotConnected:
		return "not_connected"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TransportType identifies the base transport implementation
type TransportType string

const (
	TransportTypeStdio TransportType = "stdio"
)

// TransportConfig is the unified configuration for all transports
type TransportConfig struct {
	// Type of transport to create
	Type TransportType `json:"type"`

	// Reader and Writer override the process standard streams. When nil
	// the stdio transport uses os.Stdin and os.Stdout.
	Reader io.Reader `json:"-"`
	Writer io.Writer `json:"-"`

	// Logger receives lifecycle events and failures. Defaults to a
	// no-op sink.
	Logger logging.Logger `json:"-"`

	// Feature configuration
	Features FeatureConfig `json:"features"`

	// Component configurations
	Performance   PerformanceConfig   `json:"performance"`
	Observability ObservabilityConfig `json:"observability"`
}

// FeatureConfig controls which middleware are enabled
type FeatureConfig struct {
	EnableObservability bool `json:"enable_observability"`
	EnableTracing       bool `json:"enable_tracing"`
}

// PerformanceConfig tunes the read and write loops
type PerformanceConfig struct {
	// ReadBufferSize is the size of each read from the input descriptor.
	ReadBufferSize int `json:"read_buffer_size"`

	// PollInterval is how long a loop sleeps after a would-block
	// condition before retrying.
	PollInterval time.Duration `json:"poll_interval"`

	// MessageBufferSize is the capacity of the receive channel. A full
	// channel applies backpressure to the read loop.
	MessageBufferSize int `json:"message_buffer_size"`
}

// ObservabilityConfig for metrics and logging
type ObservabilityConfig struct {
	EnableMetrics bool   `json:"enable_metrics"`
	EnableLogging bool   `json:"enable_logging"`
	LogLevel      string `json:"log_level"`

	// Metrics overrides the metrics provider. When nil and metrics are
	// enabled, a default provider registers with the global registry.
	Metrics *observability.TransportMetrics `json:"-"`

	// Tracing enables span creation around transport operations when
	// the tracing feature is on.
	Tracing *observability.TracingProvider `json:"-"`
}

// DefaultTransportConfig returns a transport configuration with sensible defaults
func DefaultTransportConfig(transportType TransportType) TransportConfig {
	return TransportConfig{
		Type: transportType,
		Features: FeatureConfig{
			EnableObservability: true,
		},
		Performance: PerformanceConfig{
			ReadBufferSize:    4096,
			PollInterval:      10 * time.Millisecond,
			MessageBufferSize: 64,
		},
		Observability: ObservabilityConfig{
			EnableMetrics: false,
			EnableLogging: true,
			LogLevel:      "info",
		},
	}
}

// NewTransport creates a new transport with the specified configuration
func NewTransport(config TransportConfig) (Transport, error) {
	if err := validateTransportConfig(&config); err != nil {
		return nil, err
	}

	var base Transport
	var err error

	switch config.Type {
	case TransportTypeStdio:
		base, err = newStdioTransport(config)
	default:
		return nil, errors.InvalidTransportConfiguration("type",
			"unsupported transport type: "+string(config.Type))
	}

	if err != nil {
		return nil, err
	}

	// Apply middleware chain
	middleware := buildMiddleware(config)
	return ChainMiddleware(middleware...).Wrap(base), nil
}

// validateTransportConfig validates the configuration and fills zero
// values with defaults
func validateTransportConfig(config *TransportConfig) error {
	if config.Performance.ReadBufferSize < 0 {
		return errors.InvalidTransportConfiguration("performance.read_buffer_size",
			"must not be negative")
	}
	if config.Performance.PollInterval < 0 {
		return errors.InvalidTransportConfiguration("performance.poll_interval",
			"must not be negative")
	}
	if config.Performance.MessageBufferSize < 0 {
		return errors.InvalidTransportConfiguration("performance.message_buffer_size",
			"must not be negative")
	}

	if config.Performance.ReadBufferSize == 0 {
		config.Performance.ReadBufferSize = 4096
	}
	if config.Performance.PollInterval == 0 {
		config.Performance.PollInterval = 10 * time.Millisecond
	}
	if config.Performance.MessageBufferSize == 0 {
		config.Performance.MessageBufferSize = 64
	}
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}

	return nil
}
