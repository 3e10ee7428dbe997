// Package lineframe implements a point-to-point transport for
// newline-delimited payloads exchanged over the standard streams of a pair
// of processes. Payloads are opaque byte frames; one frame occupies one
// line on the wire.
//
// # Overview
//
// The library consists of several sub-packages:
//
//   - pkg/transport: the stdio transport, configuration, and middleware
//   - pkg/errors: the structured error types shared by all components
//   - pkg/logging: structured logging with pluggable formatters
//   - pkg/observability: Prometheus metrics and OpenTelemetry tracing
//
// # Using the transport
//
//	import (
//	    "context"
//
//	    lineframe "github.com/lineframe/lineframe-go"
//	)
//
//	func main() {
//	    config := lineframe.DefaultTransportConfig(lineframe.TransportTypeStdio)
//	    t, err := lineframe.NewTransport(config)
//	    if err != nil {
//	        // Handle error
//	    }
//
//	    ctx := context.Background()
//	    if err := t.Connect(ctx); err != nil {
//	        // Handle error
//	    }
//	    defer t.Disconnect()
//
//	    if err := t.Send([]byte(`{"jsonrpc":"2.0","method":"ping"}`)); err != nil {
//	        // Handle error
//	    }
//
//	    for msg := range t.Messages() {
//	        // Each msg is one complete frame without its delimiter
//	        _ = msg
//	    }
//	    if err := t.Err(); err != nil {
//	        // The read loop terminated with an error
//	    }
//	}
//
// Received frames arrive on the Messages channel in wire order. The channel
// closes exactly once when the connection ends; Err reports whether the
// termination was clean. Send drives each frame fully onto the output
// descriptor, absorbing partial writes and would-block conditions of the
// non-blocking descriptors.
package lineframe
