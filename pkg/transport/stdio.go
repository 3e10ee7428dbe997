package transport

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lineframe/lineframe-go/pkg/errors"
	"github.com/lineframe/lineframe-go/pkg/logging"
	"github.com/lineframe/lineframe-go/pkg/observability"
)

// StdioTransport exchanges newline-delimited frames over a pair of byte
// streams, by default the process standard input and output. Frames are
// opaque payloads; the transport never inspects their content.
//
// The lifecycle is strictly one-way: not connected, connected, closed.
// Only Disconnect closes the transport. End of input finalizes the
// receive channel but leaves the write path open, so a peer that closed
// its output can still be sent replies. A closed transport stays closed.
type StdioTransport struct {
	connectionID string

	reader io.Reader
	writer io.Writer

	readBufferSize int
	pollInterval   time.Duration

	logger  logging.Logger
	metrics *observability.TransportMetrics

	mu    sync.Mutex // Protects state
	state State

	writeMu sync.Mutex // Serializes Send

	msgs      chan []byte
	done      chan struct{}
	doneOnce  sync.Once // Ensures done closes once
	closeOnce sync.Once // Ensures msgs closes once
	termErr   error     // Set before msgs closes, read after

	// pending holds bytes read but not yet terminated by a delimiter.
	// Touched only by the read loop.
	pending []byte
}

// newStdioTransport creates a new stdio transport from config
func newStdioTransport(config TransportConfig) (*StdioTransport, error) {
	// Use custom streams if provided (for testing), otherwise the
	// process standard streams
	reader := config.Reader
	writer := config.Writer

	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	connectionID := uuid.NewString()

	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithFields(
		logging.String("connection_id", connectionID),
		logging.String("component", "StdioTransport"),
	)

	var metrics *observability.TransportMetrics
	if config.Observability.EnableMetrics {
		metrics = config.Observability.Metrics
		if metrics == nil {
			var err error
			metrics, err = observability.NewTransportMetrics(observability.MetricsConfig{})
			if err != nil {
				return nil, err
			}
		}
	}

	return &StdioTransport{
		connectionID:   connectionID,
		reader:         reader,
		writer:         writer,
		readBufferSize: config.Performance.ReadBufferSize,
		pollInterval:   config.Performance.PollInterval,
		logger:         logger,
		metrics:        metrics,
		msgs:           make(chan []byte, config.Performance.MessageBufferSize),
		done:           make(chan struct{}),
	}, nil
}

// Connect switches the descriptors to non-blocking mode and starts the
// read loop. Calling Connect on an already connected transport is a no-op.
// A closed transport cannot reconnect.
func (t *StdioTransport) Connect(ctx context.Context) error {
	t.mu.Lock()

	switch t.state {
	case StateConnected:
		t.mu.Unlock()
		t.logger.Debug("already connected", logging.String("operation", "connect"))
		return nil
	case StateClosed:
		t.mu.Unlock()
		return errors.TransportClosed("connect").WithContext(&errors.Context{
			ConnectionID: t.connectionID,
			Component:    "StdioTransport",
			Operation:    "connect",
		})
	}

	if err := configureNonblocking(t.reader, "input"); err != nil {
		t.mu.Unlock()
		t.logger.WithError(err).Error("descriptor configuration failed",
			logging.String("operation", "connect"))
		return err
	}
	if err := configureNonblocking(t.writer, "output"); err != nil {
		t.mu.Unlock()
		t.logger.WithError(err).Error("descriptor configuration failed",
			logging.String("operation", "connect"))
		return err
	}

	t.state = StateConnected
	t.mu.Unlock()

	t.recordState(StateConnected)
	t.logger.Info("connected",
		logging.String("operation", "connect"),
		logging.Int("read_buffer_size", t.readBufferSize),
		logging.Duration("poll_interval", t.pollInterval),
	)

	g, gctx := errgroup.WithContext(ctx)
	loopDone := make(chan struct{})

	g.Go(func() error {
		defer close(loopDone)
		return t.readLoop(gctx)
	})

	// Unblock a read stuck on a stream that never reports would-block
	// by closing it when the transport shuts down
	g.Go(func() error {
		select {
		case <-loopDone:
			return nil
		case <-gctx.Done():
		case <-t.done:
		}
		if closer, ok := t.reader.(io.Closer); ok {
			_ = closer.Close() // Ignore error on forced close
		}
		return nil
	})

	// Read-side termination finalizes the receive sequence only. The
	// transport stays connected so replies can still be written after a
	// peer half-close; Disconnect alone closes it.
	go func() {
		t.finalize(g.Wait())
	}()

	return nil
}

// readLoop pulls bytes from the input descriptor, splits them on the
// delimiter, and publishes complete frames. It returns nil on a clean end
// of stream or shutdown, and the terminal error otherwise.
func (t *StdioTransport) readLoop(ctx context.Context) error {
	buf := make([]byte, t.readBufferSize)

	for {
		if t.stopping(ctx) {
			return nil
		}

		n, err := t.reader.Read(buf)

		if n > 0 {
			if t.metrics != nil {
				t.metrics.RecordBytesReceived(n)
			}
			t.pending = append(t.pending, buf[:n]...)
			if !t.drainPending(ctx) {
				return nil
			}
		}

		switch {
		case err == nil:
			// A zero-byte read with no error is treated like a
			// would-block condition
			if n == 0 {
				if !t.sleepPoll(ctx) {
					return nil
				}
			}

		case errors.IsEndOfStream(err):
			// Bytes after the last delimiter never formed a frame
			// and are discarded
			t.logger.Info("end of stream",
				logging.String("operation", "read"),
				logging.Int("discarded_bytes", len(t.pending)),
			)
			return nil

		case errors.IsTransient(err):
			if t.metrics != nil {
				t.metrics.RecordTransientRetry("read")
			}
			if !t.sleepPoll(ctx) {
				return nil
			}

		default:
			if t.stopping(ctx) {
				// The error came from tearing the stream down, not
				// from the peer
				return nil
			}

			readErr := errors.ReadFailed(err).WithContext(&errors.Context{
				ConnectionID: t.connectionID,
				Component:    "StdioTransport",
				Operation:    "read",
			})
			t.logger.WithError(readErr).Error("read loop terminated")
			if t.metrics != nil {
				t.metrics.RecordError("read")
			}
			return readErr
		}
	}
}

// drainPending publishes every complete frame in the pending buffer.
// Empty frames (consecutive delimiters) are dropped. Returns false when
// the transport shut down mid-publish.
func (t *StdioTransport) drainPending(ctx context.Context) bool {
	for {
		i := bytes.IndexByte(t.pending, '\n')
		if i < 0 {
			return true
		}

		line := t.pending[:i]
		t.pending = t.pending[i+1:]

		if len(line) == 0 {
			continue
		}

		// Copy out of the pending buffer; the slice is reused
		frame := make([]byte, len(line))
		copy(frame, line)

		select {
		case t.msgs <- frame:
			if t.metrics != nil {
				t.metrics.RecordFrameReceived()
			}
		case <-t.done:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// sleepPoll waits one poll interval before the next retry. Returns false
// when the transport shut down during the wait.
func (t *StdioTransport) sleepPoll(ctx context.Context) bool {
	timer := time.NewTimer(t.pollInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-t.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// stopping reports whether the transport is shutting down.
func (t *StdioTransport) stopping(ctx context.Context) bool {
	select {
	case <-t.done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Send frames data with a trailing delimiter and drives the whole frame
// onto the output descriptor, absorbing partial writes and would-block
// conditions. Concurrent senders are serialized; frames never interleave.
func (t *StdioTransport) Send(data []byte) error {
	t.mu.Lock()
	state := t.state
	t.mu.Unlock()

	switch state {
	case StateNotConnected:
		return errors.NotConnected("send").WithContext(&errors.Context{
			ConnectionID: t.connectionID,
			Component:    "StdioTransport",
			Operation:    "send",
		})
	case StateClosed:
		return errors.TransportClosed("send").WithContext(&errors.Context{
			ConnectionID: t.connectionID,
			Component:    "StdioTransport",
			Operation:    "send",
		})
	}

	frame := make([]byte, len(data)+1)
	copy(frame, data)
	frame[len(data)] = '\n'

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	start := time.Now()
	written := 0

	for written < len(frame) {
		n, err := t.writer.Write(frame[written:])
		if n > 0 {
			written += n
		}

		if err == nil {
			continue
		}

		switch {
		case errors.IsTransient(err):
			if t.metrics != nil {
				t.metrics.RecordTransientRetry("write")
			}
			time.Sleep(t.pollInterval)

		case errors.IsNotConnectedErrno(err):
			return errors.NotConnected("send").WithContext(&errors.Context{
				ConnectionID: t.connectionID,
				Component:    "StdioTransport",
				Operation:    "send",
			})

		default:
			writeErr := errors.WriteFailed(written, err).WithContext(&errors.Context{
				ConnectionID: t.connectionID,
				Component:    "StdioTransport",
				Operation:    "send",
			})
			t.logger.WithError(writeErr).Error("send failed")
			if t.metrics != nil {
				t.metrics.RecordError("write")
			}
			return writeErr
		}
	}

	if t.metrics != nil {
		t.metrics.RecordFrameSent(written, time.Since(start))
	}
	return nil
}

// Messages returns the receive channel. Frames arrive in wire order. The
// channel closes exactly once, when the connection terminates; consult
// Err afterwards.
func (t *StdioTransport) Messages() <-chan []byte {
	return t.msgs
}

// Err reports why the message channel closed. Nil means a clean end of
// stream or a local disconnect.
func (t *StdioTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.termErr
}

// Disconnect tears the connection down. Safe to call repeatedly and
// concurrently with a blocked read; only the first call does anything.
func (t *StdioTransport) Disconnect() {
	t.mu.Lock()

	switch t.state {
	case StateClosed:
		t.mu.Unlock()
		t.logger.Debug("already disconnected", logging.String("operation", "disconnect"))
		return

	case StateNotConnected:
		// The read loop never started, so nothing will finalize the
		// channel for us
		t.state = StateClosed
		t.mu.Unlock()

		t.doneOnce.Do(func() { close(t.done) })
		t.finalize(nil)

	case StateConnected:
		t.state = StateClosed
		t.mu.Unlock()

		// The read loop observes done, winds down, and finalizes
		t.doneOnce.Do(func() { close(t.done) })
	}

	t.recordState(StateClosed)
	t.logger.Info("disconnected", logging.String("operation", "disconnect"))
}

// State reports the current connection state.
func (t *StdioTransport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// finalize records the terminal error and closes the message channel.
// Exactly one caller wins; the rest are no-ops.
func (t *StdioTransport) finalize(err error) {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.termErr = err
		t.mu.Unlock()
		close(t.msgs)
	})
}

func (t *StdioTransport) recordState(state State) {
	if t.metrics != nil {
		t.metrics.RecordConnectionState(state.String())
	}
}
