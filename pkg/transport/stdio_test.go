package transport_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	wireerrors "github.com/lineframe/lineframe-go/pkg/errors"
	"github.com/lineframe/lineframe-go/pkg/logging"
	"github.com/lineframe/lineframe-go/pkg/transport"
	"github.com/lineframe/lineframe-go/pkg/utils"
)

// funcReader adapts a function to io.Reader
type funcReader struct {
	fn func(p []byte) (int, error)
}

func (r *funcReader) Read(p []byte) (int, error) {
	return r.fn(p)
}

// funcWriter adapts a function to io.Writer
type funcWriter struct {
	mu sync.Mutex
	fn func(p []byte) (int, error)
}

func (w *funcWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fn(p)
}

func newPipeTransport(t *testing.T, logger logging.Logger) (transport.Transport, *io.PipeWriter, *bytes.Buffer) {
	t.Helper()

	pr, pw := io.Pipe()
	var out bytes.Buffer

	config := transport.DefaultTransportConfig(transport.TransportTypeStdio)
	config.Reader = pr
	config.Writer = &out
	config.Logger = logger

	tr, err := transport.NewTransport(config)
	require.NoError(t, err)
	return tr, pw, &out
}

func receiveFrame(t *testing.T, tr transport.Transport) []byte {
	t.Helper()

	select {
	case msg, ok := <-tr.Messages():
		require.True(t, ok, "message channel closed early")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func waitClosed(t *testing.T, tr transport.Transport) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-tr.Messages():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for message channel to close")
		}
	}
}

func TestReceiveSplitsFramesOnDelimiter(t *testing.T) {
	tr, pw, _ := newPipeTransport(t, nil)
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Disconnect()

	go func() {
		_, _ = pw.Write([]byte("{\"id\":1}\n{\"id\":2}\n{\"id\":3}\n"))
	}()

	assert.Equal(t, []byte(`{"id":1}`), receiveFrame(t, tr))
	assert.Equal(t, []byte(`{"id":2}`), receiveFrame(t, tr))
	assert.Equal(t, []byte(`{"id":3}`), receiveFrame(t, tr))
}

func TestReceiveDropsEmptySegments(t *testing.T) {
	tr, pw, _ := newPipeTransport(t, nil)
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Disconnect()

	go func() {
		_, _ = pw.Write([]byte("alpha\n\n\nbeta\n"))
	}()

	assert.Equal(t, []byte("alpha"), receiveFrame(t, tr))
	assert.Equal(t, []byte("beta"), receiveFrame(t, tr))
}

func TestReceiveReassemblesAcrossReads(t *testing.T) {
	tr, pw, _ := newPipeTransport(t, nil)
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Disconnect()

	go func() {
		_, _ = pw.Write([]byte("hel"))
		time.Sleep(20 * time.Millisecond)
		_, _ = pw.Write([]byte("lo\nwor"))
		time.Sleep(20 * time.Millisecond)
		_, _ = pw.Write([]byte("ld\n"))
	}()

	assert.Equal(t, []byte("hello"), receiveFrame(t, tr))
	assert.Equal(t, []byte("world"), receiveFrame(t, tr))
}

func TestConnectIsIdempotent(t *testing.T) {
	var logBuf bytes.Buffer
	logger := logging.New(&logBuf, logging.NewTextFormatter())

	tr, _, _ := newPipeTransport(t, logger)
	defer tr.Disconnect()

	require.NoError(t, tr.Connect(context.Background()))
	require.NoError(t, tr.Connect(context.Background()))
	require.NoError(t, tr.Connect(context.Background()))

	assert.Equal(t, transport.StateConnected, tr.State())
	assert.Equal(t, 1, strings.Count(logBuf.String(), "StdioTransport/connect: connected"),
		"repeated Connect must not reconfigure or re-log")
}

func TestDisconnectIsIdempotent(t *testing.T) {
	var logBuf bytes.Buffer
	logger := logging.New(&logBuf, logging.NewTextFormatter())

	tr, _, _ := newPipeTransport(t, logger)
	require.NoError(t, tr.Connect(context.Background()))

	tr.Disconnect()
	tr.Disconnect()
	tr.Disconnect()

	waitClosed(t, tr)
	assert.NoError(t, tr.Err())
	assert.Equal(t, transport.StateClosed, tr.State())
	assert.Equal(t, 1, strings.Count(logBuf.String(), "StdioTransport/disconnect: disconnected"))
}

func TestSendBeforeConnectWritesNothing(t *testing.T) {
	writes := 0
	writer := &funcWriter{fn: func(p []byte) (int, error) {
		writes++
		return len(p), nil
	}}

	config := transport.DefaultTransportConfig(transport.TransportTypeStdio)
	config.Reader = &funcReader{fn: func(p []byte) (int, error) { return 0, io.EOF }}
	config.Writer = writer

	tr, err := transport.NewTransport(config)
	require.NoError(t, err)

	err = tr.Send([]byte("too early"))
	require.Error(t, err)
	assert.True(t, wireerrors.IsNotConnected(err))
	assert.Equal(t, 0, writes, "precondition failure must not touch the descriptor")
}

func TestSendAfterDisconnectFails(t *testing.T) {
	tr, _, out := newPipeTransport(t, nil)
	require.NoError(t, tr.Connect(context.Background()))

	tr.Disconnect()
	waitClosed(t, tr)

	err := tr.Send([]byte("late"))
	require.Error(t, err)
	assert.True(t, wireerrors.IsClosed(err))
	assert.Zero(t, out.Len())
}

func TestSendFramesWithDelimiter(t *testing.T) {
	tr, _, out := newPipeTransport(t, nil)
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Disconnect()

	require.NoError(t, tr.Send([]byte(`{"method":"ping"}`)))
	require.NoError(t, tr.Send([]byte(`{"method":"pong"}`)))

	assert.Equal(t, "{\"method\":\"ping\"}\n{\"method\":\"pong\"}\n", out.String())
}

func TestSendDrivesFrameThroughWouldBlock(t *testing.T) {
	var wire bytes.Buffer
	remainingFailures := 3
	writer := &funcWriter{fn: func(p []byte) (int, error) {
		if remainingFailures > 0 {
			remainingFailures--
			return 0, unix.EAGAIN
		}
		// One byte per call forces the partial-write cursor to advance
		wire.WriteByte(p[0])
		if len(p) > 1 {
			return 1, unix.EAGAIN
		}
		return 1, nil
	}}

	config := transport.DefaultTransportConfig(transport.TransportTypeStdio)
	config.Reader = &funcReader{fn: func(p []byte) (int, error) { return 0, io.EOF }}
	config.Writer = writer
	config.Performance.PollInterval = time.Millisecond

	tr, err := transport.NewTransport(config)
	require.NoError(t, err)
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Disconnect()

	require.NoError(t, tr.Send([]byte("payload")))
	assert.Equal(t, "payload\n", wire.String(), "frame must arrive byte-exact despite retries")
}

func TestSendSurfacesWriteFailure(t *testing.T) {
	cause := stderrors.New("broken pipe")
	writer := &funcWriter{fn: func(p []byte) (int, error) {
		return 2, cause
	}}

	config := transport.DefaultTransportConfig(transport.TransportTypeStdio)
	config.Reader = &funcReader{fn: func(p []byte) (int, error) { return 0, io.EOF }}
	config.Writer = writer

	tr, err := transport.NewTransport(config)
	require.NoError(t, err)
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Disconnect()

	err = tr.Send([]byte("doomed"))
	require.Error(t, err)
	assert.True(t, wireerrors.IsCode(err, wireerrors.CodeWriteFailed))
	assert.True(t, stderrors.Is(err, cause))
}

func TestImmediateEOFFinalizesReceiveCleanly(t *testing.T) {
	config := transport.DefaultTransportConfig(transport.TransportTypeStdio)
	config.Reader = &funcReader{fn: func(p []byte) (int, error) { return 0, io.EOF }}
	config.Writer = &bytes.Buffer{}

	tr, err := transport.NewTransport(config)
	require.NoError(t, err)
	require.NoError(t, tr.Connect(context.Background()))

	waitClosed(t, tr)
	assert.NoError(t, tr.Err(), "end of stream is not an error")
	assert.Equal(t, transport.StateConnected, tr.State(),
		"end of input finalizes the receive sequence, not the transport")
}

func TestSendSurvivesInputEOF(t *testing.T) {
	var out bytes.Buffer
	config := transport.DefaultTransportConfig(transport.TransportTypeStdio)
	config.Reader = &funcReader{fn: func(p []byte) (int, error) { return 0, io.EOF }}
	config.Writer = &out

	tr, err := transport.NewTransport(config)
	require.NoError(t, err)
	require.NoError(t, tr.Connect(context.Background()))

	// The peer closed its output; we still owe it replies
	waitClosed(t, tr)
	require.NoError(t, tr.Err())

	require.NoError(t, tr.Send([]byte(`{"result":"ok"}`)))
	assert.Equal(t, "{\"result\":\"ok\"}\n", out.String())

	tr.Disconnect()
	assert.Equal(t, transport.StateClosed, tr.State())

	err = tr.Send([]byte("late"))
	require.Error(t, err)
	assert.True(t, wireerrors.IsClosed(err), "only Disconnect closes the write path")
}

func TestTrailingPartialFrameIsDiscardedOnEOF(t *testing.T) {
	chunks := [][]byte{[]byte("whole\npart")}
	config := transport.DefaultTransportConfig(transport.TransportTypeStdio)
	config.Reader = &funcReader{fn: func(p []byte) (int, error) {
		if len(chunks) == 0 {
			return 0, io.EOF
		}
		n := copy(p, chunks[0])
		chunks = chunks[1:]
		return n, nil
	}}
	config.Writer = &bytes.Buffer{}

	tr, err := transport.NewTransport(config)
	require.NoError(t, err)
	require.NoError(t, tr.Connect(context.Background()))

	assert.Equal(t, []byte("whole"), receiveFrame(t, tr))
	waitClosed(t, tr)
	assert.NoError(t, tr.Err())
}

func TestReadFailureIsTerminalWithError(t *testing.T) {
	cause := stderrors.New("device gone")
	config := transport.DefaultTransportConfig(transport.TransportTypeStdio)
	config.Reader = &funcReader{fn: func(p []byte) (int, error) { return 0, cause }}
	config.Writer = &bytes.Buffer{}

	tr, err := transport.NewTransport(config)
	require.NoError(t, err)
	require.NoError(t, tr.Connect(context.Background()))

	waitClosed(t, tr)
	require.Error(t, tr.Err())
	assert.True(t, wireerrors.IsCode(tr.Err(), wireerrors.CodeReadFailed))
	assert.True(t, stderrors.Is(tr.Err(), cause))
	assert.Equal(t, transport.StateConnected, tr.State(),
		"a read failure terminates the read loop, not the write path")
}

func TestReadRetriesThroughWouldBlock(t *testing.T) {
	calls := 0
	config := transport.DefaultTransportConfig(transport.TransportTypeStdio)
	config.Performance.PollInterval = time.Millisecond
	config.Reader = &funcReader{fn: func(p []byte) (int, error) {
		calls++
		switch {
		case calls < 4:
			return 0, unix.EAGAIN
		case calls == 4:
			return copy(p, []byte("late\n")), nil
		default:
			return 0, io.EOF
		}
	}}
	config.Writer = &bytes.Buffer{}

	tr, err := transport.NewTransport(config)
	require.NoError(t, err)
	require.NoError(t, tr.Connect(context.Background()))

	assert.Equal(t, []byte("late"), receiveFrame(t, tr))
	waitClosed(t, tr)
	assert.NoError(t, tr.Err(), "would-block conditions never surface")
}

func TestDisconnectUnblocksBlockedRead(t *testing.T) {
	detector := utils.NewGoroutineLeakDetector(t)
	detector.Start()

	tr, _, _ := newPipeTransport(t, nil)
	require.NoError(t, tr.Connect(context.Background()))

	// No data ever arrives; the read loop is parked inside Read
	time.Sleep(50 * time.Millisecond)
	tr.Disconnect()

	waitClosed(t, tr)
	assert.NoError(t, tr.Err(), "local disconnect terminates without error")

	detector.Check()
}

func TestConcurrentDisconnects(t *testing.T) {
	tr, _, _ := newPipeTransport(t, nil)
	require.NoError(t, tr.Connect(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Disconnect()
		}()
	}
	wg.Wait()

	waitClosed(t, tr)
	assert.NoError(t, tr.Err())
	assert.Equal(t, transport.StateClosed, tr.State())
}

func TestConnectAfterDisconnectFails(t *testing.T) {
	tr, _, _ := newPipeTransport(t, nil)
	require.NoError(t, tr.Connect(context.Background()))

	tr.Disconnect()
	waitClosed(t, tr)

	err := tr.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, wireerrors.IsClosed(err), "closed transports never reconnect")
}

func TestDisconnectBeforeConnect(t *testing.T) {
	tr, _, _ := newPipeTransport(t, nil)

	tr.Disconnect()
	waitClosed(t, tr)
	assert.NoError(t, tr.Err())
	assert.Equal(t, transport.StateClosed, tr.State())
}

func TestConcurrentSendsDoNotInterleave(t *testing.T) {
	tr, _, out := newPipeTransport(t, nil)
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Disconnect()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tr.Send([]byte("abcdefghij")))
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 16)
	for _, line := range lines {
		assert.Equal(t, "abcdefghij", line)
	}
}
