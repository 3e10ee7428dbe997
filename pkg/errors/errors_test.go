package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestNewError(t *testing.T) {
	err := New(CodeTransportError, "transport broke", CategoryTransport, SeverityError)

	assert.Equal(t, CodeTransportError, err.Code())
	assert.Equal(t, "transport broke", err.Message())
	assert.Equal(t, CategoryTransport, err.Category())
	assert.Equal(t, SeverityError, err.Severity())
	require.NotNil(t, err.Context())
	assert.False(t, err.Context().Timestamp.IsZero())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("underlying: %w", unix.EBADF)
	err := Wrap(cause, CodeReadFailed, "read loop terminated", CategoryTransport, SeverityError)

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, stderrors.Is(err, unix.EBADF), "errors.Is should traverse the cause chain")
}

func TestWithDetailAndData(t *testing.T) {
	base := New(CodeWriteFailed, "failed to write frame", CategoryTransport, SeverityError)

	detailed := base.WithDetail("first detail").WithDetail("second detail")
	assert.Equal(t, "first detail; second detail", detailed.Details())
	assert.Equal(t, "", base.Details(), "WithDetail must not mutate the original")

	withData := base.WithData(&TransportErrorData{Transport: "stdio", Operation: "write"})
	data, ok := withData.Data().(*TransportErrorData)
	require.True(t, ok)
	assert.Equal(t, "write", data.Operation)
}

func TestConfigurationFailed(t *testing.T) {
	err := ConfigurationFailed("stdin", unix.ENOTTY)

	assert.Equal(t, CodeConfigurationFailed, err.Code())
	assert.Equal(t, CategoryConfig, err.Category())
	assert.True(t, IsConfiguration(err))
	assert.True(t, stderrors.Is(err, unix.ENOTTY), "system error code must be preserved")

	data, ok := err.Data().(*TransportErrorData)
	require.True(t, ok)
	assert.Equal(t, "stdin", data.Descriptor)
	assert.False(t, data.Retryable)
}

func TestNotConnected(t *testing.T) {
	err := NotConnected("send")

	assert.Equal(t, CodeNotConnected, err.Code())
	assert.True(t, IsNotConnected(err))
	assert.Contains(t, err.Error(), "send")
}

func TestNotConnectedErrno(t *testing.T) {
	wrapped := fmt.Errorf("write stdout: %w", unix.ENOTCONN)
	assert.True(t, IsNotConnected(wrapped))
	assert.False(t, IsNotConnected(io.ErrClosedPipe))
}

func TestWriteFailedRecordsProgress(t *testing.T) {
	err := WriteFailed(17, unix.EBADF)

	assert.Equal(t, CodeWriteFailed, err.Code())
	data, ok := err.Data().(*TransportErrorData)
	require.True(t, ok)
	assert.Equal(t, 17, data.BytesWritten)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(unix.EAGAIN))
	assert.True(t, IsTransient(unix.EWOULDBLOCK))
	assert.True(t, IsTransient(fmt.Errorf("read stdin: %w", unix.EAGAIN)))

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(io.EOF))
	assert.False(t, IsTransient(unix.EBADF))
}

func TestIsEndOfStream(t *testing.T) {
	assert.True(t, IsEndOfStream(io.EOF))
	assert.True(t, IsEndOfStream(fmt.Errorf("wrapped: %w", io.EOF)))
	assert.False(t, IsEndOfStream(io.ErrUnexpectedEOF))
	assert.False(t, IsEndOfStream(nil))
}

func TestAsWireError(t *testing.T) {
	wireErr := NotConnected("send")
	extracted, ok := AsWireError(wireErr)
	require.True(t, ok)
	assert.Equal(t, CodeNotConnected, extracted.Code())

	_, ok = AsWireError(stderrors.New("plain"))
	assert.False(t, ok)

	_, ok = AsWireError(nil)
	assert.False(t, ok)
}

func TestIsCategoryAndCode(t *testing.T) {
	err := TransportClosed("connect")

	assert.True(t, IsCategory(err, CategoryTransport))
	assert.False(t, IsCategory(err, CategoryConfig))
	assert.True(t, IsCode(err, CodeTransportClosed))
	assert.True(t, IsClosed(err))
}

func TestToJSON(t *testing.T) {
	err := ReadFailed(unix.EBADF).WithContext(&Context{
		ConnectionID: "conn-1",
		Component:    "StdioTransport",
		Operation:    "read_loop",
	})

	m := err.ToJSON()
	assert.Equal(t, CodeReadFailed, m["code"])
	assert.Equal(t, string(CategoryTransport), m["category"])
	assert.NotNil(t, m["cause"])
	assert.NotNil(t, m["context"])
}

func TestErrorCodeRegistry(t *testing.T) {
	info, ok := GetErrorCodeInfo(CodeNotConnected)
	require.True(t, ok)
	assert.Equal(t, "NotConnected", info.Name)

	assert.Equal(t, "UnknownError", GetErrorCodeName(-1))
	assert.NotEmpty(t, ListErrorCodes())
}
