package errors

import (
	stderrors "errors"
	"io"

	"golang.org/x/sys/unix"
)

// IsTransient reports whether err is the "would block / resource temporarily
// unavailable" condition of non-blocking I/O. Transient conditions are always
// retried after a short delay and never surface outside the transport.
func IsTransient(err error) bool {
	return stderrors.Is(err, unix.EAGAIN) || stderrors.Is(err, unix.EWOULDBLOCK)
}

// IsEndOfStream reports whether err marks a normal end of the byte stream.
// EOF is not an error: it finalizes the receive sequence with no error.
func IsEndOfStream(err error) bool {
	return stderrors.Is(err, io.EOF)
}

// IsNotConnectedErrno reports whether err is the descriptor-level "not
// connected" condition, which Send surfaces as a NotConnected error.
func IsNotConnectedErrno(err error) bool {
	return stderrors.Is(err, unix.ENOTCONN)
}

// IsNotConnected reports whether err is a NotConnected transport error,
// from either the state check or the descriptor itself.
func IsNotConnected(err error) bool {
	return IsCode(err, CodeNotConnected) || IsNotConnectedErrno(err)
}

// IsConfiguration reports whether err is a descriptor-configuration failure.
func IsConfiguration(err error) bool {
	return IsCode(err, CodeConfigurationFailed)
}

// IsClosed reports whether err indicates the transport was already
// disconnected.
func IsClosed(err error) bool {
	return IsCode(err, CodeTransportClosed)
}
