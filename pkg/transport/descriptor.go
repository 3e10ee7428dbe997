package transport

import (
	"golang.org/x/sys/unix"

	"github.com/lineframe/lineframe-go/pkg/errors"
)

// fdStream is implemented by streams backed by an operating system file
// descriptor, such as *os.File.
type fdStream interface {
	Fd() uintptr
}

// configureNonblocking switches a descriptor-backed stream to non-blocking
// mode. Streams without a descriptor (in-memory pipes used in tests) are
// left untouched; they never report would-block conditions.
func configureNonblocking(stream interface{}, descriptor string) error {
	fd, ok := stream.(fdStream)
	if !ok {
		return nil
	}

	if err := unix.SetNonblock(int(fd.Fd()), true); err != nil {
		return errors.ConfigurationFailed(descriptor, err)
	}
	return nil
}
