package logging

// nopLogger discards everything. It is the default sink of a transport
// constructed without an explicit logger.
type nopLogger struct{}

// NewNop returns a Logger that discards all entries.
func NewNop() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(string, ...Field) {}

func (nopLogger) Info(string, ...Field) {}

func (nopLogger) Warn(string, ...Field) {}

func (nopLogger) Error(string, ...Field) {}

func (n nopLogger) WithFields(...Field) Logger { return n }

func (n nopLogger) WithError(error) Logger { return n }

func (nopLogger) SetLevel(Level) {}

func (nopLogger) GetLevel() Level { return ErrorLevel }
