package formula

import "github.com/hashicorp/go-hclog"

// Logger receives structured logs as a message plus key-value pairs.
// hclog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

func defaultLogger() Logger {
	return hclog.NewNullLogger()
}
