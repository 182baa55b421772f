package emvid

import "github.com/sirupsen/logrus"

// Logger is the leveled logging surface the engine writes to. The default
// backend is the process-wide logrus standard logger; hosts embedding the
// engine can swap in their own.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

var pkgLogger Logger = logrus.StandardLogger()

// SetLogger replaces the package logger. Pass nil to restore the default.
func SetLogger(logger Logger) {
	if logger == nil {
		pkgLogger = logrus.StandardLogger()
		return
	}
	pkgLogger = logger
}
