package log

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	scierrors "github.com/YuminosukeSato/claimfreq/pkg/errors"
)

var (
	providerMu sync.RWMutex
	provider   LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo)
)

// SetupLogger configures the global provider from a level string such as
// "info" and routes pkg/errors warnings to it. Output goes to w, or stderr
// when w is nil.
func SetupLogger(loglevel string, w io.Writer) error {
	level, err := ParseLevel(loglevel)
	if err != nil {
		return err
	}
	if w == nil {
		w = os.Stderr
	}
	installErrorStackMarshaler()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	p := NewZerologProvider(w, level)
	SetProvider(p)

	warnLogger := p.GetLoggerWithName("warnings")
	scierrors.SetZerologWarnFunc(func(warning error) {
		warnLogger.Warn(warning.Error())
	})
	return nil
}

// SetProvider replaces the global provider; tests install a
// TestLoggerProvider here.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	provider = p
}

// GetLogger returns the default logger of the global provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLogger()
}

// GetLoggerWithName returns a logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLoggerWithName(name)
}
