package common

import (
	"io"
	"log"
	"os"
	"sync"
)

var (
	logMu  sync.RWMutex
	logger = log.New(os.Stderr, "[sorgate] ", log.LstdFlags|log.Lmicroseconds)
)

// SetLogOutput redirects package logging, e.g. to a rotating file.
func SetLogOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logMu.Lock()
	logger.SetOutput(w)
	logMu.Unlock()
}

func Logf(format string, args ...interface{}) {
	logMu.RLock()
	defer logMu.RUnlock()
	logger.Printf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	logMu.RLock()
	defer logMu.RUnlock()
	logger.Fatalf(format, args...)
}
