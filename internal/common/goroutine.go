// -----------------------------------------------------------------------
// Safe Goroutine - Panic-protected goroutine wrappers
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/ternarybob/arbor"
)

// SafeGo runs fn in a goroutine tracked by wg, with panic recovery.
// A panic is logged and the goroutine ends; wg is always released.
func SafeGo(logger arbor.ILogger, wg *sync.WaitGroup, name string, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer RecoverPanic(logger, name)
		fn()
	}()
}

// RecoverPanic logs a recovered panic with its stack. Call it deferred.
func RecoverPanic(logger arbor.ILogger, name string) {
	if r := recover(); r != nil {
		logPanic(logger, name, r)
	}
}

// PanicError converts a recovered panic value into an error, logging the stack.
func PanicError(logger arbor.ILogger, name string, r interface{}) error {
	logPanic(logger, name, r)
	return fmt.Errorf("panic in %s: %v", name, r)
}

func logPanic(logger arbor.ILogger, name string, r interface{}) {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	if logger == nil {
		return
	}
	logger.Error().
		Str("goroutine", name).
		Str("panic", fmt.Sprintf("%v", r)).
		Str("stack", string(buf[:n])).
		Msg("Recovered from panic")
}
