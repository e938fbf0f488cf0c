package capture_test

import (
	"errors"
	"time"

	"github.com/tauraamui/framegrab/pkg/log"
)

func callW3sTimeout(f func()) error {
	return callWTimeout(f, time.After(3*time.Second), "test timeout 3s limit exceeded")
}

func callWTimeout(f func(), t <-chan time.Time, errmsg string) error {
	done := make(chan interface{})
	go func(d chan interface{}, f func()) {
		defer close(d)
		f()
	}(done, f)

	for {
		select {
		case <-t:
			return errors.New(errmsg)
		case <-done:
			return nil
		}
	}
}

func overloadWarnLog(overload func(string, ...interface{})) func() {
	logWarnRef := log.Warn
	log.Warn = overload
	return func() { log.Warn = logWarnRef }
}
