package process_test

import (
	"errors"
	"time"
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
