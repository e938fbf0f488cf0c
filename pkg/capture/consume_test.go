package capture_test

import (
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/framegrab/pkg/capture"
	"github.com/tauraamui/framegrab/pkg/frame"
	"github.com/tauraamui/framegrab/pkg/log"
)

func overloadErrorLog(overload func(string, ...interface{})) func() {
	logErrorRef := log.Error
	log.Error = overload
	return func() { log.Error = logErrorRef }
}

func TestConsumeReleasesEveryFrameExactlyOnce(t *testing.T) {
	is := is.New(t)
	defer overloadErrorLog(func(string, ...interface{}) {})()

	closes := map[uint64]int{}
	q := capture.NewQueue(10)
	statuses := []frame.Status{
		frame.Completed, frame.Incomplete, frame.Completed, frame.Aborted,
		frame.Completed, frame.TooSmall, frame.Completed,
	}
	for i, status := range statuses {
		id := uint64(i + 1)
		is.NoErr(q.Push(&mockFrame{id: id, status: status, onClose: func() { closes[id]++ }}))
	}
	q.Close()

	proc := capture.ProcessorFunc(func(f frame.Frame) error {
		switch f.ID() {
		case 3:
			return errors.New("unable to process")
		case 5:
			panic("processor blew up")
		}
		return nil
	})

	report, err := capture.Consume(q, proc)
	is.NoErr(err)

	is.Equal(report.Released, len(statuses))
	is.Equal(report.Total(), report.Processed+report.Skipped+report.Failed)
	is.Equal(report.Processed, 2)
	is.Equal(report.Failed, 2)
	is.Equal(report.Skipped, 3)
	is.Equal(len(closes), len(statuses))
	for id, count := range closes {
		if count != 1 {
			t.Errorf("frame [%d] released %d times", id, count)
		}
	}
}

func TestConsumeLogsProcessingErrors(t *testing.T) {
	is := is.New(t)
	errorLogs := []string{}
	defer overloadErrorLog(func(format string, a ...interface{}) {
		errorLogs = append(errorLogs, format)
	})()

	q := capture.NewQueue(1)
	is.NoErr(q.Push(&mockFrame{id: 1, status: frame.Completed}))
	q.Close()

	_, err := capture.Consume(q, capture.ProcessorFunc(func(frame.Frame) error {
		return errors.New("bad frame")
	}))
	is.NoErr(err)
	is.Equal(len(errorLogs), 1)
}

type erroringSource struct {
	frames []frame.Frame
	err    error
}

func (s *erroringSource) Next() (frame.Frame, error) {
	if len(s.frames) == 0 {
		return nil, s.err
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func TestConsumeReturnsTerminalSourceError(t *testing.T) {
	is := is.New(t)
	released := 0
	src := &erroringSource{
		frames: []frame.Frame{&mockFrame{id: 1, onClose: func() { released++ }}},
		err:    errors.New("camera disconnected"),
	}

	report, err := capture.Consume(src, nil)
	is.Equal(err.Error(), "camera disconnected")
	is.Equal(report.Released, 1)
	is.Equal(report.Processed, 1)
	is.Equal(released, 1)
}

func TestChainStopsAtFirstError(t *testing.T) {
	is := is.New(t)
	calls := []string{}
	chain := capture.Chain(
		capture.ProcessorFunc(func(frame.Frame) error { calls = append(calls, "a"); return nil }),
		nil,
		capture.ProcessorFunc(func(frame.Frame) error { calls = append(calls, "b"); return errors.New("b failed") }),
		capture.ProcessorFunc(func(frame.Frame) error { calls = append(calls, "c"); return nil }),
	)

	err := chain.Process(&mockFrame{id: 1})
	is.Equal(err.Error(), "b failed")
	is.Equal(calls, []string{"a", "b"})
}
