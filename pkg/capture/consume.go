package capture

import (
	"errors"

	"github.com/tauraamui/framegrab/pkg/frame"
	"github.com/tauraamui/framegrab/pkg/log"
	"github.com/tauraamui/xerror"
)

type Source interface {
	Next() (frame.Frame, error)
}

// Processor works on the payload of completed frames. It must not hold
// on to a frame or its payload once Process returns.
type Processor interface {
	Process(frame.Frame) error
}

type ProcessorFunc func(frame.Frame) error

func (fn ProcessorFunc) Process(f frame.Frame) error { return fn(f) }

// Chain runs each processor in order, stopping at the first error.
func Chain(procs ...Processor) Processor {
	return ProcessorFunc(func(f frame.Frame) error {
		for _, p := range procs {
			if p == nil {
				continue
			}
			if err := p.Process(f); err != nil {
				return err
			}
		}
		return nil
	})
}

type Report struct {
	Processed int
	Skipped   int
	Failed    int
	Released  int
}

// Total counts every frame consumed, whatever its outcome.
func (r Report) Total() int { return r.Released }

// Consume drains src until end of stream. Completed frames go through
// proc, every other status is skipped, and every frame is closed exactly
// once whatever happened while processing it.
func Consume(src Source, proc Processor) (Report, error) {
	report := Report{}
	for {
		f, err := src.Next()
		if err != nil {
			if errors.Is(err, ErrEndOfStream) {
				return report, nil
			}
			return report, err
		}
		handle(f, proc, &report)
	}
}

func handle(f frame.Frame, proc Processor, report *Report) {
	defer func() {
		f.Close()
		report.Released++
	}()

	if f.Status() != frame.Completed {
		report.Skipped++
		log.Debug("Skipping frame [%d] with status: %s", f.ID(), f.Status())
		return
	}

	if err := process(proc, f); err != nil {
		report.Failed++
		log.Error("Unable to process frame [%d]: %v", f.ID(), err)
		return
	}
	report.Processed++
}

func process(proc Processor, f frame.Frame) (err error) {
	if proc == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = xerror.Errorf("processor panicked: %v", r)
		}
	}()
	return proc.Process(f)
}
